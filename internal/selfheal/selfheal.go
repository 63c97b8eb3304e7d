// Package selfheal implements the self-heal probe (C9): checking the local
// model service's reachability and model inventory via the loopback
// transport, on demand or on a background interval.
package selfheal

import (
	"context"
	"encoding/json"
	"fmt"

	"uwizard/internal/transport"
)

// IssueKind is the closed set of things a probe can find wrong.
type IssueKind string

const (
	IssueServiceUnreachable   IssueKind = "service_unreachable"
	IssueEndpointBlocked      IssueKind = "endpoint_blocked"
	IssueDefaultModelMissing  IssueKind = "default_model_missing"
	IssueMissingRequiredModel IssueKind = "missing_required_model"
)

// Issue is one probe finding.
type Issue struct {
	Kind       IssueKind
	Message    string
	Repairable bool
	Action     string
}

// Report is C9's check() return shape.
type Report struct {
	Issues     []Issue
	Repairable []Issue
}

// Tier names the required-model-list a deployment commits to.
type Tier string

const (
	Tier2 Tier = "tier2"
	Tier3 Tier = "tier3"
)

// Prober holds everything a Check needs: the loopback client, the model
// service's base URL, the configured default model, and the tier-derived
// required-model list.
type Prober struct {
	Client       *transport.Client
	Endpoint     string
	DefaultModel string
	Tier         Tier
	TierModels   map[Tier][]string
}

type modelsResponse struct {
	Models []string `json:"models"`
}

// Check runs all of C9's checks in order: reachability, default-model
// presence, required-model completeness.
func (p *Prober) Check(ctx context.Context) (Report, error) {
	client := p.Client
	if client == nil {
		client = &transport.Client{}
	}

	res, terr := client.Get(p.Endpoint+"/models", nil, transport.DefaultTimeout)
	if terr != nil {
		if terr.Kind == transport.ErrNonLoopback {
			return Report{Issues: []Issue{{
				Kind:       IssueEndpointBlocked,
				Message:    terr.Error(),
				Repairable: false,
			}}}, nil
		}
		return Report{Issues: []Issue{{
			Kind:       IssueServiceUnreachable,
			Message:    fmt.Sprintf("model service unreachable at %s: %v", p.Endpoint, terr),
			Repairable: false,
		}}}, nil
	}

	var parsed modelsResponse
	if err := json.Unmarshal(res.BodyBytes, &parsed); err != nil {
		return Report{Issues: []Issue{{
			Kind:       IssueServiceUnreachable,
			Message:    fmt.Sprintf("model service returned an unparseable model list: %v", err),
			Repairable: false,
		}}}, nil
	}

	present := make(map[string]bool, len(parsed.Models))
	for _, m := range parsed.Models {
		present[m] = true
	}

	var issues []Issue

	if p.DefaultModel != "" && !present[p.DefaultModel] {
		issues = append(issues, Issue{
			Kind:       IssueDefaultModelMissing,
			Message:    fmt.Sprintf("default model %q is not present on the model service", p.DefaultModel),
			Repairable: true,
			Action:     "pull_" + p.DefaultModel,
		})
	}

	for _, name := range p.TierModels[p.Tier] {
		if present[name] {
			continue
		}
		issues = append(issues, Issue{
			Kind:       IssueMissingRequiredModel,
			Message:    fmt.Sprintf("required model %q for tier %q is not present", name, p.Tier),
			Repairable: true,
			Action:     "pull_" + name,
		})
	}

	var repairable []Issue
	for _, issue := range issues {
		if issue.Repairable {
			repairable = append(repairable, issue)
		}
	}

	return Report{Issues: issues, Repairable: repairable}, nil
}
