package provider

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequencedDoer returns a canned response chosen by request URL host
// substring (500 for any other host) so a test can give mistral a 429 and
// openrouter a 200 within the same chain walk.
type sequencedDoer struct {
	byHost map[string]*fakeDoer
}

func (s *sequencedDoer) Do(req *http.Request) (*http.Response, error) {
	for host, d := range s.byHost {
		if contains(req.URL.Host, host) {
			return d.Do(req)
		}
	}
	return &http.Response{StatusCode: 500, Body: http.NoBody, Header: http.Header{}}, nil
}

func contains(haystack, needle string) bool {
	return len(needle) > 0 && (len(haystack) >= len(needle)) &&
		(indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestCallFailsOverPastRateLimitToSuccess(t *testing.T) {
	doer := &sequencedDoer{byHost: map[string]*fakeDoer{
		"mistral.ai":      {status: 429, body: ``},
		"openrouter.ai":   {status: 200, body: `{"choices":[{"message":{"content":"hi from openrouter"}}]}`},
	}}

	p := &Policy{
		Lookup: envMap(map[string]string{
			"VIBE_CLOUD_PROVIDER_CHAIN": "mistral,openrouter",
			"MISTRAL_API_KEY":           "mkey",
			"OPENROUTER_API_KEY":        "okey",
		}),
		HTTPClient: doer,
		Timeout:    time.Second,
	}

	res, err := p.Call(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", res.ProviderUsed)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, ReasonRateLimit, res.Attempts[0].Reason)
	assert.True(t, res.Attempts[1].OK)
}

func TestCallSkipsProvidersMissingAuth(t *testing.T) {
	p := &Policy{
		Lookup: envMap(map[string]string{
			"VIBE_CLOUD_PROVIDER_CHAIN": "mistral,openrouter",
		}),
		HTTPClient: &fakeDoer{status: 200, body: `{}`},
		Timeout:    time.Second,
	}

	_, err := p.Call(context.Background(), "hello", nil)
	require.Error(t, err)
	polErr, ok := err.(*PolicyError)
	require.True(t, ok)
	assert.Equal(t, ReasonMissingAuth, polErr.Reason)
	assert.Len(t, polErr.Attempts, 2)
}

func TestCallReturnsCancelledWhenSignalFiresFirst(t *testing.T) {
	cancel := make(chan struct{})
	close(cancel)

	p := &Policy{
		Lookup: envMap(map[string]string{
			"VIBE_CLOUD_PROVIDER_CHAIN": "mistral",
			"MISTRAL_API_KEY":           "mkey",
		}),
		HTTPClient: &fakeDoer{status: 200, body: `{}`},
		Timeout:    time.Second,
	}

	_, err := p.Call(context.Background(), "hello", cancel)
	require.Error(t, err)
	_, ok := err.(*ErrCancelled)
	assert.True(t, ok)
}

func TestCallIsIdempotentInAttemptedProviderSequence(t *testing.T) {
	p := &Policy{
		Lookup: envMap(map[string]string{
			"VIBE_CLOUD_PROVIDER_CHAIN": "mistral,openrouter",
		}),
		HTTPClient: &fakeDoer{status: 200, body: `{}`},
		Timeout:    time.Second,
	}

	_, err1 := p.Call(context.Background(), "hello", nil)
	_, err2 := p.Call(context.Background(), "hello", nil)
	require.Error(t, err1)
	require.Error(t, err2)
	pe1 := err1.(*PolicyError)
	pe2 := err2.(*PolicyError)

	var seq1, seq2 []string
	for _, a := range pe1.Attempts {
		seq1 = append(seq1, a.Provider)
	}
	for _, a := range pe2.Attempts {
		seq2 = append(seq2, a.Provider)
	}
	assert.Equal(t, seq1, seq2)
}
