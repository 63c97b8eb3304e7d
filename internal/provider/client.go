package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// attemptResult is what a single shaped HTTP call against one provider
// yields, before failover classification.
type attemptResult struct {
	Text   string
	Status int
	Body   []byte
}

// openAIChatRequest mirrors the teacher's OpenAIRequest/ZAIRequest shape,
// shared here by every openai_chat-style provider (mistral, openrouter,
// openai itself).
type openAIChatRequest struct {
	Model     string              `json:"model"`
	Messages  []openAIChatMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type anthropicMessagesRequest struct {
	Model     string                     `json:"model"`
	Messages  []anthropicMessagesMessage `json:"messages"`
	MaxTokens int                        `json:"max_tokens"`
}

type anthropicMessagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// shapeRequest builds the outbound JSON body for a provider's api_style,
// per §4.7.
func shapeRequest(d Descriptor, model, prompt string) ([]byte, error) {
	if model == "" {
		model = d.DefaultModel
	}
	switch d.APIStyle {
	case StyleOpenAIChat:
		return json.Marshal(openAIChatRequest{
			Model:     model,
			Messages:  []openAIChatMessage{{Role: "user", Content: prompt}},
			MaxTokens: 4096,
		})
	case StyleAnthropicMessages:
		return json.Marshal(anthropicMessagesRequest{
			Model:     model,
			Messages:  []anthropicMessagesMessage{{Role: "user", Content: prompt}},
			MaxTokens: 4096,
		})
	case StyleGeminiGenerate:
		return json.Marshal(geminiGenerateRequest{
			Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		})
	default:
		return nil, fmt.Errorf("unknown api style %q", d.APIStyle)
	}
}

// parseResponse extracts the completion text per §4.7's per-style read
// path. Returns an error when the expected shape is absent — the caller
// classifies that as invalid_response.
func parseResponse(style APIStyle, body []byte) (string, error) {
	switch style {
	case StyleOpenAIChat:
		var r openAIChatResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", err
		}
		if len(r.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return r.Choices[0].Message.Content, nil
	case StyleAnthropicMessages:
		var r anthropicMessagesResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", err
		}
		if len(r.Content) == 0 {
			return "", fmt.Errorf("no content in response")
		}
		return r.Content[0].Text, nil
	case StyleGeminiGenerate:
		var r geminiGenerateResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", err
		}
		if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no candidates in response")
		}
		return r.Candidates[0].Content.Parts[0].Text, nil
	default:
		return "", fmt.Errorf("unknown api style %q", style)
	}
}

// buildRequestURL returns the endpoint to POST to, including Gemini's
// model-in-path plus query-string API key convention.
func buildRequestURL(d Descriptor, model, apiKey string) string {
	if d.APIStyle == StyleGeminiGenerate {
		if model == "" {
			model = d.DefaultModel
		}
		return fmt.Sprintf("%s/%s:generateContent?key=%s", d.Endpoint, model, apiKey)
	}
	return d.Endpoint
}

func authHeaders(d Descriptor, apiKey string) map[string]string {
	switch d.APIStyle {
	case StyleAnthropicMessages:
		return map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": "2023-06-01",
			"Content-Type":      "application/json",
		}
	case StyleGeminiGenerate:
		// Auth travels in the URL's query string for Gemini.
		return map[string]string{"Content-Type": "application/json"}
	default:
		return map[string]string{
			"Authorization": "Bearer " + apiKey,
			"Content-Type":  "application/json",
		}
	}
}

// httpDoer is satisfied by *http.Client; narrowed so tests can substitute a
// fake transport without standing up a real listener.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// callProvider performs a single shaped HTTP attempt. Stage-3 calls are
// intentional remote calls via the configured provider endpoint and are
// not subject to the loopback boundary (§4.7) — unlike every other core
// module, this one talks directly to net/http rather than through
// internal/transport.
func callProvider(ctx context.Context, doer httpDoer, d Descriptor, apiKey, model, prompt string, timeout time.Duration) (attemptResult, error) {
	body, err := shapeRequest(d, model, prompt)
	if err != nil {
		return attemptResult{}, err
	}

	url := buildRequestURL(d, model, apiKey)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return attemptResult{}, err
	}
	for k, v := range authHeaders(d, apiKey) {
		req.Header.Set(k, v)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return attemptResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{}, err
	}

	return attemptResult{Status: resp.StatusCode, Body: respBody}, nil
}
