package provider

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoer struct {
	status int
	body   string
	err    error
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     http.Header{},
	}, nil
}

func TestShapeRequestOpenAIChat(t *testing.T) {
	d, _ := DescriptorFor("openai")
	body, err := shapeRequest(d, "", "hello")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"messages"`)
	assert.Contains(t, string(body), `"role":"user"`)
}

func TestShapeRequestAnthropicMessages(t *testing.T) {
	d, _ := DescriptorFor("anthropic")
	body, err := shapeRequest(d, "", "hello")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"max_tokens"`)
}

func TestShapeRequestGeminiGenerate(t *testing.T) {
	d, _ := DescriptorFor("gemini")
	body, err := shapeRequest(d, "", "hello")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"contents"`)
	assert.Contains(t, string(body), `"parts"`)
}

func TestParseResponseOpenAIChat(t *testing.T) {
	text, err := parseResponse(StyleOpenAIChat, []byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestParseResponseAnthropicMessages(t *testing.T) {
	text, err := parseResponse(StyleAnthropicMessages, []byte(`{"content":[{"text":"hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestParseResponseGeminiGenerate(t *testing.T) {
	text, err := parseResponse(StyleGeminiGenerate, []byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestParseResponseErrorsOnEmptyShape(t *testing.T) {
	_, err := parseResponse(StyleOpenAIChat, []byte(`{"choices":[]}`))
	assert.Error(t, err)
}

func TestBuildRequestURLPutsGeminiKeyInQueryString(t *testing.T) {
	d, _ := DescriptorFor("gemini")
	url := buildRequestURL(d, "", "secret")
	assert.Contains(t, url, "key=secret")
	assert.Contains(t, url, d.DefaultModel)
}

func TestCallProviderReadsShapedResponse(t *testing.T) {
	d, _ := DescriptorFor("openai")
	doer := &fakeDoer{status: 200, body: `{"choices":[{"message":{"content":"ok"}}]}`}
	res, err := callProvider(context.Background(), doer, d, "key", "", "prompt", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)
}
