package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRejectsNonLoopbackHostWithoutIO(t *testing.T) {
	var c Client
	_, err := c.Get("http://8.8.8.8:53/probe", nil, 0)
	require.NotNil(t, err)
	assert.Equal(t, ErrNonLoopback, err.Kind)
}

func TestNormalizeHostRewritesWildcardBinds(t *testing.T) {
	assert.Equal(t, "127.0.0.1", normalizeHost("0.0.0.0"))
	assert.Equal(t, "127.0.0.1", normalizeHost("::"))
	assert.Equal(t, "example.com", normalizeHost("example.com"))
}

func TestGetSucceedsAgainstLoopbackServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	loopbackURL := strings.Replace(srv.URL, "127.0.0.1", "localhost", 1)

	var c Client
	result, err := c.Get(loopbackURL, nil, 0)
	require.Nil(t, err)
	assert.Equal(t, 200, result.Status)
	assert.Equal(t, true, result.ParsedJSON["ok"])
}

func TestPostReturnsMalformedBodyOnBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var c Client
	_, err := c.Post(srv.URL, []byte(`{}`), nil, 0)
	require.NotNil(t, err)
	assert.Equal(t, ErrMalformed, err.Kind)
}

func TestGetReturnsHTTPErrorForStatusAtOrAbove400(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var c Client
	_, err := c.Get(srv.URL, nil, 0)
	require.NotNil(t, err)
	assert.Equal(t, ErrHTTPError, err.Kind)
	assert.Equal(t, 429, err.Code)
}

func TestClampTimeoutEnforcesDefaultAndCeiling(t *testing.T) {
	assert.Equal(t, DefaultTimeout, clampTimeout(0))
	assert.Equal(t, DefaultTimeout, clampTimeout(-1))
	assert.Equal(t, MaxTimeout, clampTimeout(time.Hour))
	assert.Equal(t, 5*time.Second, clampTimeout(5*time.Second))
}

func TestGetTimesOutWithinRequestedBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	var c Client
	_, err := c.Get(srv.URL, nil, 10*time.Millisecond)
	require.NotNil(t, err)
	assert.Equal(t, ErrTimeout, err.Kind)
}

func TestNoRedirectsAreFollowed(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	var c Client
	result, err := c.Get(srv.URL, nil, 0)
	require.Nil(t, err)
	assert.Equal(t, http.StatusFound, result.Status)
}
