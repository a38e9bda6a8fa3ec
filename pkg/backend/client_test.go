package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/council/pkg/backend"
)

func newClient(baseURL string, auth backend.Auth, hc *http.Client) *backend.Client {
	return &backend.Client{BaseURL: baseURL, Auth: auth, Client: hc}
}

func TestNewRequest_BearerAuth(t *testing.T) {
	c := newClient("https://api.example.com", backend.Auth{Key: "sk-test"}, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/chat", req.URL.String())
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
}

func TestNewRequest_CustomHeader(t *testing.T) {
	c := newClient("https://api.example.com", backend.Auth{Key: "sk-test", Header: "x-api-key"}, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", req.Header.Get("x-api-key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestNewRequest_NoAuth(t *testing.T) {
	c := newClient("https://api.example.com", backend.Auth{}, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestNewRequest_ExtraHeaders(t *testing.T) {
	c := newClient("https://api.example.com", backend.Auth{}, nil)
	c.Headers = map[string]string{"x-custom": "value"}

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "value", req.Header.Get("x-custom"))
}

func TestRequestTimeout_Resolution(t *testing.T) {
	c := &backend.Client{}
	assert.Equal(t, backend.DefaultTimeout, c.RequestTimeout(backend.Options{}))

	c.Timeout = 10 * time.Second
	assert.Equal(t, 10*time.Second, c.RequestTimeout(backend.Options{}))

	opts := backend.Options{Timeout: time.Second}
	assert.Equal(t, time.Second, c.RequestTimeout(opts))
}

func TestPostJSON_Success(t *testing.T) {
	type reqBody struct {
		Model string `json:"model"`
	}
	type respBody struct {
		ID string `json:"id"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got reqBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "gpt-4", got.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(respBody{ID: "chatcmpl-123"})
	}))
	defer srv.Close()

	c := newClient(srv.URL, backend.Auth{Key: "sk-test"}, srv.Client())

	var dest respBody
	err := c.PostJSON(context.Background(), "/v1/chat", reqBody{Model: "gpt-4"}, &dest)
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-123", dest.ID)
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, backend.Auth{}, srv.Client())

	err := c.PostJSON(context.Background(), "/v1/chat", map[string]string{}, nil)
	require.Error(t, err)

	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Contains(t, statusErr.Body, "invalid api key")
}

func TestPostJSON_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, backend.Auth{}, srv.Client())

	err := c.PostJSON(context.Background(), "/v1/chat", map[string]string{}, nil)
	require.Error(t, err)

	var rateErr *backend.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 7*time.Second, rateErr.RetryAfter)
}

func TestPostJSON_NilDest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, backend.Auth{}, srv.Client())

	err := c.PostJSON(context.Background(), "/v1/chat", map[string]string{}, nil)
	assert.NoError(t, err)
}

func TestPostJSON_MarshalError(t *testing.T) {
	c := newClient("https://api.example.com", backend.Auth{}, nil)

	err := c.PostJSON(context.Background(), "/v1/chat", make(chan int), nil)
	assert.ErrorContains(t, err, "marshal payload")
}
