package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/council/pkg/engine"
	"github.com/quorumlabs/council/pkg/router"
)

// fakeOpenRouter answers every chat completion with a canned reply that names
// the model, so results can be told apart.
func fakeOpenRouter(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "reply from " + req.Model}},
			},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1},
		})
	}))
}

func testConfig(srvURL string) engine.Config {
	return engine.Config{
		DefaultRouter: "openrouter",
		Models:        []string{"alpha", "beta"},
		Backends: engine.BackendsConfig{
			OpenRouter: engine.OpenRouterConfig{BaseURL: srvURL, APIKey: "sk-test"},
			Ollama:     engine.OllamaConfig{BaseURL: "http://127.0.0.1:1"},
		},
		Stage: engine.StageConfig{Timeout: 5 * time.Second, MinResults: 2},
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := engine.New(context.Background(), engine.Config{}, nil)
	assert.Error(t, err)
}

func TestRun_QuorumRound(t *testing.T) {
	srv := fakeOpenRouter(t)
	defer srv.Close()

	e, err := engine.New(context.Background(), testConfig(srv.URL), nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	round, err := e.Run(context.Background(), "", "2+2", nil)
	require.NoError(t, err)

	assert.Equal(t, router.OpenRouter, round.Router)
	assert.Equal(t, "2+2", round.Query)

	// The calculator is the only registered tool and runs on every query.
	// Its numeric output is already valid JSON and passes through unquoted.
	require.Len(t, round.Invocations, 1)
	assert.Equal(t, "calculator", round.Invocations[0].Tool)
	assert.Equal(t, "4", round.Invocations[0].Output)

	assert.Equal(t, 2, round.Results.Len())
	r, ok := round.Results.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "reply from alpha", r.Content)
}

func TestRun_NonArithmeticQueryYieldsNoToolEntry(t *testing.T) {
	srv := fakeOpenRouter(t)
	defer srv.Close()

	e, err := engine.New(context.Background(), testConfig(srv.URL), nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// The calculator fails to parse prose; its failure is logged and omitted.
	round, err := e.Run(context.Background(), "", "explain the borrow checker", nil)
	require.NoError(t, err)
	assert.Empty(t, round.Invocations)
	assert.Equal(t, 2, round.Results.Len())
}

func TestRun_UnknownRouter(t *testing.T) {
	srv := fakeOpenRouter(t)
	defer srv.Close()

	e, err := engine.New(context.Background(), testConfig(srv.URL), nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Run(context.Background(), "bedrock", "hello", nil)
	assert.ErrorIs(t, err, router.ErrUnknownRouter)
}

func TestExport_NoEndpointConfigured(t *testing.T) {
	srv := fakeOpenRouter(t)
	defer srv.Close()

	e, err := engine.New(context.Background(), testConfig(srv.URL), nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	round, err := e.Run(context.Background(), "", "2+2", nil)
	require.NoError(t, err)

	info, err := e.Export(context.Background(), round)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestExport_UploadsRenderedSession(t *testing.T) {
	backendSrv := fakeOpenRouter(t)
	defer backendSrv.Close()

	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc-1","name":"n","webViewLink":"https://docs.example.com/doc-1"}`))
	}))
	defer uploadSrv.Close()

	cfg := testConfig(backendSrv.URL)
	cfg.Export = engine.ExportConfig{
		Endpoint: uploadSrv.URL,
		Token:    "tok",
		FolderID: "folder-1",
	}

	e, err := engine.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	round, err := e.Run(context.Background(), "", "2+2", nil)
	require.NoError(t, err)

	info, err := e.Export(context.Background(), round)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "doc-1", info.ID)
}
