// Package ollama provides a backend client for a local Ollama server. It is
// the capability-poor backend: text-only message content. Image parts are
// dropped at this boundary with a logged warning, never mis-encoded, and the
// query still proceeds. Stage labels and temperature overrides are accepted
// and ignored; both are documented no-ops for this backend.
package ollama

import (
	"context"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/chats/chat"
	"github.com/quorumlabs/council/pkg/chats/content"
	"github.com/quorumlabs/council/pkg/chats/message"
)

const chatPath = "/api/chat"

var _ backend.Querier = (*Adapter)(nil)

// Adapter implements backend.Querier for the Ollama chat API.
type Adapter struct {
	backend.Client
}

// New creates an Adapter for an Ollama server.
// The baseURL should be "http://localhost:11434" (no trailing slash).
func New(baseURL string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL

	return a
}

// Query sends one model query and returns the reply, or the absent Result on
// any failure. The failure cause and backend identity are logged; no error is
// returned to the caller. Ollama produces no reasoning metadata.
func (a *Adapter) Query(ctx context.Context, model string, c *chat.Chat, opts backend.Options) backend.Result {
	req, dropped := a.buildRequest(model, c)
	if dropped > 0 {
		a.Logger().Warn("dropping non-text parts for ollama backend",
			"model", model, "dropped", dropped)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.RequestTimeout(opts))
	defer cancel()

	var resp apiResponse
	if err := a.PostJSON(reqCtx, chatPath, req, &resp); err != nil {
		a.Logger().Error("ollama query failed",
			"model", model, "kind", backend.ClassifyFailure(err), "error", err)
		return backend.Absent()
	}

	return backend.Success(resp.Message.Content)
}

// --- wire types ---

type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Message apiMessage `json:"message"`
}

// buildRequest flattens each turn to its text content and counts the
// non-text parts dropped in the process.
func (a *Adapter) buildRequest(model string, c *chat.Chat) (apiRequest, int) {
	req := apiRequest{
		Model:  model,
		Stream: false,
	}

	dropped := 0
	c.Each(func(_ int, m message.Message) bool {
		for _, p := range m.Parts {
			if _, ok := p.(content.Text); !ok {
				dropped++
			}
		}
		req.Messages = append(req.Messages, apiMessage{
			Role:    m.Role.String(),
			Content: m.TextContent(),
		})
		return true
	})

	return req, dropped
}
