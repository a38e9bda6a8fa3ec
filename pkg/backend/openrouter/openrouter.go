// Package openrouter provides a backend client for the OpenRouter chat
// completions API. It is the capability-rich backend: multi-modal message
// content, reasoning metadata passthrough, stage labels, and a single
// synchronous retry after a rate-limit response.
package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/backend/usage"
	"github.com/quorumlabs/council/pkg/chats/chat"
	"github.com/quorumlabs/council/pkg/chats/content"
	"github.com/quorumlabs/council/pkg/chats/message"
)

const completionsPath = "/api/v1/chat/completions"

var _ backend.Querier = (*Adapter)(nil)

// Adapter implements backend.Querier for the OpenRouter API.
type Adapter struct {
	backend.Client
	Usage usage.Tracker
}

// New creates an Adapter configured for the OpenRouter API.
// The baseURL should be "https://openrouter.ai" (no trailing slash).
func New(baseURL, apiKey string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = backend.Auth{Key: apiKey}

	return a
}

// BuildMessageContent assembles multi-modal content parts: the text part
// first, then one image part per supplied image, order preserved. With no
// images the result is the single text part.
func BuildMessageContent(text string, images []content.Image) []content.Part {
	parts := make([]content.Part, 0, 1+len(images))
	parts = append(parts, content.Text{Text: text})
	for _, img := range images {
		parts = append(parts, img)
	}
	return parts
}

// Query sends one model query and returns the reply, or the absent Result on
// any failure. The failure cause and backend identity are logged; no error is
// returned to the caller. When opts.RetryOnRateLimit is set, a rate-limit
// response triggers exactly one synchronous re-issue before giving up.
func (a *Adapter) Query(ctx context.Context, model string, c *chat.Chat, opts backend.Options) backend.Result {
	return a.query(ctx, model, c, opts, opts.RetryOnRateLimit)
}

func (a *Adapter) query(ctx context.Context, model string, c *chat.Chat, opts backend.Options, retryLeft bool) backend.Result {
	req := a.buildRequest(model, c, opts)

	reqCtx, cancel := context.WithTimeout(ctx, a.RequestTimeout(opts))
	defer cancel()

	var resp apiResponse
	if err := a.PostJSON(reqCtx, completionsPath, req, &resp); err != nil {
		kind := backend.ClassifyFailure(err)

		if kind == backend.FailureRateLimit && retryLeft {
			var rateErr *backend.RateLimitError
			if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
				a.Logger().Warn("openrouter rate limited, retrying once",
					"model", model, "stage", opts.Stage, "retry_after", rateErr.RetryAfter)
				if !sleepCtx(ctx, rateErr) {
					return backend.Absent()
				}
			} else {
				a.Logger().Warn("openrouter rate limited, retrying once",
					"model", model, "stage", opts.Stage)
			}
			return a.query(ctx, model, c, opts, false)
		}

		a.Logger().Error("openrouter query failed",
			"model", model, "stage", opts.Stage, "kind", kind, "error", err)
		return backend.Absent()
	}

	if len(resp.Choices) == 0 {
		a.Logger().Error("openrouter query failed",
			"model", model, "stage", opts.Stage, "kind", backend.FailureOther,
			"error", "empty choices in response")
		return backend.Absent()
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	choice := resp.Choices[0]
	return backend.Result{
		OK:        true,
		Content:   choice.Message.Content,
		Reasoning: choice.Message.ReasoningDetails,
	}
}

// sleepCtx waits out the rate limit's Retry-After window. Returns false if
// the context ended first.
func sleepCtx(ctx context.Context, rateErr *backend.RateLimitError) bool {
	t := time.NewTimer(rateErr.RetryAfter)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// --- request types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Stream      bool         `json:"stream"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string for text-only turns, []apiPart for multi-modal
}

type apiPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *apiImageURL `json:"image_url,omitempty"`
}

type apiImageURL struct {
	URL string `json:"url"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role             string          `json:"role"`
	Content          string          `json:"content"`
	ReasoningDetails json.RawMessage `json:"reasoning_details,omitempty"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(model string, c *chat.Chat, opts backend.Options) apiRequest {
	req := apiRequest{
		Model:       model,
		Stream:      false,
		Temperature: opts.Temperature,
	}

	for _, m := range c.Messages() {
		req.Messages = append(req.Messages, encodeMessage(m))
	}

	return req
}

// encodeMessage keeps text-only turns as plain string content and expands
// multi-modal turns into a typed part array, input order preserved.
func encodeMessage(m message.Message) apiMessage {
	if m.IsTextOnly() {
		return apiMessage{Role: m.Role.String(), Content: m.TextContent()}
	}

	parts := make([]apiPart, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			parts = append(parts, apiPart{Type: "text", Text: v.Text})
		case content.Image:
			parts = append(parts, apiPart{Type: "image_url", ImageURL: &apiImageURL{URL: v.URL}})
		}
	}

	return apiMessage{Role: m.Role.String(), Content: parts}
}
