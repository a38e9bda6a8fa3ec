// Package router selects a backend client by router identifier and forwards
// query operations to it, so downstream stages can address "a model" without
// knowing which backend protocol it speaks.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/chats/chat"
	"github.com/quorumlabs/council/pkg/chats/content"
)

// Router identifies a backend protocol family. The set is closed: any value
// outside it is rejected at the boundary, never silently defaulted
// mid-pipeline.
type Router string

const (
	OpenRouter Router = "openrouter"
	Ollama     Router = "ollama"
)

// ErrUnknownRouter is returned for identifiers outside the closed set. It is
// a configuration error: it fails fast, before any network activity.
var ErrUnknownRouter = errors.New("router: unknown router")

// Parse maps a raw identifier to a Router, case-insensitively. Unlike
// Dispatcher.Normalize it has no default: the empty string is rejected too.
func Parse(s string) (Router, error) {
	switch Router(strings.ToLower(s)) {
	case OpenRouter:
		return OpenRouter, nil
	case Ollama:
		return Ollama, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRouter, s)
}

// Dispatcher routes query operations to the backend client matching a router
// identifier. It is constructed once at process start with its configuration
// and passed explicitly to whichever component needs it; there is no global
// instance.
type Dispatcher struct {
	clients map[Router]backend.Querier
	def     Router
	log     *slog.Logger
}

// NewDispatcher creates a Dispatcher over the two backend clients. The
// default router is used when a caller passes an empty identifier. A nil
// logger falls back to slog.Default.
func NewDispatcher(openRouter, ollama backend.Querier, def Router, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		clients: map[Router]backend.Querier{
			OpenRouter: openRouter,
			Ollama:     ollama,
		},
		def: def,
		log: log,
	}
}

// Normalize resolves a raw router identifier: case-insensitive match against
// the closed set, with the empty string falling back to the configured
// default. Normalize is idempotent.
func (d *Dispatcher) Normalize(s string) (Router, error) {
	if s == "" {
		return d.def, nil
	}
	return Parse(s)
}

// BuildMessageContent adapts the outbound message shape to the router's
// capability. The capability-rich backend receives multi-part content: the
// text part first, then one image part per supplied image, order preserved.
// The capability-poor backend receives only the text part; supplied images
// are dropped with a logged warning and the query still proceeds.
func (d *Dispatcher) BuildMessageContent(routerID, text string, images []content.Image) ([]content.Part, error) {
	rt, err := d.Normalize(routerID)
	if err != nil {
		return nil, err
	}

	if rt == OpenRouter {
		parts := make([]content.Part, 0, 1+len(images))
		parts = append(parts, content.Text{Text: text})
		for _, img := range images {
			parts = append(parts, img)
		}
		return parts, nil
	}

	if len(images) > 0 {
		d.log.Warn("ignoring images for text-only router",
			"router", rt, "count", len(images))
	}
	return []content.Part{content.Text{Text: text}}, nil
}

// querier returns the backend client for a normalized router.
func (d *Dispatcher) querier(rt Router) backend.Querier {
	return d.clients[rt]
}

// QueryModel forwards a single-model query to the selected backend.
// Options fields a backend does not use (e.g. the Stage label on the
// text-only backend) are forwarded and ignored there; that is a documented
// no-op, never an error.
func (d *Dispatcher) QueryModel(ctx context.Context, routerID, model string, c *chat.Chat, opts backend.Options) (backend.Result, error) {
	rt, err := d.Normalize(routerID)
	if err != nil {
		return backend.Result{}, err
	}
	return d.querier(rt).Query(ctx, model, c, opts), nil
}

// QueryModelsParallel queries all models concurrently on the selected
// backend and waits for every one to finish or fail. The returned set has an
// entry for every requested model.
func (d *Dispatcher) QueryModelsParallel(ctx context.Context, routerID string, models []string, c *chat.Chat, opts backend.Options) (*backend.ResultSet, error) {
	rt, err := d.Normalize(routerID)
	if err != nil {
		return nil, err
	}
	return backend.QueryMany(ctx, d.querier(rt), models, c, opts), nil
}

// QueryModelsStreaming starts all queries concurrently on the selected
// backend and returns a channel yielding completions in finish order.
func (d *Dispatcher) QueryModelsStreaming(ctx context.Context, routerID string, models []string, c *chat.Chat, opts backend.Options) (<-chan backend.Completion, error) {
	rt, err := d.Normalize(routerID)
	if err != nil {
		return nil, err
	}
	return backend.QueryManyStreaming(ctx, d.querier(rt), models, c, opts), nil
}

// QueryStage runs a quorum/timeout-bounded stage on the selected backend and
// logs how many models were abandoned when it returned early.
func (d *Dispatcher) QueryStage(ctx context.Context, routerID string, models []string, c *chat.Chat, stageTimeout time.Duration, minResults int, opts backend.Options) (*backend.ResultSet, error) {
	rt, err := d.Normalize(routerID)
	if err != nil {
		return nil, err
	}

	set := backend.QueryStage(ctx, d.querier(rt), models, c, stageTimeout, minResults, opts)

	if pending := len(models) - set.Len(); pending > 0 {
		d.log.Warn("stage returned before all models completed",
			"router", rt, "stage", opts.Stage,
			"completed", set.Len(), "abandoned", pending)
	}

	return set, nil
}
