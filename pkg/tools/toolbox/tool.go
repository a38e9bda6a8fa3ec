package toolbox

import (
	"context"
	"encoding/json"
)

// Class groups tools by eligibility policy.
type Class int

const (
	// ClassAlways tools run on every query, independent of query content.
	ClassAlways Class = iota

	// ClassSearch tools run only for queries carrying search intent, and at
	// most one of them runs per query, chosen by Priority.
	ClassSearch
)

// Handler executes a tool with structured JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// FreeformHandler executes a tool with the raw query string.
type FreeformHandler func(ctx context.Context, query string) (string, error)

// Tool is an executable tool. A tool exposes up to two invocation methods:
// the structured Handler and the FreeformHandler fallback. Which one is used
// is fixed by what the instance provides at registration, not probed per
// call: Handler wins when both are set.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Class       Class
	Priority    int // among ClassSearch tools, lower strictly pre-empts higher
	Handler     Handler
	Freeform    FreeformHandler
}

// Runnable reports whether the tool has at least one invocation method.
func (t Tool) Runnable() bool {
	return t.Handler != nil || t.Freeform != nil
}
