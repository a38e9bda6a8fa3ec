// Package gate decides, per user query, which external tools run and in what
// priority order, and normalizes their outputs for prompt assembly.
package gate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/quorumlabs/council/pkg/tools/toolbox"
)

// Invocation is one tool's contribution to a query. Output holds the tool's
// result serialized as JSON. A failed invocation of the chosen search tool
// carries Err and an empty Output; it never falls through to another
// provider.
type Invocation struct {
	Tool   string
	Output string
	Err    error
}

// IntentFunc classifies a query as carrying search intent. It must be
// deterministic; the gate calls it once per query.
type IntentFunc func(query string) bool

// searchSignals are the keyword heuristics behind the default search-intent
// classifier.
var searchSignals = []string{
	"latest", "news", "today", "current", "recent", "now",
	"this week", "this year", "price of", "weather",
	"search", "look up", "who is", "who won", "what happened",
}

// SearchIntent is the default deterministic keyword classifier.
func SearchIntent(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range searchSignals {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Gate applies the tool eligibility policy to one query at a time.
type Gate struct {
	box    *toolbox.ToolBox
	intent IntentFunc
	log    *slog.Logger
}

// New creates a Gate over a ToolBox. A nil intent falls back to SearchIntent;
// a nil logger falls back to slog.Default.
func New(box *toolbox.ToolBox, intent IntentFunc, log *slog.Logger) *Gate {
	if intent == nil {
		intent = SearchIntent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gate{box: box, intent: intent, log: log}
}

// SelectAndRun invokes the eligible tools for a query and returns their
// results in invocation order.
//
// Always-class tools run unconditionally, in registration order; one that
// fails is logged and yields no entry, and the remaining tools still run.
// Search-class tools run only when the query carries search intent, and
// exactly one is invoked: the registered provider with the lowest Priority
// value. A lower-priority provider is never attempted while a higher-priority
// one is registered, even if the chosen one fails; its failure is surfaced
// as its own error entry. The gate itself never returns an error.
func (g *Gate) SelectAndRun(ctx context.Context, query string) []Invocation {
	var out []Invocation

	for _, t := range g.box.ByClass(toolbox.ClassAlways) {
		result, err := g.box.Invoke(ctx, t, query)
		if err != nil {
			g.log.Warn("tool invocation failed", "tool", t.Name, "error", err)
			continue
		}
		out = append(out, Invocation{Tool: t.Name, Output: serialize(result)})
	}

	if !g.intent(query) {
		return out
	}

	search := g.box.ByClass(toolbox.ClassSearch)
	if len(search) == 0 {
		return out
	}

	chosen := pickPreferred(search)
	result, err := g.box.Invoke(ctx, chosen, query)
	if err != nil {
		g.log.Warn("search tool invocation failed", "tool", chosen.Name, "error", err)
		out = append(out, Invocation{Tool: chosen.Name, Err: err})
		return out
	}

	out = append(out, Invocation{Tool: chosen.Name, Output: serialize(result)})
	return out
}

// pickPreferred returns the search provider with the lowest Priority value;
// registration order breaks ties.
func pickPreferred(tools []toolbox.Tool) toolbox.Tool {
	sorted := make([]toolbox.Tool, len(tools))
	copy(sorted, tools)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted[0]
}

// serialize normalizes tool output to a JSON textual form. Output that is
// already valid JSON passes through unchanged; anything else is quoted as a
// JSON string.
func serialize(result string) string {
	if json.Valid([]byte(result)) {
		return result
	}
	quoted, err := json.Marshal(result)
	if err != nil {
		return result
	}
	return string(quoted)
}
