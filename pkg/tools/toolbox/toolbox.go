// Package toolbox holds the registry of external capability tools available
// to the tool gate.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolBox is an ordered tool registry. Registration order is preserved so
// that gate policy over same-class tools is deterministic.
type ToolBox struct {
	tools map[string]Tool
	order []string
}

// New creates an empty ToolBox.
func New() *ToolBox {
	return &ToolBox{tools: make(map[string]Tool)}
}

// Register adds one or more tools. Re-registering a name replaces the tool in
// place without changing its position.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		if _, ok := tb.tools[t.Name]; !ok {
			tb.order = append(tb.order, t.Name)
		}
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name and whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Tools returns all registered tools in registration order.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.order))
	for _, name := range tb.order {
		result = append(result, tb.tools[name])
	}
	return result
}

// ByClass returns the tools of the given class in registration order.
func (tb *ToolBox) ByClass(c Class) []Tool {
	var result []Tool
	for _, name := range tb.order {
		if t := tb.tools[name]; t.Class == c {
			result = append(result, t)
		}
	}
	return result
}

// Merge registers all tools from another ToolBox into this one.
func (tb *ToolBox) Merge(other *ToolBox) {
	for _, name := range other.order {
		tb.Register(other.tools[name])
	}
}

// Invoke runs a tool against a user query using its preferred invocation
// method: the structured handler with the query wrapped as {"query": ...},
// falling back to the freeform handler when no structured handler exists.
func (tb *ToolBox) Invoke(ctx context.Context, t Tool, query string) (string, error) {
	if t.Handler != nil {
		input, err := json.Marshal(map[string]string{"query": query})
		if err != nil {
			return "", fmt.Errorf("toolbox: marshal query for %s: %w", t.Name, err)
		}
		return t.Handler(ctx, input)
	}

	if t.Freeform != nil {
		return t.Freeform(ctx, query)
	}

	return "", fmt.Errorf("toolbox: tool %s has no invocation method", t.Name)
}
