// Package websearch provides the redundant web search providers the tool
// gate chooses between: two hosted search APIs and a headless-Chrome
// fallback. Priorities are fixed and static; the gate never falls through
// from a failed higher-priority provider to a lower one.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/tools/toolbox"
)

// Provider priorities. Lower pre-empts higher.
const (
	PriorityTavily  = 0
	PriorityExa     = 1
	PriorityBrowser = 2
)

// maxResults caps the result count requested from hosted search APIs.
const maxResults = 5

// Tavily is the preferred hosted search provider.
type Tavily struct {
	backend.Client
}

// NewTavily creates a Tavily client.
// The baseURL should be "https://api.tavily.com" (no trailing slash).
func NewTavily(baseURL, apiKey string) *Tavily {
	t := &Tavily{}
	t.BaseURL = baseURL
	t.Auth = backend.Auth{Key: apiKey}

	return t
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one query against the Tavily API.
func (t *Tavily) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var resp tavilyResponse
	if err := t.PostJSON(ctx, "/search", tavilyRequest{Query: query, MaxResults: maxResults}, &resp); err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	return resp.Results, nil
}

// Tool wraps the client as a search-class gate tool.
func (t *Tavily) Tool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "tavily_search",
		Description: "Search the web via the Tavily API. Returns an array of {title, url, content}.",
		InputSchema: queryInputSchema,
		Class:       toolbox.ClassSearch,
		Priority:    PriorityTavily,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			q, err := parseQueryInput("tavily_search", input)
			if err != nil {
				return "", err
			}
			results, err := t.Search(ctx, q)
			if err != nil {
				return "", err
			}
			return marshalResults("tavily_search", results)
		},
	}
}

// SearchResult is the normalized shape shared by all providers.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
}

var queryInputSchema = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"Search query"}},"required":["query"]}`)

type queryInput struct {
	Query string `json:"query"`
}

func parseQueryInput(tool string, input json.RawMessage) (string, error) {
	var in queryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", tool, err)
	}
	if in.Query == "" {
		return "", fmt.Errorf("%s: query is required", tool)
	}
	return in.Query, nil
}

func marshalResults(tool string, results []SearchResult) (string, error) {
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("%s: marshal: %w", tool, err)
	}
	return string(data), nil
}
