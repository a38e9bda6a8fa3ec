package websearch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/tools/toolbox"
)

// Exa is the fallback hosted search provider. It only runs when no Tavily
// provider is registered.
type Exa struct {
	backend.Client
}

// NewExa creates an Exa client.
// The baseURL should be "https://api.exa.ai" (no trailing slash).
func NewExa(baseURL, apiKey string) *Exa {
	e := &Exa{}
	e.BaseURL = baseURL
	e.Auth = backend.Auth{Key: apiKey, Header: "x-api-key"}

	return e
}

type exaRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Contents   struct {
		Text bool `json:"text"`
	} `json:"contents"`
}

type exaResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Text  string `json:"text"`
	} `json:"results"`
}

// Search runs one query against the Exa API.
func (e *Exa) Search(ctx context.Context, query string) ([]SearchResult, error) {
	req := exaRequest{Query: query, NumResults: maxResults}
	req.Contents.Text = true

	var resp exaResponse
	if err := e.PostJSON(ctx, "/search", req, &resp); err != nil {
		return nil, fmt.Errorf("exa: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Content: r.Text})
	}
	return results, nil
}

// Tool wraps the client as a search-class gate tool.
func (e *Exa) Tool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "exa_search",
		Description: "Search the web via the Exa API. Returns an array of {title, url, content}.",
		InputSchema: queryInputSchema,
		Class:       toolbox.ClassSearch,
		Priority:    PriorityExa,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			q, err := parseQueryInput("exa_search", input)
			if err != nil {
				return "", err
			}
			results, err := e.Search(ctx, q)
			if err != nil {
				return "", err
			}
			return marshalResults("exa_search", results)
		},
	}
}
