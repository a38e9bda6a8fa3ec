package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/quorumlabs/council/pkg/tools/toolbox"
)

// searchTimeout bounds one browser search round trip.
const searchTimeout = 30 * time.Second

// Browser is the last-resort search provider: a headless Chrome session
// scraping DuckDuckGo's HTML endpoint. Chrome starts lazily on first search
// and runs in incognito mode. It needs no API key, which is why deployments
// without a hosted search provider still get a working search tool.
type Browser struct {
	parentCtx context.Context

	mu          sync.Mutex
	started     bool
	browserCtx  context.Context
	browserDone context.CancelFunc
	allocDone   context.CancelFunc
}

// NewBrowser creates a Browser provider. The parentCtx is the root context
// for the Chrome process; cancelling it tears Chrome down.
func NewBrowser(parentCtx context.Context) *Browser {
	return &Browser{parentCtx: parentCtx}
}

// Close shuts down the Chrome process if it was started.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}

	b.browserDone()
	b.allocDone()
	b.browserDone = nil
	b.allocDone = nil
	b.browserCtx = nil
	b.started = false
}

// ensureBrowser lazily starts the Chrome process on first call.
func (b *Browser) ensureBrowser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return b.browserCtx, nil
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(b.parentCtx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force Chrome to start by running a noop.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser_search: start chrome: %w", err)
	}

	b.browserCtx = browserCtx
	b.browserDone = browserCancel
	b.allocDone = allocCancel
	b.started = true

	return b.browserCtx, nil
}

// Search loads the DuckDuckGo HTML results page for the query and extracts
// up to maxResults entries.
func (b *Browser) Search(_ context.Context, query string) ([]SearchResult, error) {
	bCtx, err := b.ensureBrowser()
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(bCtx, searchTimeout)
	defer cancel()

	ddgURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)

	var results []SearchResult
	err = chromedp.Run(opCtx,
		chromedp.Navigate(ddgURL),
		chromedp.WaitVisible(`.result`, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`
			(function() {
				var results = [];
				var items = document.querySelectorAll(".result");
				for (var i = 0; i < items.length && i < %d; i++) {
					var a = items[i].querySelector(".result__title a, .result__a");
					var s = items[i].querySelector(".result__snippet");
					if (a) {
						results.push({
							title: (a.textContent || "").trim(),
							url: a.href || "",
							content: s ? (s.textContent || "").trim() : ""
						});
					}
				}
				return results;
			})()
		`, maxResults), &results),
	)
	if err != nil {
		return nil, fmt.Errorf("browser_search: %w", err)
	}

	return results, nil
}

// Tool wraps the provider as a search-class gate tool.
func (b *Browser) Tool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "browser_search",
		Description: "Search the web with a headless Chrome browser via DuckDuckGo. Returns an array of {title, url, content}.",
		InputSchema: queryInputSchema,
		Class:       toolbox.ClassSearch,
		Priority:    PriorityBrowser,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			q, err := parseQueryInput("browser_search", input)
			if err != nil {
				return "", err
			}
			results, err := b.Search(ctx, q)
			if err != nil {
				return "", err
			}
			return marshalResults("browser_search", results)
		},
	}
}
