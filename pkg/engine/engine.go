// Package engine is the composition root: it assembles the backend clients,
// router dispatcher, tool gate, and exporter from configuration and exposes
// one council round as a single call.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/backend/ollama"
	"github.com/quorumlabs/council/pkg/backend/openrouter"
	"github.com/quorumlabs/council/pkg/chats/chat"
	"github.com/quorumlabs/council/pkg/chats/content"
	"github.com/quorumlabs/council/pkg/chats/message"
	"github.com/quorumlabs/council/pkg/chats/role"
	"github.com/quorumlabs/council/pkg/export"
	"github.com/quorumlabs/council/pkg/router"
	"github.com/quorumlabs/council/pkg/tools/calculator"
	"github.com/quorumlabs/council/pkg/tools/gate"
	"github.com/quorumlabs/council/pkg/tools/mcpclient"
	"github.com/quorumlabs/council/pkg/tools/toolbox"
	"github.com/quorumlabs/council/pkg/tools/websearch"
)

// Engine wires the council's components from configuration. It is built once
// at process start; the configuration is immutable thereafter.
type Engine struct {
	cfg        Config
	log        *slog.Logger
	dispatcher *router.Dispatcher
	box        *toolbox.ToolBox
	gate       *gate.Gate
	browser    *websearch.Browser
	mcpClients []*mcpclient.MCPClient
	uploader   *export.HTTPUploader
}

// New creates an Engine from the given configuration. It validates the
// config, builds both backend clients, registers the gate tools, and connects
// MCP clients. A nil logger falls back to slog.Default.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	def, err := router.Parse(cfg.DefaultRouter)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	openRouterClient := openrouter.New(cfg.Backends.OpenRouter.BaseURL, cfg.Backends.OpenRouter.APIKey)
	openRouterClient.Log = log
	ollamaClient := ollama.New(cfg.Backends.Ollama.BaseURL)
	ollamaClient.Log = log

	e := &Engine{
		cfg:        cfg,
		log:        log,
		dispatcher: router.NewDispatcher(openRouterClient, ollamaClient, def, log),
		box:        toolbox.New(),
	}

	e.box.Register(calculator.Tool())

	if cfg.Tools.Tavily.APIKey != "" {
		e.box.Register(websearch.NewTavily(cfg.Tools.Tavily.BaseURL, cfg.Tools.Tavily.APIKey).Tool())
	}
	if cfg.Tools.Exa.APIKey != "" {
		e.box.Register(websearch.NewExa(cfg.Tools.Exa.BaseURL, cfg.Tools.Exa.APIKey).Tool())
	}
	if cfg.Tools.Browser.Enabled {
		e.browser = websearch.NewBrowser(ctx)
		e.box.Register(e.browser.Tool())
	}

	for _, mc := range cfg.Tools.MCPServers {
		client, err := connectMCP(ctx, mc)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		e.mcpClients = append(e.mcpClients, client)

		tools, err := client.ListTools(ctx, toolbox.ClassAlways, 0)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: list tools: %w", mc.Name, err)
		}
		e.box.Register(tools...)
	}

	e.gate = gate.New(e.box, nil, log)

	if cfg.Export.Endpoint != "" {
		e.uploader = &export.HTTPUploader{
			Endpoint: cfg.Export.Endpoint,
			Token:    cfg.Export.Token,
			FolderID: cfg.Export.FolderID,
		}
	}

	return e, nil
}

func connectMCP(ctx context.Context, mc MCPConfig) (*mcpclient.MCPClient, error) {
	if mc.URL != "" {
		return mcpclient.NewSSE(ctx, mc.URL)
	}
	return mcpclient.New(ctx, mc.Command, mc.Args...)
}

// Dispatcher returns the router dispatcher.
func (e *Engine) Dispatcher() *router.Dispatcher { return e.dispatcher }

// Gate returns the tool gate.
func (e *Engine) Gate() *gate.Gate { return e.gate }

// Round is the outcome of one council round.
type Round struct {
	Query       string
	Router      router.Router
	Invocations []gate.Invocation
	Results     *backend.ResultSet
	StartedAt   time.Time
}

// Run executes one council round: the gate selects and runs eligible tools,
// their outputs are folded into the prompt, and the configured models are
// queried as one quorum-bounded stage. The returned Round has a result entry
// for every model that answered before the stage released; abandoned models
// are simply absent from it.
func (e *Engine) Run(ctx context.Context, routerID, query string, images []content.Image) (*Round, error) {
	rt, err := e.dispatcher.Normalize(routerID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	invocations := e.gate.SelectAndRun(ctx, query)

	parts, err := e.dispatcher.BuildMessageContent(string(rt), query, images)
	if err != nil {
		return nil, err
	}

	c := chat.New()
	if e.cfg.SystemPrompt != "" {
		c.Append(message.NewText("", role.System, e.cfg.SystemPrompt))
	}
	if toolCtx := toolContext(invocations); toolCtx != "" {
		c.Append(message.NewText("", role.System, toolCtx))
	}
	c.Append(message.New("user", role.User, parts...))

	opts := backend.Options{Stage: "council", RetryOnRateLimit: true}
	set, err := e.dispatcher.QueryStage(ctx, string(rt), e.cfg.Models, c,
		e.cfg.Stage.Timeout, e.cfg.Stage.MinResults, opts)
	if err != nil {
		return nil, err
	}

	return &Round{
		Query:       query,
		Router:      rt,
		Invocations: invocations,
		Results:     set,
		StartedAt:   started,
	}, nil
}

// toolContext renders successful tool outputs as a prompt block. Failed
// invocations contribute nothing.
func toolContext(invocations []gate.Invocation) string {
	var b strings.Builder
	for _, inv := range invocations {
		if inv.Err != nil {
			continue
		}
		fmt.Fprintf(&b, "Tool %s returned:\n%s\n\n", inv.Tool, inv.Output)
	}
	if b.Len() == 0 {
		return ""
	}
	return "Context from tools run against the user's query. Use it where relevant.\n\n" +
		strings.TrimRight(b.String(), "\n")
}

// Export renders a round as markdown and uploads it. It returns nil info when
// no export endpoint is configured.
func (e *Engine) Export(ctx context.Context, r *Round) (*export.UploadInfo, error) {
	if e.uploader == nil {
		return nil, nil
	}

	session := export.Session{
		Query:     r.Query,
		Router:    string(r.Router),
		CreatedAt: r.StartedAt,
	}
	for _, inv := range r.Invocations {
		if inv.Err != nil {
			continue
		}
		session.Tools = append(session.Tools, export.ToolRecord{Tool: inv.Tool, Output: inv.Output})
	}
	r.Results.Each(func(model string, res backend.Result) bool {
		session.Answers = append(session.Answers, export.Answer{
			Model:   model,
			Content: res.Content,
			Failed:  !res.OK,
		})
		return true
	})

	filename := "council-" + r.StartedAt.Format("20060102-150405") + ".md"

	return e.uploader.Upload(ctx, filename, export.Markdown(session), "text/markdown")
}

// Close shuts down MCP clients and the browser provider.
func (e *Engine) Close() error {
	var firstErr error
	for _, c := range e.mcpClients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.browser != nil {
		e.browser.Close()
	}
	return firstErr
}
