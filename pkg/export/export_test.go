package export_test

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/council/pkg/export"
)

func sampleSession() export.Session {
	return export.Session{
		Query:     "what is the capital of France?",
		Router:    "openrouter",
		CreatedAt: time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
		Answers: []export.Answer{
			{Model: "gpt-4o", Content: "Paris."},
			{Model: "llama3", Failed: true},
		},
		Tools: []export.ToolRecord{
			{Tool: "tavily_search", Output: `[{"title":"Paris"}]`},
		},
	}
}

func TestMarkdown(t *testing.T) {
	doc := export.Markdown(sampleSession())

	assert.Contains(t, doc, "# Council Session")
	assert.Contains(t, doc, "what is the capital of France?")
	assert.Contains(t, doc, "**Router:** openrouter")
	assert.Contains(t, doc, "### tavily_search")
	assert.Contains(t, doc, "### gpt-4o")
	assert.Contains(t, doc, "Paris.")
	assert.Contains(t, doc, "### llama3")
	assert.Contains(t, doc, "_No response (backend failure)._")
}

func TestMarkdown_NoTools(t *testing.T) {
	s := sampleSession()
	s.Tools = nil

	doc := export.Markdown(s)
	assert.NotContains(t, doc, "## Tool Context")
}

func TestHTTPUploader_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])

		// First part: JSON metadata naming the file and parent folder.
		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		var meta struct {
			Name    string   `json:"name"`
			Parents []string `json:"parents"`
		}
		require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))
		assert.Equal(t, "session.md", meta.Name)
		assert.Equal(t, []string{"folder-1"}, meta.Parents)

		// Second part: the document body.
		mediaPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/markdown", mediaPart.Header.Get("Content-Type"))
		body, err := io.ReadAll(mediaPart)
		require.NoError(t, err)
		assert.Equal(t, "# hello", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc-1","name":"session.md","webViewLink":"https://docs.example.com/doc-1"}`))
	}))
	defer srv.Close()

	u := &export.HTTPUploader{
		Endpoint: srv.URL,
		Token:    "tok-123",
		FolderID: "folder-1",
		Client:   srv.Client(),
	}

	info, err := u.Upload(context.Background(), "session.md", "# hello", "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", info.ID)
	assert.Equal(t, "https://docs.example.com/doc-1", info.WebViewLink)
}

func TestHTTPUploader_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	u := &export.HTTPUploader{
		Endpoint: srv.URL,
		FolderID: "folder-1",
		Client:   srv.Client(),
	}

	_, err := u.Upload(context.Background(), "f.md", "x", "text/markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "nope")
}

func TestHTTPUploader_NotConfigured(t *testing.T) {
	u := &export.HTTPUploader{}
	assert.False(t, u.Configured())

	_, err := u.Upload(context.Background(), "f.md", "x", "text/markdown")
	assert.ErrorContains(t, err, "not configured")

	u.Endpoint = "https://example.com"
	assert.False(t, u.Configured())

	u.FolderID = "f"
	assert.True(t, u.Configured())
}

func TestUploaderInterface(t *testing.T) {
	var _ export.Uploader = (*export.HTTPUploader)(nil)

	// Markdown output is stable input for any Uploader implementation.
	doc := export.Markdown(sampleSession())
	assert.True(t, strings.HasPrefix(doc, "# Council Session"))
}
