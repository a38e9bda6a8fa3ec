// Package export renders finished council sessions and uploads them to a
// document store. The orchestration layer calls it after the query core has
// returned; nothing in the query path depends on this package.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Session is a finished council round ready for export.
type Session struct {
	Query     string
	Router    string
	CreatedAt time.Time
	Answers   []Answer
	Tools     []ToolRecord
}

// Answer is one model's contribution to the session.
type Answer struct {
	Model   string
	Content string
	Failed  bool
}

// ToolRecord is one tool invocation folded into the session's context.
type ToolRecord struct {
	Tool   string
	Output string
}

// UploadInfo describes the stored document.
type UploadInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// Uploader stores one rendered document.
type Uploader interface {
	Upload(ctx context.Context, filename, content, mimeType string) (*UploadInfo, error)
}

// HTTPUploader uploads documents to a drive-style HTTP endpoint using a
// multipart request: a JSON metadata part naming the file and target folder,
// then the media part.
type HTTPUploader struct {
	Endpoint string // full upload URL
	Token    string // bearer token
	FolderID string // target folder identifier
	Client   *http.Client
}

// Configured reports whether the uploader has enough settings to be used.
func (u *HTTPUploader) Configured() bool {
	return u.Endpoint != "" && u.FolderID != ""
}

// Upload stores the document and returns its metadata.
func (u *HTTPUploader) Upload(ctx context.Context, filename, content, mimeType string) (*UploadInfo, error) {
	if !u.Configured() {
		return nil, fmt.Errorf("export: uploader is not configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	meta := map[string]any{
		"name":    filename,
		"parents": []string{u.FolderID},
	}
	metaPart, err := mw.CreatePart(map[string][]string{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("export: metadata part: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, fmt.Errorf("export: encode metadata: %w", err)
	}

	mediaPart, err := mw.CreatePart(map[string][]string{
		"Content-Type": {mimeType},
	})
	if err != nil {
		return nil, fmt.Errorf("export: media part: %w", err)
	}
	if _, err := io.WriteString(mediaPart, content); err != nil {
		return nil, fmt.Errorf("export: write media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("export: finish multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("export: build request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	if u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("export: upload status %d: %s", resp.StatusCode, string(respBody))
	}

	var info UploadInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("export: decode response: %w", err)
	}

	return &info, nil
}
