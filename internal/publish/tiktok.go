// Package publish uploads finished videos to TikTok as drafts. Uploading is
// opt-in: without the enable flag and both credentials nothing is sent.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxTitleRunes = 220

// Config holds TikTok upload settings
type Config struct {
	Enabled     bool
	AccessToken string
	OpenID      string
	BaseURL     string
	Timeout     time.Duration
}

// Result describes an upload attempt
type Result struct {
	Sent     bool                   `json:"sent"`
	Reason   string                 `json:"reason,omitempty"`
	Status   int                    `json:"status,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// TikTok uploads drafts through the TikTok open API
type TikTok struct {
	cfg    Config
	client *http.Client
}

// NewTikTok creates a TikTok publisher
func NewTikTok(cfg Config) *TikTok {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.tiktokapis.com/v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &TikTok{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether uploads will actually be sent
func (t *TikTok) Enabled() bool {
	return t.cfg.Enabled && t.cfg.AccessToken != "" && t.cfg.OpenID != ""
}

// UploadDraft sends the video at path as a draft. A disabled publisher
// returns a Result with Sent false and no error.
func (t *TikTok) UploadDraft(ctx context.Context, path, title string) (*Result, error) {
	if !t.Enabled() {
		return &Result{Sent: false, Reason: "upload disabled or credentials missing"}, nil
	}

	body, contentType, err := multipartBody(path, t.cfg.OpenID, Title(title))
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(t.cfg.BaseURL, "/") + "/post/publish/inspection/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.AccessToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok upload failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	result := &Result{Status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("tiktok API error (%d): %s", resp.StatusCode, truncate(string(raw), 500))
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result.Response); err != nil {
			return result, fmt.Errorf("failed to decode tiktok response: %w", err)
		}
	}
	result.Sent = true
	return result, nil
}

func multipartBody(path, openID, title string) (*bytes.Buffer, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open video: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("open_id", openID); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("title", title); err != nil {
		return nil, "", err
	}

	part, err := writer.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

// Title trims a caption to the length TikTok accepts
func Title(title string) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) > maxTitleRunes {
		runes = runes[:maxTitleRunes]
	}
	return string(runes)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
