package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVideo(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "energia-solar-pt-BR.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4-bytes"), 0644))
	return path
}

func TestUploadDraftDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"flag off", Config{AccessToken: "t", OpenID: "o"}},
		{"missing token", Config{Enabled: true, OpenID: "o"}},
		{"missing open id", Config{Enabled: true, AccessToken: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTikTok(tt.cfg)
			assert.False(t, p.Enabled())

			result, err := p.UploadDraft(context.Background(), "does-not-matter.mp4", "title")
			require.NoError(t, err)
			assert.False(t, result.Sent)
			assert.NotEmpty(t, result.Reason)
		})
	}
}

func TestUploadDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/post/publish/inspection/", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "open-id", r.FormValue("open_id"))
		assert.Equal(t, "Energia Solar", r.FormValue("title"))

		file, header, err := r.FormFile("video")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "mp4-bytes", string(data))
		assert.Equal(t, "energia-solar-pt-BR.mp4", header.Filename)

		w.Write([]byte(`{"data":{"publish_id":"p-1"}}`))
	}))
	defer server.Close()

	p := NewTikTok(Config{Enabled: true, AccessToken: "token", OpenID: "open-id", BaseURL: server.URL + "/v2"})

	result, err := p.UploadDraft(context.Background(), writeVideo(t), "  Energia Solar ")
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Contains(t, result.Response, "data")
}

func TestUploadDraftAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"scope_not_authorized"}`, http.StatusForbidden)
	}))
	defer server.Close()

	p := NewTikTok(Config{Enabled: true, AccessToken: "token", OpenID: "open-id", BaseURL: server.URL})

	result, err := p.UploadDraft(context.Background(), writeVideo(t), "x")
	require.Error(t, err)
	assert.False(t, result.Sent)
	assert.Equal(t, http.StatusForbidden, result.Status)
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("ã", 300)
	assert.Len(t, []rune(Title(long)), 220)
	assert.Equal(t, "short", Title(" short "))
}
