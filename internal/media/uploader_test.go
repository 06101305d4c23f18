package media

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func writeMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("frame data"), 0644))
	return path
}

func TestUploadSuccess(t *testing.T) {
	var gotAuth, gotFilename, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/media", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		gotBody = string(data)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/abc.jpg"})
	}))
	defer server.Close()

	uploader := NewUploader(server.URL, 5*time.Second, testLogger())

	url, err := uploader.Upload(context.Background(), writeMediaFile(t, "incident.jpg"), "test-token")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/abc.jpg", url)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "incident.jpg", gotFilename)
	assert.Equal(t, "frame data", gotBody)
}

func TestUploadMissingFile(t *testing.T) {
	uploader := NewUploader("http://127.0.0.1:1", time.Second, testLogger())

	_, err := uploader.Upload(context.Background(), "/nonexistent/clip.mp4", "token")
	assert.Error(t, err)
}

func TestUploadRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	uploader := NewUploader(server.URL, time.Second, testLogger())

	_, err := uploader.Upload(context.Background(), writeMediaFile(t, "clip.mp4"), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "413")
}

func TestUploadNoURLInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	uploader := NewUploader(server.URL, time.Second, testLogger())

	_, err := uploader.Upload(context.Background(), writeMediaFile(t, "clip.mp4"), "token")
	assert.Error(t, err)
}

func TestUploadName(t *testing.T) {
	tests := []struct {
		name      string
		mediaPath string
		want      string
	}{
		{name: "plain image", mediaPath: "/data/media/incident.jpg", want: "incident.jpg"},
		{name: "video keeps extension", mediaPath: "/data/media/clip.mp4", want: "clip.mp4"},
		{name: "relative path", mediaPath: "photo.png", want: "photo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uploadName(tt.mediaPath))
		})
	}
}

func TestUploadNameGeneratedFallback(t *testing.T) {
	got := uploadName("")
	assert.True(t, strings.HasPrefix(got, "emergency_"))
	assert.True(t, strings.HasSuffix(got, ".jpg"))
}
