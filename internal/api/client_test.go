package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.BaseURL())
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, New(server.URL, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	assert.EqualError(t, err, "healthcheck returned status 500")
}

func TestHealthcheck_ServerDown(t *testing.T) {
	err := New("http://127.0.0.1:1", "").Healthcheck(context.Background())
	assert.Error(t, err)
}

func TestUpload(t *testing.T) {
	var form map[string]string
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		form = map[string]string{}
		for _, k := range []string{"secret", "filename", "name", "duration", "marks", "session"} {
			form[k] = r.FormValue(k)
		}

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "interview.sdam")
	require.NoError(t, os.WriteFile(path, []byte("document bytes"), 0o644))

	err := New(server.URL, "mysecret").Upload(context.Background(), path, UploadMetadata{
		Name:            "interview.sdam",
		DurationSeconds: 90.5,
		MarkCount:       3,
		SessionID:       "abc",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":   "mysecret",
		"filename": "interview.sdam",
		"name":     "interview.sdam",
		"duration": "90.50",
		"marks":    "3",
		"session":  "abc",
	}, form)
	assert.Equal(t, "document bytes", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.sdam", UploadMetadata{})
	assert.Error(t, err)
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "take.sdam")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	err := New(server.URL, "wrong-secret").Upload(context.Background(), path, UploadMetadata{})
	assert.EqualError(t, err, "upload returned status 403")
}
