package s3

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
	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/registry"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_Upload(t *testing.T) {
	var gotMethod, gotType, gotBody string
	var gotLength int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotLength = r.ContentLength
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	src := writeArtifact(t, "report.json", `{"tests":12}`)
	m := &Module{Client: srv.Client()}
	res := m.Run(context.Background(), action.Env{}, &Input{SourcePath: src, UploadURL: srv.URL + "/bucket/report.json?sig=abc"})

	require.Equal(t, action.StatusOK, res.Status, "%v", res.Err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, int64(12), gotLength)
	assert.Equal(t, `{"tests":12}`, gotBody)
}

func TestRun_ExplicitContentType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	src := writeArtifact(t, "app.bin", "xyz")
	res := (&Module{Client: srv.Client()}).Run(context.Background(), action.Env{}, &Input{SourcePath: src, UploadURL: srv.URL, ContentType: "application/x-custom"})

	require.Equal(t, action.StatusOK, res.Status)
	assert.Equal(t, "application/x-custom", gotType)
}

func TestRun_RejectedUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := writeArtifact(t, "app.tar", "data")
	res := (&Module{Client: srv.Client()}).Run(context.Background(), action.Env{}, &Input{SourcePath: src, UploadURL: srv.URL})

	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Error(), "403")
}

func TestRun_MissingSource(t *testing.T) {
	res := (&Module{}).Run(context.Background(), action.Env{}, &Input{SourcePath: filepath.Join(t.TempDir(), "missing"), UploadURL: "http://localhost"})
	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Error(), "failed to open source file")
}

func TestRegister(t *testing.T) {
	r := registry.Load(&Module{})
	_, ok := r.Action("s3_upload")
	require.True(t, ok)
	require.NoError(t, r.ValidateRegistry(context.Background()))
}
