package http_client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/registry"
)

func TestRun_PostWithHeaders(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Build")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	m := &Module{Client: srv.Client()}
	res := m.Run(context.Background(), action.Env{}, &Input{
		URL:     srv.URL,
		Method:  "post",
		Headers: map[string]string{"X-Build": "42"},
		Body:    `{"ok":true}`,
	})

	assert.Equal(t, action.StatusOK, res.Status)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "42", gotHeader)
	assert.Equal(t, `{"ok":true}`, gotBody)
}

func TestRun_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deploy locked", http.StatusConflict)
	}))
	defer srv.Close()

	m := &Module{Client: srv.Client()}
	res := m.Run(context.Background(), action.Env{}, &Input{URL: srv.URL, Method: http.MethodGet})

	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Error(), "409")
	assert.Contains(t, res.Err.Error(), "deploy locked")
}

func TestRun_ExpectStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := &Module{Client: srv.Client()}
	res := m.Run(context.Background(), action.Env{}, &Input{URL: srv.URL, Method: http.MethodGet, ExpectStatus: []int{404}})

	assert.Equal(t, action.StatusOK, res.Status)
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := &Module{Client: srv.Client()}
	start := time.Now()
	res := m.Run(context.Background(), action.Env{}, &Input{URL: srv.URL, Method: http.MethodGet, Timeout: "50ms"})

	assert.True(t, res.Failed())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_InvalidTimeout(t *testing.T) {
	res := (&Module{}).Run(context.Background(), action.Env{}, &Input{URL: "http://localhost", Timeout: "soon"})
	require.True(t, res.Failed())
	assert.Contains(t, res.Err.Error(), "invalid timeout")
}

func TestShared_ReturnsSameClient(t *testing.T) {
	assert.Same(t, Shared(), Shared())
	assert.Equal(t, DefaultTimeout, Shared().Timeout)
}

func TestRegister_DefaultsMethod(t *testing.T) {
	r := registry.Load(&Module{})
	h, ok := r.Action("http_request")
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, h.NewInput().(*Input).Method)
	require.NoError(t, r.ValidateRegistry(context.Background()))
}
