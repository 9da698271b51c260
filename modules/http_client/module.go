// Package http_client provides the `http_request` action and the pooled HTTP
// client it shares with other network-bound actions.
package http_client

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/registry"
)

// maxBodyInError is how much of an unexpected response body a failure carries.
const maxBodyInError = 512

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client sends the requests. Nil means Shared().
	Client *http.Client
}

// Input defines the arguments for the http_request action.
type Input struct {
	URL     string            `stagegrid:"url"`
	Method  string            `stagegrid:"method,optional"`
	Headers map[string]string `stagegrid:"headers,optional"`
	Body    string            `stagegrid:"body,optional"`
	// ExpectStatus lists accepted status codes. Empty accepts any 2xx.
	ExpectStatus []int  `stagegrid:"expect_status,optional"`
	Timeout      string `stagegrid:"timeout,optional"`
}

// SetDefaults implements registry.Defaulter.
func (in *Input) SetDefaults() {
	in.Method = http.MethodGet
}

// Run sends the request and checks the response status.
func (m *Module) Run(ctx context.Context, _ action.Env, input *Input) action.Result {
	logger := ctxlog.FromContext(ctx).With("action", "http_request", "method", input.Method, "url", input.URL)

	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return action.Failf("invalid timeout %q: %w", input.Timeout, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if input.Body != "" {
		body = strings.NewReader(input.Body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(input.Method), input.URL, body)
	if err != nil {
		return action.Failf("failed to create request: %w", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	client := m.Client
	if client == nil {
		client = Shared()
	}
	logger.Info("Making HTTP request")
	resp, err := client.Do(req)
	if err != nil {
		return action.Failf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)
	if accepted(resp.StatusCode, input.ExpectStatus) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return action.Ok()
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyInError))
	if s := strings.TrimSpace(string(snippet)); s != "" {
		return action.Failf("unexpected status %s: %s", resp.Status, s)
	}
	return action.Failf("unexpected status %s", resp.Status)
}

func accepted(code int, expect []int) bool {
	if len(expect) == 0 {
		return code >= 200 && code < 300
	}
	return slices.Contains(expect, code)
}

// Register registers the http_request action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("http_request", registry.NewAction("Sends an HTTP request and checks the response status.", m.Run))
}
