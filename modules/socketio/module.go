// Package socketio provides the `socketio_emit` action, which sends a build
// notification over Socket.IO and can wait for a reply event.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the socketio_emit action.
type Input struct {
	URL       string         `stagegrid:"url"`
	Namespace string         `stagegrid:"namespace,optional"`
	Event     string         `stagegrid:"event"`
	Data      map[string]any `stagegrid:"data,optional"`
	// AwaitEvent, when set, keeps the connection open until the server
	// emits this event.
	AwaitEvent         string `stagegrid:"await_event,optional"`
	Timeout            string `stagegrid:"timeout,optional"`
	InsecureSkipVerify bool   `stagegrid:"insecure_skip_verify,optional"`
}

// SetDefaults implements registry.Defaulter.
func (in *Input) SetDefaults() {
	in.Namespace = "/"
	in.Timeout = "10s"
}

// Run connects, emits Event with Data and optionally waits for AwaitEvent.
func (m *Module) Run(ctx context.Context, _ action.Env, input *Input) action.Result {
	logger := ctxlog.FromContext(ctx).With("action", "socketio_emit", "url", input.URL, "event", input.Event)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	timeout, err := time.ParseDuration(input.Timeout)
	if err != nil {
		return action.Failf("invalid timeout %q: %w", input.Timeout, err)
	}
	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return action.Failf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return action.Failf("URL %q must be absolute", input.URL)
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetReconnection(false)
	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(input.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Info("Successfully connected", "namespace", input.Namespace, "sid", io.Id())
		payload, _ := json.Marshal(input.Data)
		logger.Info("Emitting event", "data", string(payload))
		if err := io.Emit(input.Event, input.Data); err != nil {
			finish(fmt.Errorf("failed to emit %q: %w", input.Event, err))
			return
		}
		if input.AwaitEvent == "" {
			finish(nil)
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				finish(fmt.Errorf("connection failed: %w", e))
				return
			}
		}
		finish(fmt.Errorf("connection failed"))
	})
	if input.AwaitEvent != "" {
		io.On(types.EventName(input.AwaitEvent), func(data ...any) {
			logger.Info("Received awaited event", "awaitEvent", input.AwaitEvent, "args", len(data))
			finish(nil)
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return action.Fail(ctx.Err())
		}
		if connected.Load() {
			return action.Failf("timed out after connecting while waiting for event '%s'", input.AwaitEvent)
		}
		return action.Failf("timed out while waiting for initial connection")
	case err := <-done:
		return action.FromError(err)
	}
}

// Register registers the socketio_emit action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("socketio_emit", registry.NewAction("Emits a Socket.IO event and optionally awaits a reply event.", m.Run))
}
