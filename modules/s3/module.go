// Package s3 provides the `s3_upload` action, which PUTs a build artifact to
// a pre-signed object storage URL.
package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/modules/http_client"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client sends the upload. Nil means the shared http_client.
	Client *http.Client
}

// Input defines the arguments for the s3_upload action.
type Input struct {
	SourcePath  string `stagegrid:"source_path"`
	UploadURL   string `stagegrid:"upload_url"`
	ContentType string `stagegrid:"content_type,optional"`
}

// Run uploads the file at SourcePath.
func (m *Module) Run(ctx context.Context, _ action.Env, input *Input) action.Result {
	logger := ctxlog.FromContext(ctx).With("action", "s3_upload")

	file, err := os.Open(input.SourcePath)
	if err != nil {
		return action.Failf("failed to open source file '%s': %w", input.SourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return action.Failf("failed to get file stats for '%s': %w", input.SourcePath, err)
	}
	if stat.IsDir() {
		return action.Failf("source '%s' is a directory", input.SourcePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, input.UploadURL, file)
	if err != nil {
		return action.Failf("failed to create upload request: %w", err)
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(input.SourcePath))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file", "source", input.SourcePath, "size", stat.Size(), "contentType", contentType)

	client := m.Client
	if client == nil {
		client = http_client.Shared()
	}
	resp, err := client.Do(req)
	if err != nil {
		return action.Failf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return action.Fail(fmt.Errorf("upload failed with status: %s", resp.Status))
	}
	logger.Info("Successfully uploaded file", "status", resp.Status)
	return action.Ok()
}

// Register registers the s3_upload action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("s3_upload", registry.NewAction("Uploads a file to a pre-signed URL.", m.Run))
}
