package http_transfer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the toolchain.Module interface for this package.
type Module struct {
	// Client overrides the shared client, mainly for tests.
	Client *http.Client
}

// defaultClient is shared by every transfer to reuse TCP connections.
var defaultClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// DownloadArgs defines the arguments of the 'download' action.
type DownloadArgs struct {
	URL     *string `cty:"url"`
	Dest    *string `cty:"dest"`
	Timeout *string `cty:"timeout"`
}

// UploadArgs defines the arguments of the 'upload' action, e.g. a PUT to a
// pre-signed object storage URL.
type UploadArgs struct {
	Source  *string `cty:"source"`
	URL     *string `cty:"url"`
	Method  *string `cty:"method"`
	Timeout *string `cty:"timeout"`
}

func parseTimeout(raw *string) (time.Duration, error) {
	if raw == nil || *raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}
	return d, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// newDownload is the factory for the 'download' action. The response body
// of a GET request is written to dest.
func (m *Module) newDownload(raw cty.Value) (toolchain.Func, error) {
	var args DownloadArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	url, err := toolchain.RequireString("url", args.URL)
	if err != nil {
		return nil, err
	}
	dest, err := toolchain.RequireString("dest", args.Dest)
	if err != nil {
		return nil, err
	}
	timeout, err := parseTimeout(args.Timeout)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, inv toolchain.Invocation) error {
		logger := ctxlog.FromContext(ctx).With("task", inv.Task, "action", "download")
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		logger.Info("Downloading file.", "url", url)
		resp, err := m.client().Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download failed with status: %s", resp.Status)
		}

		path := resolve(inv.Dir, dest)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		tmp := path + ".part"
		out, err := os.Create(tmp)
		if err != nil {
			return err
		}
		n, err := io.Copy(out, resp.Body)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to read response body: %w", err)
		}
		logger.Debug("Download complete.", "dest", path, "bytes", n)
		return os.Rename(tmp, path)
	}, nil
}

// newUpload is the factory for the 'upload' action.
func (m *Module) newUpload(raw cty.Value) (toolchain.Func, error) {
	var args UploadArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	source, err := toolchain.RequireString("source", args.Source)
	if err != nil {
		return nil, err
	}
	url, err := toolchain.RequireString("url", args.URL)
	if err != nil {
		return nil, err
	}
	method := http.MethodPut
	if args.Method != nil && *args.Method != "" {
		method = *args.Method
	}
	timeout, err := parseTimeout(args.Timeout)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, inv toolchain.Invocation) error {
		logger := ctxlog.FromContext(ctx).With("task", inv.Task, "action", "upload")
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()

		path := resolve(inv.Dir, source)
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open source file '%s': %w", path, err)
		}
		defer file.Close()
		stat, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to get file stats for '%s': %w", path, err)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, file)
		if err != nil {
			return fmt.Errorf("failed to create upload request: %w", err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = stat.Size()

		logger.Info("Uploading file.", "source", path, "size", stat.Size(), "content_type", contentType)
		resp, err := m.client().Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute upload request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("upload failed with status: %s", resp.Status)
		}
		logger.Debug("Upload complete.", "status", resp.Status)
		return nil
	}, nil
}

func (m *Module) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return defaultClient
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Register registers the transfer action kinds.
func (m *Module) Register(t *toolchain.Toolchain) {
	t.Register("download", m.newDownload)
	t.Register("upload", m.newUpload)
}
