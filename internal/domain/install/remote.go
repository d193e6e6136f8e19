package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Downloader streams remote archives to temporary files.
type Downloader struct {
	// Client is the HTTP client; a nil client gets a timeout-bounded default.
	Client *http.Client
}

// NewDownloader creates a downloader with a bounded default client.
func NewDownloader() *Downloader {
	return &Downloader{
		Client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Download fetches url into a fresh temporary directory and returns the file
// path plus a cleanup function. The cleanup must run even when the caller's
// subsequent steps fail; nothing of the download survives an aborted install.
func (d *Downloader) Download(ctx context.Context, url string) (string, func(), error) {
	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	dir := filepath.Join(os.TempDir(), "modkit-download-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("creating download directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	target := filepath.Join(dir, downloadFileName(url))
	out, err := os.Create(target)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("creating download file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		cleanup()
		return "", nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing download file: %w", err)
	}
	return target, cleanup, nil
}

// downloadFileName derives a safe local filename from the URL path.
func downloadFileName(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "plugin" + ArchiveSuffix
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "plugin" + ArchiveSuffix
	}
	if !strings.HasSuffix(name, ArchiveSuffix) {
		name += ArchiveSuffix
	}
	return name
}
