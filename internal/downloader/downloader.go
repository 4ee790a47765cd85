// Package downloader implements a small HTTP download manager with bounded
// parallelism and optional bearer-token authentication.
package downloader

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

// ProgressCallback is called with the number of bytes written so far and the
// total content length (-1 if unknown).
type ProgressCallback func(downloadedBytes, totalBytes int64)

// Manager coordinates downloads. Configure it with the chained setters and
// then call Download.
type Manager struct {
	client      *http.Client
	authToken   string
	semaphore   chan struct{}
	maxParallel int
}

// New creates a Manager with default settings.
func New() *Manager {
	return &Manager{
		client:      http.DefaultClient,
		maxParallel: 1,
	}
}

// MaxParallel limits the number of concurrent downloads through this Manager.
func (m *Manager) MaxParallel(n int) *Manager {
	if n < 1 {
		n = 1
	}
	m.maxParallel = n
	m.semaphore = nil
	return m
}

// WithAuthToken sets the bearer token sent with every request. An empty token
// disables authentication.
func (m *Manager) WithAuthToken(token string) *Manager {
	m.authToken = token
	return m
}

// WithClient replaces the underlying HTTP client.
func (m *Manager) WithClient(client *http.Client) *Manager {
	m.client = client
	return m
}

func (m *Manager) acquire() chan struct{} {
	if m.semaphore == nil {
		m.semaphore = make(chan struct{}, m.maxParallel)
	}
	return m.semaphore
}

// Download fetches url into filePath. The file is created (or truncated) and
// written as bytes arrive. Errors from the remote side are returned as-is, so
// the caller can distinguish a 404 from a transport failure.
func (m *Manager) Download(ctx context.Context, url, filePath string, progress ProgressCallback) error {
	sem := m.acquire()
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %q", url)
	}
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "fetching %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %q: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", filePath)
	}
	defer func() { _ = f.Close() }()

	var written int64
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return errors.Wrapf(err, "writing to %q", filePath)
			}
			written += int64(n)
			if progress != nil {
				progress(written, resp.ContentLength)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrapf(readErr, "reading body of %q", url)
		}
	}
	return nil
}
