package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher opens raw asset bytes by path relative to the asset root.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// DirFetcher reads assets from a local directory.
type DirFetcher struct {
	root string
}

func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{root: root}
}

func (f *DirFetcher) Fetch(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean("/" + filepath.FromSlash(p))
	return os.Open(filepath.Join(f.root, clean))
}

// HTTPFetcher reads assets from a static file server.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, p string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+strings.TrimLeft(p, "/"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", p, resp.StatusCode)
	}
	return resp.Body, nil
}
