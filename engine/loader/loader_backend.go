package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// loaderBackend reads a resource from one kind of location.
type loaderBackend interface {
	// Load reads the resource at location.
	//
	// Parameters:
	//   - ctx: cancels the read where the backend supports it
	//   - location: the resource location
	//
	// Returns:
	//   - []byte: the resource contents
	//   - error: error if reading fails
	Load(ctx context.Context, location string) ([]byte, error)
}

// StatusError reports an HTTP response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// fileLoaderBackendImpl reads local files, resolving relative paths against baseDir.
type fileLoaderBackendImpl struct {
	baseDir string
}

var _ loaderBackend = &fileLoaderBackendImpl{}

func newFileLoaderBackend(baseDir string) loaderBackend {
	return &fileLoaderBackendImpl{baseDir: baseDir}
}

func (b *fileLoaderBackendImpl) Load(_ context.Context, location string) ([]byte, error) {
	path := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, err
		}
		path = filepath.FromSlash(u.Path)
	}
	if b.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(b.baseDir, path)
	}
	return os.ReadFile(path)
}

// httpLoaderBackendImpl fetches http(s) URLs with GET.
type httpLoaderBackendImpl struct {
	client *http.Client
}

var _ loaderBackend = &httpLoaderBackendImpl{}

func newHTTPLoaderBackend(client *http.Client) loaderBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpLoaderBackendImpl{client: client}
}

func (b *httpLoaderBackendImpl) Load(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: location, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
