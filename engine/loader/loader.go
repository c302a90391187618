package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gl/common"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.Mutex

	workers int
	pool    worker.DynamicWorkerPool
	taskID  int
	closed  bool
	// inflight counts LoadAll calls with tasks on the pool. Close waits for it before stopping the pool.
	inflight sync.WaitGroup

	fileBackend loaderBackend
	httpBackend loaderBackend
}

// Loader reads resources such as shader sources and images from local paths or http(s) URLs.
// The backend is selected from the location's scheme. A Loader is safe for concurrent use.
type Loader interface {
	// Load reads one resource.
	//
	// Parameters:
	//   - ctx: cancels an in-flight HTTP request
	//   - location: a file path, file:// URL or http(s):// URL
	//
	// Returns:
	//   - []byte: the resource contents
	//   - error: a read error, a *StatusError for non-200 responses, or an unsupported scheme error
	Load(ctx context.Context, location string) ([]byte, error)

	// LoadAll reads every location concurrently on the loader's worker pool.
	// Results are returned in the order the locations were given.
	//
	// Parameters:
	//   - ctx: cancels in-flight HTTP requests
	//   - locations: the resources to read
	//
	// Returns:
	//   - [][]byte: the contents, index-aligned with locations
	//   - error: every failure joined with errors.Join, or nil
	LoadAll(ctx context.Context, locations ...string) ([][]byte, error)

	// Close waits for LoadAll calls already in progress, then stops the worker pool. Loads
	// after Close fail with ErrClosed.
	Close()
}

var _ Loader = &loader{}

// ErrClosed is returned by loads issued after Close.
var ErrClosed = errors.New("loader closed")

// NewLoader creates a Loader with its worker pool started.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          &sync.Mutex{},
		workers:     4,
		fileBackend: newFileLoaderBackend(""),
		httpBackend: newHTTPLoaderBackend(nil),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

func (l *loader) Load(ctx context.Context, location string) ([]byte, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	backend, err := l.resolveBackend(location)
	if err != nil {
		return nil, err
	}
	data, err := backend.Load(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", location, err)
	}
	common.Logger().Debug("resource loaded", "location", location, "bytes", len(data))
	return data, nil
}

func (l *loader) LoadAll(ctx context.Context, locations ...string) ([][]byte, error) {
	results := make([][]byte, len(locations))
	if len(locations) == 1 {
		data, err := l.Load(ctx, locations[0])
		results[0] = data
		return results, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	baseID := l.taskID
	l.taskID += len(locations)
	l.inflight.Add(1)
	l.mu.Unlock()
	defer l.inflight.Done()

	// Pool.Wait blocks until workers idle out, so a WaitGroup is the per-call barrier.
	errs := make([]error, len(locations))
	var wg sync.WaitGroup
	for i, location := range locations {
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID:      baseID + i,
			Payload: location,
			Do: func() (any, error) {
				defer wg.Done()
				results[i], errs[i] = l.Load(ctx, location)
				return results[i], errs[i]
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return results, err
	}
	return results, nil
}

func (l *loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	// A stopped pool drops queued tasks, which would strand their LoadAll callers.
	// Tasks that start from here on fail fast with ErrClosed.
	l.inflight.Wait()
	l.pool.Stop()
}

// resolveBackend selects the backend for a location by its URL scheme.
// Locations without a scheme, and Windows drive paths, are files.
func (l *loader) resolveBackend(location string) (loaderBackend, error) {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		return l.fileBackend, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l.httpBackend, nil
	case "file":
		return l.fileBackend, nil
	default:
		return nil, fmt.Errorf("unsupported resource scheme: %s", u.Scheme)
	}
}
