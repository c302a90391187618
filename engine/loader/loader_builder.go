package loader

import "net/http"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets how many resources LoadAll reads at once. Defaults to 4.
//
// Parameters:
//   - n: the worker count, values below 1 are raised to 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithBaseDir resolves relative file paths against dir.
//
// Parameters:
//   - dir: the base directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the base directory to a loader
func WithBaseDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.fileBackend = newFileLoaderBackend(dir)
	}
}

// WithHTTPClient sets the client used for http(s) locations. Defaults to http.DefaultClient.
//
// Parameters:
//   - client: the HTTP client
//
// Returns:
//   - LoaderBuilderOption: a function that applies the client to a loader
func WithHTTPClient(client *http.Client) LoaderBuilderOption {
	return func(l *loader) {
		l.httpBackend = newHTTPLoaderBackend(client)
	}
}
