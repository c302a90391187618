package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for i := range 8 {
		body := fmt.Sprintf("part%d;", i)
		mux.HandleFunc(fmt.Sprintf("/p%d.wgsl", i), func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	l := NewLoader(WithBaseDir(dir))
	defer l.Close()

	data, err := l.Load(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = l.Load(context.Background(), "file://"+filepath.ToSlash(filepath.Join(dir, "a.txt")))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = l.Load(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadHTTP(t *testing.T) {
	srv := newTestServer(t)
	l := NewLoader(WithHTTPClient(srv.Client()))
	defer l.Close()

	data, err := l.Load(context.Background(), srv.URL+"/p3.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "part3;", string(data))

	_, err = l.Load(context.Background(), srv.URL+"/missing.wgsl")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestLoadAllKeepsOrder(t *testing.T) {
	srv := newTestServer(t)
	l := NewLoader(WithWorkers(3), WithHTTPClient(srv.Client()))
	defer l.Close()

	var locations []string
	for i := 7; i >= 0; i-- {
		locations = append(locations, fmt.Sprintf("%s/p%d.wgsl", srv.URL, i))
	}

	results, err := l.LoadAll(context.Background(), locations...)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("part%d;", 7-i), string(r))
	}
}

func TestLoadAllJoinsErrors(t *testing.T) {
	srv := newTestServer(t)
	l := NewLoader(WithHTTPClient(srv.Client()))
	defer l.Close()

	results, err := l.LoadAll(context.Background(), srv.URL+"/p0.wgsl", srv.URL+"/nope.wgsl")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "part0;", string(results[0]))
	assert.Nil(t, results[1])
}

func TestUnsupportedScheme(t *testing.T) {
	l := NewLoader()
	defer l.Close()

	_, err := l.Load(context.Background(), "ftp://example.com/a.wgsl")
	assert.ErrorContains(t, err, "unsupported resource scheme")
}

func TestLoadAfterClose(t *testing.T) {
	l := NewLoader()
	l.Close()
	l.Close()

	_, err := l.Load(context.Background(), "a.txt")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = l.LoadAll(context.Background(), "a.txt", "b.txt")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseDuringLoadAll(t *testing.T) {
	started := make(chan struct{}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		time.Sleep(10 * time.Millisecond)
		fmt.Fprint(w, "ok")
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(WithWorkers(2), WithHTTPClient(srv.Client()))
	var locations []string
	for i := range 8 {
		locations = append(locations, fmt.Sprintf("%s/p%d.wgsl", srv.URL, i))
	}

	loadErr := make(chan error, 1)
	go func() {
		_, err := l.LoadAll(context.Background(), locations...)
		loadErr <- err
	}()
	<-started

	closed := make(chan struct{})
	go func() {
		l.Close()
		close(closed)
	}()

	select {
	case err := <-loadErr:
		if err != nil {
			assert.ErrorIs(t, err, ErrClosed, "locations not yet started fail once the loader closes")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("LoadAll never returned after Close")
	}
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close never returned")
	}

	_, err := l.LoadAll(context.Background(), locations...)
	assert.ErrorIs(t, err, ErrClosed)
}
