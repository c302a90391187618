package shader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Compiler = &device.WGPUDevice{}

type fakeModule struct {
	label    string
	code     string
	released bool
}

func (m *fakeModule) Release() {
	m.released = true
}

// fakeCompiler rejects any code containing "syntax error".
type fakeCompiler struct {
	mu      sync.Mutex
	modules []*fakeModule
}

func (c *fakeCompiler) CompileModule(label, code string) (common.Releaser, error) {
	if strings.Contains(code, "syntax error") {
		return nil, errors.New("syntax error")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m := &fakeModule{label: label, code: code}
	c.modules = append(c.modules, m)
	return m, nil
}

func (c *fakeCompiler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

func TestSourcesKey(t *testing.T) {
	s := Sources{Vertex: []string{"v1", "v2"}, Fragment: []string{"f1", "f2"}}
	assert.Equal(t, "v1|v2|f1|f2", s.Key())
	assert.Equal(t, []string{"v1", "v2"}, s.Vertex, "Key must not modify the sources")
}

func TestLoadConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"common.wgsl": "// common\n",
		"vs.wgsl":     "fn vs_main() {}\n",
		"fs.wgsl":     "fn fs_main() {}\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	l := loader.NewLoader(loader.WithBaseDir(dir))
	defer l.Close()

	vs, fs, err := Load(context.Background(), l, Sources{
		Vertex:   []string{"common.wgsl", "vs.wgsl"},
		Fragment: []string{"common.wgsl", "fs.wgsl"},
	})
	require.NoError(t, err)
	assert.Equal(t, "// common\nfn vs_main() {}\n", vs)
	assert.Equal(t, "// common\nfn fs_main() {}\n", fs)
}

func TestLoadRequiresBothStages(t *testing.T) {
	l := loader.NewLoader()
	defer l.Close()

	_, _, err := Load(context.Background(), l, Sources{Vertex: []string{"a.wgsl"}})
	assert.Error(t, err)
}

func TestProgramCacheHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vs.wgsl":
			fmt.Fprint(w, "vertex;")
		case "/fs.wgsl":
			fmt.Fprint(w, "fragment;")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := loader.NewLoader(loader.WithHTTPClient(srv.Client()))
	defer l.Close()
	c := &fakeCompiler{}
	programs := NewProgramCache(c, l)

	src := Sources{Vertex: []string{srv.URL + "/vs.wgsl"}, Fragment: []string{srv.URL + "/fs.wgsl"}}
	p, err := programs.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "vertex;", p.VertexSource)
	assert.Equal(t, "fragment;", p.FragmentSource)
	assert.Equal(t, src.Key(), p.Key)

	again, err := programs.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 2, c.count())

	_, err = programs.Load(context.Background(), Sources{
		Vertex:   []string{srv.URL + "/vs.wgsl"},
		Fragment: []string{srv.URL + "/missing.wgsl"},
	})
	var statusErr *loader.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 1, programs.Len())

	vs := p.Vertex.(*fakeModule)
	programs.Release()
	assert.True(t, vs.released)
	assert.Equal(t, 0, programs.Len())
}

func TestProgramCacheCompileError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vs.wgsl"), []byte("ok"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.wgsl"), []byte("syntax error"), 0o644))

	l := loader.NewLoader(loader.WithBaseDir(dir))
	defer l.Close()
	c := &fakeCompiler{}
	programs := NewProgramCache(c, l)

	_, err := programs.Load(context.Background(), Sources{Vertex: []string{"vs.wgsl"}, Fragment: []string{"bad.wgsl"}})
	assert.ErrorContains(t, err, "fragment error")
	assert.Equal(t, 0, programs.Len())

	require.Len(t, c.modules, 1)
	assert.True(t, c.modules[0].released, "the vertex module must be released when the fragment fails")
}

func TestProgramCacheLoadAsync(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vs.wgsl"), []byte("v"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fs.wgsl"), []byte("f"), 0o644))

	l := loader.NewLoader(loader.WithBaseDir(dir))
	defer l.Close()
	programs := NewProgramCache(&fakeCompiler{}, l)

	done := make(chan *Program, 1)
	programs.LoadAsync(context.Background(), Sources{Vertex: []string{"vs.wgsl"}, Fragment: []string{"fs.wgsl"}}, func(p *Program, err error) {
		assert.NoError(t, err)
		done <- p
	})
	p := <-done
	require.NotNil(t, p)
	assert.Equal(t, "v", p.VertexSource)

	assert.True(t, programs.Invalidate(Sources{Vertex: []string{"vs.wgsl"}, Fragment: []string{"fs.wgsl"}}))
	assert.True(t, p.Vertex == nil)
}
