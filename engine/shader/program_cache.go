package shader

import (
	"context"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/cache"
	"github.com/Carmen-Shannon/oxy-gl/engine/loader"
)

// ProgramCache loads and compiles programs once per Sources key.
type ProgramCache struct {
	compiler Compiler
	loader   loader.Loader
	programs *cache.Cache[string, *Program]
}

// NewProgramCache creates an empty cache that loads sources with l and compiles them with c.
//
// Parameters:
//   - c: the compiler
//   - l: the resource loader
//
// Returns:
//   - *ProgramCache: the new cache
func NewProgramCache(c Compiler, l loader.Loader) *ProgramCache {
	return &ProgramCache{
		compiler: c,
		loader:   l,
		programs: cache.New(cache.WithRelease[string](func(p *Program) { p.Release() })),
	}
}

// Load returns the program for src, loading and compiling it on first use.
// Failed loads and compilations are not cached.
//
// Parameters:
//   - ctx: cancels in-flight requests
//   - src: the stage locations
//
// Returns:
//   - *Program: the compiled program
//   - error: a load or compilation error
func (c *ProgramCache) Load(ctx context.Context, src Sources) (*Program, error) {
	key := src.Key()
	return c.programs.GetOrCreate(key, func() (*Program, error) {
		vertex, fragment, err := Load(ctx, c.loader, src)
		if err != nil {
			return nil, err
		}
		p, err := Compile(c.compiler, key, vertex, fragment)
		if err != nil {
			common.Logger().Warn("shader compilation failed", "key", key, "error", err)
			return nil, err
		}
		common.Logger().Debug("shader compiled", "key", key)
		return p, nil
	})
}

// LoadAsync runs Load on a new goroutine and reports the result to ready.
//
// Parameters:
//   - ctx: cancels in-flight requests
//   - src: the stage locations
//   - ready: called once with the program or the error
func (c *ProgramCache) LoadAsync(ctx context.Context, src Sources, ready func(*Program, error)) {
	go func() {
		ready(c.Load(ctx, src))
	}()
}

// Invalidate drops and releases the program for src so the next Load recompiles it.
func (c *ProgramCache) Invalidate(src Sources) bool {
	return c.programs.Invalidate(src.Key())
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	return c.programs.Len()
}

// Release releases every cached program.
func (c *ProgramCache) Release() {
	c.programs.Clear()
}
