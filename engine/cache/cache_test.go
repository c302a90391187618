package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate(t *testing.T) {
	c := New[string, int]()
	calls := 0
	create := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrCreate("a", create)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrCreate("a", create)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCreateErrorNotCached(t *testing.T) {
	c := New[string, int]()
	boom := errors.New("boom")

	_, err := c.GetOrCreate("a", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCreate("a", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestReleaseOnRemoval(t *testing.T) {
	var released []int
	c := New(WithRelease[string](func(v int) { released = append(released, v) }))

	c.Put("a", 1)
	c.Put("a", 2)
	assert.Equal(t, []int{1}, released)

	assert.True(t, c.Invalidate("a"))
	assert.False(t, c.Invalidate("a"))
	assert.Equal(t, []int{1, 2}, released)

	c.Put("b", 3)
	c.Put("c", 4)
	c.Clear()
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, released)
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	var released atomic.Int32
	c := New(WithRelease[int](func(*int) { released.Add(1) }))

	var wg sync.WaitGroup
	results := make([]*int, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCreate(1, func() (*int, error) {
				n := i
				return &n, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	winner, ok := c.Get(1)
	require.True(t, ok)
	for _, r := range results {
		assert.Same(t, winner, r)
	}
	assert.Equal(t, 1, c.Len())
	assert.LessOrEqual(t, int(released.Load()), len(results)-1)
}
