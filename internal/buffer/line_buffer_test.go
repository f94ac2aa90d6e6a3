package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAppendAndLines(t *testing.T) {
	lb := NewLineBuffer(4)
	assert.Empty(t, lb.Lines())
	assert.Equal(t, 0, lb.Len())

	lb.Append("a")
	lb.Append("b")
	assert.Equal(t, []string{"a", "b"}, lb.Lines())
	assert.Equal(t, 2, lb.Len())
}

func TestWrapKeepsNewestLines(t *testing.T) {
	lb := NewLineBuffer(3)
	for i := 1; i <= 5; i++ {
		lb.Append(fmt.Sprintf("line-%d", i))
	}
	assert.Equal(t, []string{"line-3", "line-4", "line-5"}, lb.Lines())
	assert.Equal(t, 3, lb.Len())
	assert.Equal(t, 3, lb.Cap())
}

func TestLast(t *testing.T) {
	lb := NewLineBuffer(2)
	_, ok := lb.Last()
	assert.False(t, ok)

	lb.Append("x")
	last, ok := lb.Last()
	require.True(t, ok)
	assert.Equal(t, "x", last)

	lb.Append("y")
	lb.Append("z") // wraps
	last, ok = lb.Last()
	require.True(t, ok)
	assert.Equal(t, "z", last)
}

func TestClear(t *testing.T) {
	lb := NewLineBuffer(2)
	lb.Append("a")
	lb.Append("b")
	lb.Append("c")
	lb.Clear()
	assert.Empty(t, lb.Lines())
	assert.Equal(t, 0, lb.Len())
}

func TestConcurrentAppendAndRead(t *testing.T) {
	lb := NewLineBuffer(64)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				lb.Append(fmt.Sprintf("w%d-%d", w, i))
				lb.Lines()
				lb.Last()
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 64, lb.Len())
}
