package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringPoolInterningIsStable(t *testing.T) {
	h := New()
	sp := NewStringPool()

	h1 := sp.GetOrNew(h, "hello")
	h2 := sp.GetOrNew(h, "hello")
	require.Equal(t, h1, h2)

	h3 := sp.GetOrNew(h, "world")
	require.NotEqual(t, h1, h3)
}

func TestStringPoolContains(t *testing.T) {
	h := New()
	sp := NewStringPool()

	require.False(t, sp.Contains("hello"))
	sp.GetOrNew(h, "hello")
	require.True(t, sp.Contains("hello"))
}
