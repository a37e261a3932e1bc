package transport

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundBufferFIFOOrder(t *testing.T) {
	b := newOutboundBuffer(10, slog.Default())
	b.push([]byte("a"))
	b.push([]byte("b"))
	b.push([]byte("c"))

	require.Equal(t, 3, b.len())
	drained := b.drain()
	require.Len(t, drained, 3)
	assert.Equal(t, []byte("a"), drained[0])
	assert.Equal(t, []byte("b"), drained[1])
	assert.Equal(t, []byte("c"), drained[2])
	assert.Equal(t, 0, b.len())
}

func TestOutboundBufferDropsOldestOnOverflow(t *testing.T) {
	b := newOutboundBuffer(2, slog.Default())
	b.push([]byte("1"))
	b.push([]byte("2"))
	b.push([]byte("3"))

	drained := b.drain()
	require.Len(t, drained, 2)
	assert.Equal(t, []byte("2"), drained[0])
	assert.Equal(t, []byte("3"), drained[1])
}
