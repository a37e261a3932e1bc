package transport

import (
	"log/slog"
	"sync"
)

// outboundBuffer is the pre-connect FIFO described in §4.B/§4.C: bounded,
// drop-oldest on overflow, with a logged warning. It only ever holds frames
// produced while the connection is not yet ready to accept ordinary
// traffic; the basicStartMessageSequence frames bypass it entirely (see
// Manager.sendImmediate).
type outboundBuffer struct {
	mu       sync.Mutex
	frames   [][]byte
	capacity int
	log      *slog.Logger
}

func newOutboundBuffer(capacity int, log *slog.Logger) *outboundBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &outboundBuffer{frames: make([][]byte, 0, 16), capacity: capacity, log: log}
}

// push appends frame, dropping the oldest buffered frame if at capacity.
func (b *outboundBuffer) push(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) >= b.capacity {
		dropped := b.frames[0]
		b.frames = b.frames[1:]
		b.log.Warn("outbound buffer full, dropping oldest frame", "droppedBytes", len(dropped), "capacity", b.capacity)
	}
	b.frames = append(b.frames, frame)
}

// drain returns every buffered frame in enqueue order and empties the
// buffer. Callers must write them to the wire before anything else.
func (b *outboundBuffer) drain() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.frames
	b.frames = make([][]byte, 0, 16)
	return out
}

// len reports the number of currently buffered frames.
func (b *outboundBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}
