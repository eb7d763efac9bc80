package capture

import "sync"

// Ring is a fixed-capacity FIFO of audio segments. Pushing into a full
// ring evicts the oldest segment.
type Ring struct {
	mu    sync.Mutex
	segs  [][]byte
	start int
	size  int
}

// NewRing creates a ring holding at most capacity segments.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{segs: make([][]byte, capacity)}
}

// Push appends a segment, evicting the oldest when full.
func (r *Ring) Push(seg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.segs)
	if r.size < capacity {
		r.segs[(r.start+r.size)%capacity] = seg
		r.size++
		return
	}
	r.segs[r.start] = seg
	r.start = (r.start + 1) % capacity
}

// Segments returns the buffered segments oldest first.
func (r *Ring) Segments() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.segs[(r.start+i)%len(r.segs)]
	}
	return out
}

// Len returns the number of buffered segments.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.segs)
}

// Reset drops every segment.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.segs)
	r.start, r.size = 0, 0
}
