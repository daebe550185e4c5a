// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BufferPool implements size-classed pooling of *Buffer so the connection
// layer reuses scratch space across async I/O tasks instead of
// allocating per recv/send. Grounded on the power-of-two size
// class table the teacher's BufferPoolManager used for WebSocket frames;
// the classes here are tuned down for control-plane message sizes.

package pool

import "sync"

// sizeClasses are the pooled buffer sizes, smallest to largest.
var sizeClasses = [...]int{
	64,
	256,
	1024,
	4096,
	16384,
	65536,
}

func sizeClassUpperBound(size int) int {
	for _, c := range sizeClasses {
		if size <= c {
			return c
		}
	}
	return sizeClasses[len(sizeClasses)-1]
}

// BufferPool pools Buffers by size class. A single instance is shared by
// the transport server's and client's connections.
type BufferPool struct {
	mu      sync.Mutex
	classes map[int][]*Buffer
}

// NewBufferPool constructs an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{classes: make(map[int][]*Buffer)}
}

// Get returns a Buffer sized at least size bytes, reused from the
// smallest size class at or above size's own class that has a released
// buffer available.
func (p *BufferPool) Get(size int) *Buffer {
	class := sizeClassUpperBound(size)

	p.mu.Lock()
	var b *Buffer
	for _, c := range sizeClasses {
		if c < class {
			continue
		}
		bucket := p.classes[c]
		if n := len(bucket); n > 0 {
			b = bucket[n-1]
			p.classes[c] = bucket[:n-1]
			break
		}
	}
	p.mu.Unlock()

	if b == nil {
		b = NewBuffer(class, NonShrinkable)
		b.owner = p
	}
	b.Realloc(size)
	return b
}

// put returns a buffer to its size class. Called by Buffer.Release.
func (p *BufferPool) put(b *Buffer) {
	class := sizeClassUpperBound(b.Cap())
	b.Realloc(0)
	b.data = make([]byte, 0, class)

	p.mu.Lock()
	p.classes[class] = append(p.classes[class], b)
	p.mu.Unlock()
}
