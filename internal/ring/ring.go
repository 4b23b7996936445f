// Package ring implements a lock-free single-producer single-consumer
// sample queue used to connect pipeline stages.
package ring

import "sync/atomic"

// DefaultCapacity is the reference ring capacity: 16384 samples per
// buffer, enough headroom for the largest stage chunk (960 samples)
// at any rate mismatch the pipeline is expected to absorb.
const DefaultCapacity = 16384

// noCopy marks a type as non-copyable for `go vet -copylocks`. Producer
// and Consumer embed it because the ring buffer's single-producer /
// single-consumer contract is only correct if each handle is used from
// exactly one goroutine and never duplicated.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer is a bounded FIFO of float32 samples. It is produced and
// consumed through the Producer/Consumer handles returned by Split;
// the Buffer itself is never used directly once split.
type Buffer struct {
	samples  []float32
	capacity uint64
	head     atomic.Uint64 // next write index (producer-owned)
	tail     atomic.Uint64 // next read index (consumer-owned)
	dropped  atomic.Uint64 // samples discarded on overrun
}

// New allocates a ring buffer of the given capacity (in samples).
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		samples:  make([]float32, capacity),
		capacity: uint64(capacity),
	}
}

// Split returns the producer and consumer handles for this buffer.
// Split must be called exactly once; the returned handles are the only
// valid way to push or pop samples.
func (b *Buffer) Split() (*Producer, *Consumer) {
	return &Producer{buf: b}, &Consumer{buf: b}
}

// Producer is the single writable endpoint of a Buffer.
type Producer struct {
	noCopy
	buf *Buffer
}

// Push appends one sample. On overrun it drops the incoming sample
// (drop-newest) and returns false; the caller never blocks.
func (p *Producer) Push(sample float32) bool {
	head := p.buf.head.Load()
	tail := p.buf.tail.Load()
	if head-tail >= p.buf.capacity {
		p.buf.dropped.Add(1)
		return false
	}
	p.buf.samples[head%p.buf.capacity] = sample
	p.buf.head.Store(head + 1)
	return true
}

// PushAll appends as many samples from src as fit, dropping the
// remainder (drop-newest) on overrun. Returns the number written.
func (p *Producer) PushAll(src []float32) int {
	written := 0
	for _, s := range src {
		if !p.Push(s) {
			continue
		}
		written++
	}
	return written
}

// Dropped returns the cumulative number of samples discarded on overrun.
func (p *Producer) Dropped() uint64 {
	return p.buf.dropped.Load()
}

// Consumer is the single readable endpoint of a Buffer.
type Consumer struct {
	noCopy
	buf *Buffer
}

// Pop removes and returns the oldest sample. ok is false when the
// buffer is drained (underrun); callers substitute silence.
func (c *Consumer) Pop() (sample float32, ok bool) {
	tail := c.buf.tail.Load()
	head := c.buf.head.Load()
	if tail == head {
		return 0, false
	}
	sample = c.buf.samples[tail%c.buf.capacity]
	c.buf.tail.Store(tail + 1)
	return sample, true
}

// OccupiedLen returns an approximate lower bound on the number of
// samples currently available to Pop. It is safe to call from the
// consumer goroutine to decide whether a full frame is ready.
func (c *Consumer) OccupiedLen() int {
	head := c.buf.head.Load()
	tail := c.buf.tail.Load()
	return int(head - tail)
}

// Drain pops up to len(dst) samples into dst, returning the count
// actually popped. It never blocks.
func (c *Consumer) Drain(dst []float32) int {
	n := 0
	for n < len(dst) {
		s, ok := c.Pop()
		if !ok {
			break
		}
		dst[n] = s
		n++
	}
	return n
}
