package sonicsv

import (
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// cacheLineSize is discovered once from the running CPU and used to round
// growable-buffer capacities up to a cache-line multiple, keeping the
// carryover buffer and field accumulator from straddling cache lines on
// every reallocation. Falls back to 64 (the near-universal x86/ARM64 line
// size) when the CPU package can't determine it.
var cacheLineSize = func() int {
	if n := cpuid.CPU.CacheLine; n > 0 {
		return n
	}
	return 64
}()

// growableBuffer is a bounded, reusable byte buffer backing both the
// cross-chunk carryover window and the escape-unfolded field accumulator.
// It grows by 1.5x-2x (never by a fixed increment, to keep amortized
// append cost constant) and refuses to grow past limit, returning
// ErrFieldTooLarge/ErrRowTooLarge territory to the caller instead.
type growableBuffer struct {
	data  []byte
	limit int
}

func newGrowableBuffer(initial, limit int) *growableBuffer {
	if initial > limit {
		initial = limit
	}
	return &growableBuffer{data: make([]byte, 0, initial), limit: limit}
}

// reset truncates the buffer to zero length without releasing capacity.
func (b *growableBuffer) reset() {
	b.data = b.data[:0]
}

// grow ensures at least extra more bytes of spare capacity are available,
// growing by the larger of 1.5x current capacity or the amount needed,
// rounded up to a cache-line multiple. Returns false if doing so would
// exceed limit.
func (b *growableBuffer) grow(extra int) bool {
	need := len(b.data) + extra
	if need > b.limit {
		return false
	}
	if need <= cap(b.data) {
		return true
	}
	newCap := cap(b.data) + cap(b.data)/2
	if newCap < need {
		newCap = need
	}
	if newCap > b.limit {
		newCap = b.limit
	}
	newCap = roundUpCacheLine(newCap)
	if newCap > b.limit {
		newCap = b.limit
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
	return true
}

// append appends p to the buffer, growing as needed. Returns false without
// modifying the buffer if growth would exceed limit.
func (b *growableBuffer) append(p []byte) bool {
	if !b.grow(len(p)) {
		return false
	}
	b.data = append(b.data, p...)
	return true
}

// appendByte appends a single byte, growing as needed.
func (b *growableBuffer) appendByte(c byte) bool {
	if !b.grow(1) {
		return false
	}
	b.data = append(b.data, c)
	return true
}

func (b *growableBuffer) len() int { return len(b.data) }

func (b *growableBuffer) bytes() []byte { return b.data }

func roundUpCacheLine(n int) int {
	if cacheLineSize <= 0 {
		return n
	}
	rem := n % cacheLineSize
	if rem == 0 {
		return n
	}
	return n + (cacheLineSize - rem)
}

// bufferPool recycles growableBuffers across Parser instances, cutting
// allocator pressure for short-lived Parsers (e.g. one per request in a
// server).
var bufferPool = sync.Pool{
	New: func() any {
		return newGrowableBuffer(defaultBufferHint, defaultMaxRowSize)
	},
}

func acquireBuffer(limit int) *growableBuffer {
	b := bufferPool.Get().(*growableBuffer)
	b.reset()
	b.limit = limit
	return b
}

func releaseBuffer(b *growableBuffer) {
	if cap(b.data) > 4*defaultBufferHint {
		// Don't let one oversized row permanently bloat the pool.
		return
	}
	bufferPool.Put(b)
}
