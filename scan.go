package sonicsv

import (
	"math/bits"
	"sync"

	"golang.org/x/sys/cpu"
)

// featureBitmask mirrors sonicsv.h's CSV_SIMD_* flags: a bitmask of which
// accelerated scan backends are available on this process's CPU. It is
// probed exactly once behind a sync.Once, the same pattern a package-level
// init() caching a feature flag would use — except here the probe is lazy
// (first parser construction) rather than package init, since the probe
// result also feeds Stats and a cold package init would pay the cost even
// for callers who never construct a parser.
type featureBitmask uint32

const (
	featureNone  featureBitmask = 0
	featureSSE42 featureBitmask = 1 << 0
	featureAVX2  featureBitmask = 1 << 1
	featureNEON  featureBitmask = 1 << 2
	// featureSWAR marks the portable word-parallel fallback used on every
	// architecture regardless of the flags above. The hardware flags are
	// reported for observability (Stats.SIMDFeaturesUsed) even though the
	// scan kernel itself is the same SWAR loop everywhere; see DESIGN.md
	// for why true vector kernels are out of scope here.
	featureSWAR featureBitmask = 1 << 3
)

var (
	featuresOnce     sync.Once
	detectedFeatures featureBitmask
)

// detectFeatures probes the CPU exactly once per process and caches the
// result as a process-wide SIMD-feature bitmask, initialized exactly once
// (sync.Once gives us that guarantee without a hand-rolled CAS loop).
func detectFeatures() featureBitmask {
	featuresOnce.Do(func() {
		var f featureBitmask
		if cpu.X86.HasSSE42 {
			f |= featureSSE42
		}
		if cpu.X86.HasAVX2 {
			f |= featureAVX2
		}
		if cpu.ARM64.HasASIMD {
			f |= featureNEON
		}
		f |= featureSWAR
		detectedFeatures = f
	})
	return detectedFeatures
}

// scanThreshold is the minimum run length below which the scalar
// byte-at-a-time loop is used instead of the word-parallel one; short runs
// don't amortize the word-splat setup.
const scanThreshold = 16

const wordSize = 8 // bytes per uint64 word processed by the SWAR kernel

// scanStructural returns the offset of the first byte in data that equals
// any of b1..b4, or (len(data), false) if none is found. This is the
// `scan_structural` primitive. The tokenizer passes delimiter, LF and CR
// (with the delimiter repeated in the fourth slot); Writer passes
// delimiter, quote, LF and CR.
//
// The implementation is a portable word-parallel (SWAR) scan: it broadcasts
// each target byte across a uint64, XORs against 8 bytes of input at a
// time, and uses the classic bit trick for "does any byte in this word
// equal zero" to test all 8 candidate positions in one pass, the same
// divide-and-conquer idea as a movemask-and-ctz SIMD compare loop,
// generalized to an 8-wide SWAR compare so it needs no
// architecture-specific assembly.
func scanStructural(data []byte, b1, b2, b3, b4 byte) (int, bool) {
	n := len(data)
	if n == 0 {
		return 0, false
	}
	if n < scanThreshold {
		return scanScalar(data, b1, b2, b3, b4)
	}

	w1 := broadcastByte(b1)
	w2 := broadcastByte(b2)
	w3 := broadcastByte(b3)
	w4 := broadcastByte(b4)

	i := 0
	for ; i+wordSize <= n; i += wordSize {
		word := loadWord(data[i : i+wordSize])
		mask := hasZeroByte(word^w1) | hasZeroByte(word^w2) | hasZeroByte(word^w3) | hasZeroByte(word^w4)
		if mask != 0 {
			return i + firstZeroByteIndex(mask), true
		}
	}
	if i < n {
		if off, found := scanScalar(data[i:], b1, b2, b3, b4); found {
			return i + off, true
		}
	}
	return n, false
}

// quoteScan returns the offset of the next occurrence of quote in data, or
// (len(data), false) if absent. This is the §4.2 single-target
// specialization used to accelerate the body of a quoted field.
func quoteScan(data []byte, quote byte) (int, bool) {
	n := len(data)
	if n == 0 {
		return 0, false
	}
	if n < scanThreshold {
		for i := 0; i < n; i++ {
			if data[i] == quote {
				return i, true
			}
		}
		return n, false
	}
	w := broadcastByte(quote)
	i := 0
	for ; i+wordSize <= n; i += wordSize {
		word := loadWord(data[i : i+wordSize])
		if mask := hasZeroByte(word ^ w); mask != 0 {
			return i + firstZeroByteIndex(mask), true
		}
	}
	for ; i < n; i++ {
		if data[i] == quote {
			return i, true
		}
	}
	return n, false
}

// scanScalar is the byte-at-a-time fallback: one comparison chain per byte,
// used for short runs and for the sub-word tail of the vectorized loop.
func scanScalar(data []byte, b1, b2, b3, b4 byte) (int, bool) {
	for i, b := range data {
		if b == b1 || b == b2 || b == b3 || b == b4 {
			return i, true
		}
	}
	return len(data), false
}

// broadcastByte replicates b into all 8 byte lanes of a uint64, the SWAR
// equivalent of a SIMD broadcast/splat instruction.
func broadcastByte(b byte) uint64 {
	return 0x0101010101010101 * uint64(b)
}

// loadWord reads 8 bytes of data as a little-endian uint64. Byte order
// only needs to be internally consistent with firstZeroByteIndex below; it
// does not need to match the host's native endianness semantics for
// integers, since we never interpret the word as a number, only as 8
// independent byte lanes.
func loadWord(b []byte) uint64 {
	_ = b[7]
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

// hasZeroByte implements the well-known "does this word contain a zero
// byte" trick: the result has the high bit (0x80) of byte lane i set when
// lane i of v is zero (i.e. that input byte equaled the broadcast target it
// was XORed against). The lowest flagged lane is always a true zero; lanes
// above it can be flagged spuriously by borrow propagation, which is why
// callers only ever use the lowest flagged lane (firstZeroByteIndex).
func hasZeroByte(v uint64) uint64 {
	const lo = 0x0101010101010101
	const hi = 0x8080808080808080
	return (v - lo) &^ v & hi
}

// firstZeroByteIndex returns the lane index (0-7) of the lowest-addressed
// zero byte indicated by a hasZeroByte mask. Endianness must be handled
// explicitly here rather than relying on the host's native bit order:
// loadWord always places byte 0 of the slice in the lowest 8 bits, so
// TrailingZeros64/8 always yields the correct lane index regardless of
// host endianness.
func firstZeroByteIndex(mask uint64) int {
	return bits.TrailingZeros64(mask) / 8
}
