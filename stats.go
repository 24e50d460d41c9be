package sonicsv

import "sync/atomic"

// PerfCounters holds secondary, lower-level counters beyond csv_stats_t's
// own fields: csv_stats_t in the C original stops at throughput_mbps and
// simd_acceleration_used, but callers profiling a parse often want to know
// how often the tokenizer took its slow paths. Both counters here are
// exact, not sampled.
type PerfCounters struct {
	// CarryoverStashes counts ParseBuffer calls that ended with unconsumed
	// input stashed as carryover (an unquoted field, or a CR that might
	// pair with an LF, straddling the chunk boundary).
	CarryoverStashes uint64
	// AccumulatedFields counts fields emitted by copy from fieldAccum
	// (every quoted field) rather than as zero-copy windows into the
	// input.
	AccumulatedFields uint64
}

// Stats mirrors csv_stats_t from the C original, extended with Throughput,
// PeakMemory, and PerfCounters to match the fuller get_stats contract this
// module exposes. Obtained via Parser.Stats, never mutated directly by
// callers.
type Stats struct {
	BytesProcessed   uint64
	RowsParsed       uint64
	FieldsParsed     uint64
	ParseTimeNanos   uint64
	Throughput       float64 // bytes per second, derived from BytesProcessed/ParseTimeNanos
	SIMDFeaturesUsed uint32
	PeakMemory       uint64 // high-water mark of carryover+fieldAccum buffer capacity, in bytes
	ErrorCount       uint64
	PerfCounters     PerfCounters
}

// parserStats holds the live atomic counters a Parser updates during
// ParseBuffer. Fields are accessed only through atomic ops so that a
// caller may read Stats from another goroutine while a parse is in
// flight.
type parserStats struct {
	bytesProcessed    atomic.Uint64
	rowsParsed        atomic.Uint64
	fieldsParsed      atomic.Uint64
	parseTimeNanos    atomic.Uint64
	errorCount        atomic.Uint64
	simdFeatures      atomic.Uint32
	peakMemory        atomic.Uint64
	carryoverStashes  atomic.Uint64
	accumulatedFields atomic.Uint64
}

func (s *parserStats) snapshot() Stats {
	bytes := s.bytesProcessed.Load()
	nanos := s.parseTimeNanos.Load()
	var throughput float64
	if nanos > 0 {
		throughput = float64(bytes) / (float64(nanos) / 1e9)
	}
	return Stats{
		BytesProcessed:   bytes,
		RowsParsed:       s.rowsParsed.Load(),
		FieldsParsed:     s.fieldsParsed.Load(),
		ParseTimeNanos:   nanos,
		Throughput:       throughput,
		SIMDFeaturesUsed: s.simdFeatures.Load(),
		PeakMemory:       s.peakMemory.Load(),
		ErrorCount:       s.errorCount.Load(),
		PerfCounters: PerfCounters{
			CarryoverStashes:  s.carryoverStashes.Load(),
			AccumulatedFields: s.accumulatedFields.Load(),
		},
	}
}

func (s *parserStats) reset() {
	s.bytesProcessed.Store(0)
	s.rowsParsed.Store(0)
	s.fieldsParsed.Store(0)
	s.parseTimeNanos.Store(0)
	s.errorCount.Store(0)
	s.simdFeatures.Store(0)
	s.peakMemory.Store(0)
	s.carryoverStashes.Store(0)
	s.accumulatedFields.Store(0)
}

func (s *parserStats) addRow(fieldCount int) {
	s.rowsParsed.Add(1)
	s.fieldsParsed.Add(uint64(fieldCount))
}

// notePeakMemory updates the high-water mark if current exceeds it. Plain
// load-compare-CAS rather than a max helper: parserStats has no generic
// atomic max and this is the only caller.
func (s *parserStats) notePeakMemory(current uint64) {
	for {
		prev := s.peakMemory.Load()
		if current <= prev {
			return
		}
		if s.peakMemory.CompareAndSwap(prev, current) {
			return
		}
	}
}
