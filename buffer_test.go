package sonicsv

import "testing"

func TestGrowableBufferAppend(t *testing.T) {
	b := newGrowableBuffer(4, 64)
	if !b.append([]byte("ab")) {
		t.Fatal("append within capacity should succeed")
	}
	if !b.append([]byte("cdefgh")) {
		t.Fatal("append requiring growth should succeed")
	}
	if got := string(b.bytes()); got != "abcdefgh" {
		t.Fatalf("got %q, want %q", got, "abcdefgh")
	}
}

func TestGrowableBufferRespectsLimit(t *testing.T) {
	b := newGrowableBuffer(4, 8)
	if !b.append([]byte("12345678")) {
		t.Fatal("append exactly at limit should succeed")
	}
	if b.append([]byte("9")) {
		t.Fatal("append past limit should fail")
	}
	if got := string(b.bytes()); got != "12345678" {
		t.Fatalf("buffer mutated after failed append: got %q", got)
	}
}

func TestGrowableBufferResetKeepsCapacity(t *testing.T) {
	b := newGrowableBuffer(4, 64)
	b.append([]byte("hello world"))
	cap1 := cap(b.bytes())
	b.reset()
	if b.len() != 0 {
		t.Fatal("reset should zero length")
	}
	b.append([]byte("hi"))
	if cap(b.bytes()) != cap1 {
		t.Fatalf("reset should not shrink capacity: got %d, want %d", cap(b.bytes()), cap1)
	}
}

func TestAcquireReleaseBufferRoundTrip(t *testing.T) {
	b := acquireBuffer(64)
	if b.len() != 0 {
		t.Fatal("acquired buffer should start empty")
	}
	b.append([]byte("leftover"))
	releaseBuffer(b)

	b2 := acquireBuffer(128)
	if b2.len() != 0 {
		t.Fatal("acquireBuffer must reset the buffer before handing it back out")
	}
	if b2.limit != 128 {
		t.Fatalf("acquireBuffer should apply the requested limit, got %d", b2.limit)
	}
}

func TestReleaseBufferDropsOversized(t *testing.T) {
	big := newGrowableBuffer(8, 16*1024*1024)
	big.append(make([]byte, 8*defaultBufferHint))
	// Should not panic; an oversized buffer is simply not pooled.
	releaseBuffer(big)
}

// TestGrowEnforcesLimitEvenWithSpareCapacity guards against a buffer that
// already has more backing capacity than its current limit (e.g. reused
// from the pool after a prior, larger-limit Parser) silently accepting an
// append that should be rejected, since the capacity check must never
// short-circuit ahead of the limit check.
func TestGrowEnforcesLimitEvenWithSpareCapacity(t *testing.T) {
	b := newGrowableBuffer(64, 64) // cap already 64, well above the limit below
	b.limit = 8
	if b.append([]byte("123456789")) {
		t.Fatal("append exceeding limit should fail even when spare capacity covers it")
	}
	if b.len() != 0 {
		t.Fatalf("buffer mutated after failed append: len=%d", b.len())
	}
}

func TestRoundUpCacheLine(t *testing.T) {
	saved := cacheLineSize
	cacheLineSize = 64
	defer func() { cacheLineSize = saved }()

	cases := map[int]int{0: 0, 1: 64, 64: 64, 65: 128, 128: 128}
	for in, want := range cases {
		if got := roundUpCacheLine(in); got != want {
			t.Errorf("roundUpCacheLine(%d) = %d, want %d", in, got, want)
		}
	}
}
