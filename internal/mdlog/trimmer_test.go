package mdlog

import "testing"

func TestTrimmer_ImmediateExpiryOfOldestSegment(t *testing.T) {
	streamer := newMemStreamer(1024)
	cache := newMemCache()
	lg := newTestLog(streamer, cache)
	lg.Create(func(error) {})

	lg.cfg.MaxSegments = 1

	lg.StartNewSegment(nil) // segment A
	segA := lg.segments.current()
	seg := make([]byte, 0)
	lg.Submit(NewGenericEvent(1, seg), nil)
	lg.StartNewSegment(nil) // segment B, becomes current

	if lg.SegmentCount() != 2 {
		t.Fatalf("SegmentCount() = %d, want 2", lg.SegmentCount())
	}

	lg.Trim()

	if lg.SegmentCount() != 1 {
		t.Fatalf("SegmentCount() after Trim() = %d, want 1 (oldest expired)", lg.SegmentCount())
	}
	// expire_pos advances to the offset of the segment that was just
	// trimmed (the new floor), not to the surviving segment's offset:
	// the surviving segment's own checkpoint is still needed on replay.
	if lg.ExpirePos() != segA.Offset {
		t.Fatalf("ExpirePos() = %d, want the trimmed segment's offset %d", lg.ExpirePos(), segA.Offset)
	}
}

func TestTrimmer_NeverTrimsCurrentSegmentUnlessCapped(t *testing.T) {
	streamer := newMemStreamer(1024)
	cache := newMemCache()
	lg := newTestLog(streamer, cache)
	lg.Create(func(error) {})

	lg.cfg.MaxEvents = 0
	lg.StartNewSegment(nil)

	lg.Trim()

	if lg.SegmentCount() != 1 {
		t.Fatalf("SegmentCount() = %d, want 1 (the only, current, segment must survive uncapped)", lg.SegmentCount())
	}

	lg.Cap()
	lg.Trim()

	if lg.SegmentCount() != 0 {
		t.Fatalf("SegmentCount() after Cap()+Trim() = %d, want 0", lg.SegmentCount())
	}
}

func TestTrimmer_BarrierDefersExpiry(t *testing.T) {
	streamer := newMemStreamer(1024)
	cache := newMemCache()
	lg := newTestLog(streamer, cache)
	lg.Create(func(error) {})

	lg.cfg.MaxSegments = 1

	lg.StartNewSegment(nil)
	oldest := lg.segments.current()
	barrier := &memBarrier{}
	cache.arm(oldest, barrier)

	lg.StartNewSegment(nil)

	lg.Trim()

	if lg.SegmentCount() != 2 {
		t.Fatalf("SegmentCount() = %d, want 2 (oldest still barred)", lg.SegmentCount())
	}
	if lg.TrimmingCount() != 1 {
		t.Fatalf("TrimmingCount() = %d, want 1", lg.TrimmingCount())
	}

	barrier.fire()

	if lg.SegmentCount() != 1 {
		t.Fatalf("SegmentCount() after barrier fires = %d, want 1", lg.SegmentCount())
	}
	if lg.TrimmingCount() != 0 {
		t.Fatalf("TrimmingCount() after barrier fires = %d, want 0", lg.TrimmingCount())
	}
}

func TestTrimmer_EmptyTableIsNoop(t *testing.T) {
	streamer := newMemStreamer(1024)
	lg := newTestLog(streamer, newMemCache())
	lg.Create(func(error) {})

	lg.Trim() // must not panic on an empty segment table
}
