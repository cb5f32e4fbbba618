package mdlog

import "testing"

func TestAppender_SubmitJournalsAndCounts(t *testing.T) {
	streamer := newMemStreamer(1024)
	lg := newTestLog(streamer, newMemCache())
	lg.Create(func(error) {})
	lg.StartNewSegment(nil)

	before := lg.NumEvents()

	var safeErr error
	called := false
	lg.Submit(NewGenericEvent(1, []byte("hello")), func(err error) {
		called = true
		safeErr = err
	})

	if !called {
		t.Fatal("expected onSafe to be invoked")
	}
	if safeErr != nil {
		t.Fatalf("onSafe error = %v", safeErr)
	}
	if lg.NumEvents() != before+1 {
		t.Fatalf("NumEvents() = %d, want %d", lg.NumEvents(), before+1)
	}
	if lg.segments.current().NumEvents != 2 {
		t.Fatalf("current segment NumEvents = %d, want 2 (checkpoint + event)", lg.segments.current().NumEvents)
	}
}

func TestAppender_WithoutCallbackCountsUnflushed(t *testing.T) {
	streamer := newMemStreamer(1024)
	lg := newTestLog(streamer, newMemCache())
	lg.Create(func(error) {})
	lg.StartNewSegment(nil)

	lg.Submit(NewGenericEvent(1, []byte("x")), nil)
	if lg.unflushed != 1 {
		t.Fatalf("unflushed = %d, want 1", lg.unflushed)
	}

	lg.Flush()
	if lg.unflushed != 0 {
		t.Fatalf("unflushed after Flush() = %d, want 0", lg.unflushed)
	}
}

func TestAppender_CrossingStripeStartsNewSegment(t *testing.T) {
	const period = 100
	streamer := newMemStreamer(period)
	lg := newTestLog(streamer, newMemCache())
	lg.Create(func(error) {})
	lg.StartNewSegment(nil)

	if lg.SegmentCount() != 1 {
		t.Fatalf("SegmentCount() = %d, want 1", lg.SegmentCount())
	}

	// Push writePos comfortably past half the stripe and across its
	// boundary so maybeStartNewSegment's two conditions both trip.
	payload := make([]byte, 100)
	lg.Submit(NewGenericEvent(1, payload), nil)

	if lg.SegmentCount() != 2 {
		t.Fatalf("SegmentCount() after crossing stripe = %d, want 2", lg.SegmentCount())
	}
}

func TestAppender_SubmitSurfacesStreamerError(t *testing.T) {
	streamer := newMemStreamer(1024)
	lg := newTestLog(streamer, newMemCache())
	lg.Create(func(error) {})
	lg.StartNewSegment(nil)

	streamer.failAppend = true

	var gotErr error
	lg.Submit(NewGenericEvent(1, []byte("x")), func(err error) { gotErr = err })

	if gotErr == nil {
		t.Fatal("expected Submit to surface the streamer's append error")
	}
}

func TestAppender_StartNewSegmentWhileWritingPanics(t *testing.T) {
	streamer := newMemStreamer(1024)
	lg := newTestLog(streamer, newMemCache())
	lg.Create(func(error) {})
	lg.writingSubtreeMap = true

	defer func() {
		if recover() == nil {
			t.Fatal("expected StartNewSegment to panic while a checkpoint is already in flight")
		}
	}()
	lg.StartNewSegment(nil)
}
