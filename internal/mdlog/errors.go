package mdlog

import "errors"

var (
	// ErrStreamerNotActive is returned by Replay when the streamer has not
	// completed recovery.
	ErrStreamerNotActive = errors.New("mdlog: streamer is not active")

	// ErrDecodeFailed is returned (and treated as fatal by callers) when an
	// entry read during replay does not decode cleanly.
	ErrDecodeFailed = errors.New("mdlog: failed to decode log entry")
)

// Precondition violations below are caller bugs, not recoverable errors: the
// spec calls these "fatal assertions" and expects the hosting process to
// crash rather than limp along with a torn journal. We panic, matching the
// teacher's convention of panicking on setup-time invariant violations
// (see localdisc.NewLocalDiscChunkService).

func panicCapped() {
	panic("mdlog: submit called on a capped log")
}

func panicEmptySegmentTable() {
	panic("mdlog: submit called with no current segment; call StartNewSegment first")
}

func panicWritingSubtreeMap() {
	panic("mdlog: StartNewSegment called while a subtree map checkpoint is already in flight")
}

func panicReplayAlreadyRunning() {
	panic("mdlog: replay already in progress")
}
