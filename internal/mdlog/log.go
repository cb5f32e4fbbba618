package mdlog

import (
	"sync"

	"github.com/sandfs/mdlog/internal/log_service"
)

// Log ties the segment table, the appender, the trimmer, and the replayer
// together under one coarse lock, exactly as MDLog does in the original:
// every public entry point here assumes that lock is held on entry and
// holds it on return. The lock is injected (WithLock) rather than owned,
// because in production it is the hosting metadata server's single big
// lock, shared with unrelated request handling; by default (no WithLock)
// a Log owns a private *sync.Mutex, which is enough for standalone use and
// for this package's own tests.
type Log struct {
	lock sync.Locker
	cond *sync.Cond

	streamer Streamer
	cache    Cache
	metrics  Metrics
	codec    EventCodec
	clock    Clock
	ls       log_service.LogService
	cfg      Config

	segments *segmentTable
	trimming map[*Segment]bool

	numEvents         int
	unflushed         int
	capped            bool
	writingSubtreeMap bool

	replaying     bool
	replayWaiters []func(error)
}

// Option configures a Log at construction time.
type Option func(*Log)

// WithLock supplies the coarse lock this Log's public methods assume is
// already held. Use this to share the hosting server's own lock.
func WithLock(l sync.Locker) Option {
	return func(lg *Log) { lg.lock = l }
}

// WithConfig supplies the tunables from section 6. Defaults to
// DefaultConfig() if not given.
func WithConfig(cfg Config) Option {
	return func(lg *Log) { lg.cfg = cfg }
}

// WithMetrics supplies the metric sink. Defaults to NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(lg *Log) { lg.metrics = m }
}

// WithCodec supplies the event payload codec used during replay. Defaults
// to NewCodec(nil) (recognizes only the SubtreeMap checkpoint, decodes
// everything else as GenericEvent).
func WithCodec(c EventCodec) Option {
	return func(lg *Log) { lg.codec = c }
}

// WithClock supplies the clock the trimmer bounds its work against.
// Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(lg *Log) { lg.clock = c }
}

// WithLogService supplies the structured logging sink. Defaults to a
// discarding implementation.
func WithLogService(ls log_service.LogService) Option {
	return func(lg *Log) { lg.ls = ls }
}

// New constructs a Log over streamer and cache. The log is not yet
// positioned anywhere; call Create, or Open followed by Append or Replay.
func New(streamer Streamer, cache Cache, opts ...Option) *Log {
	lg := &Log{
		streamer: streamer,
		cache:    cache,
		metrics:  NoopMetrics,
		codec:    NewCodec(nil),
		clock:    SystemClock,
		ls:       log_service.Discard,
		cfg:      DefaultConfig(),
		segments: newSegmentTable(),
		trimming: make(map[*Segment]bool),
	}
	for _, opt := range opts {
		opt(lg)
	}
	if lg.lock == nil {
		lg.lock = &sync.Mutex{}
	}
	lg.cond = sync.NewCond(lg.lock)
	return lg
}

// Create attaches a fresh, empty streamer: reset it and durably write its
// head. cb fires once the head write completes.
func (lg *Log) Create(cb func(error)) {
	lg.ls.Info(log_service.LogEvent{Message: "create empty log"})

	if err := lg.streamer.Reset(); err != nil {
		if cb != nil {
			cb(err)
		}
		return
	}
	lg.streamer.WriteHead(func(err error) {
		lg.metrics.SetExpirePos(lg.streamer.ExpirePos())
		lg.metrics.SetWritePos(lg.streamer.WritePos())
		if cb != nil {
			cb(err)
		}
	})
}

// Open attaches a streamer and requests recovery (discovering ReadPos and
// WritePos bounds). cb fires once recovery completes; Append or Replay may
// follow.
func (lg *Log) Open(cb func(error)) {
	lg.ls.Info(log_service.LogEvent{Message: "open: discovering log bounds"})
	lg.streamer.Recover(cb)
}

// Append positions the log at the tail for continued writing, with no
// replay obligation. The caller must invoke StartNewSegment before the
// first Submit: Append does not itself bootstrap a segment, matching the
// spec's documented ordering requirement.
func (lg *Log) Append() {
	wp := lg.streamer.WritePos()
	lg.streamer.SetReadPos(wp)
	lg.streamer.SetExpirePos(wp)
	lg.metrics.SetExpirePos(wp)

	lg.ls.Info(log_service.LogEvent{Message: "append: positioning at end", Metadata: map[string]any{"pos": wp}})
}

// Lock and Unlock expose the coarse lock every other public method here
// assumes is already held. A hosting server that supplies its own lock
// via WithLock should call that lock directly instead; these exist so a
// standalone caller with no lock of its own (cmd/mdlogd) has something
// to hold across a call sequence.
func (lg *Log) Lock()   { lg.lock.Lock() }
func (lg *Log) Unlock() { lg.lock.Unlock() }

// NumEvents returns the number of live events across all segments.
func (lg *Log) NumEvents() int { return lg.numEvents }

// Capped reports whether Cap has been called.
func (lg *Log) Capped() bool { return lg.capped }

// SegmentCount returns the number of segments currently in the table.
func (lg *Log) SegmentCount() int { return lg.segments.len() }

// TrimmingCount returns the number of segments currently expiring.
func (lg *Log) TrimmingCount() int { return len(lg.trimming) }

// ExpirePos, WritePos and ReadPos expose the streamer's offsets.
func (lg *Log) ExpirePos() int64 { return lg.streamer.ExpirePos() }
func (lg *Log) WritePos() int64  { return lg.streamer.WritePos() }
func (lg *Log) ReadPos() int64   { return lg.streamer.ReadPos() }
