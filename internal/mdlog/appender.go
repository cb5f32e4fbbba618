package mdlog

import (
	"github.com/sandfs/mdlog/internal/log_service"
)

// Submit binds event to the current segment, journals it, and evaluates
// the segment-boundary policy. If onSafe is non-nil, a flush is initiated
// and onSafe fires once the append is durable; otherwise the event is
// merely counted as unflushed.
//
// Submit panics if the log is capped, or if the segment table is empty
// (Append/Replay bootstrap must call StartNewSegment first) — both are
// caller preconditions, not recoverable runtime errors.
func (lg *Log) Submit(event Event, onSafe func(error)) {
	if !lg.cfg.Enabled {
		if onSafe != nil {
			onSafe(nil)
		}
		return
	}

	if lg.capped {
		panicCapped()
	}
	if lg.segments.empty() {
		panicEmptySegmentTable()
	}

	seg := lg.segments.current()
	event.SetSegment(seg)
	seg.NumEvents++
	event.UpdateSegment()
	lg.numEvents++

	lg.ls.Debug(log_service.LogEvent{
		Message:  "submit_entry",
		Metadata: map[string]any{"pos": lg.streamer.WritePos(), "type": event.Type()},
	})

	start := lg.clock.Now()
	data := encodeEntry(event)
	if err := lg.streamer.AppendEntry(data); err != nil {
		// The spec treats streamer I/O errors as surfaced-not-retried:
		// the hosting server is expected to crash or failover.
		if onSafe != nil {
			onSafe(err)
		}
		return
	}
	lg.metrics.ObserveAppendLatency(lg.clock.Now().Sub(start))

	lg.metrics.IncEvAdd()
	lg.metrics.SetEv(lg.numEvents)
	lg.metrics.SetWritePos(lg.streamer.WritePos())

	if onSafe != nil {
		lg.unflushed = 0
		lg.flushWithCallback(onSafe)
	} else {
		lg.unflushed++
	}

	lg.maybeStartNewSegment()
}

// maybeStartNewSegment implements the segment-boundary policy: a new
// segment is triggered once the write position crosses a stripe boundary
// by more than half a stripe past the current segment's start, unless a
// checkpoint write is already in flight.
func (lg *Log) maybeStartNewSegment() {
	if lg.writingSubtreeMap {
		return
	}
	cur := lg.segments.current()
	if cur == nil {
		return
	}
	period := lg.streamer.Period()
	if period <= 0 {
		return
	}
	wp := lg.streamer.WritePos()
	crossedStripe := wp/period != cur.Offset/period
	substantial := wp-cur.Offset > period/2
	if crossedStripe && substantial {
		lg.ls.Debug(log_service.LogEvent{
			Message:  "submit_entry also starting new segment",
			Metadata: map[string]any{"last": cur.Offset, "pos": wp},
		})
		lg.StartNewSegment(nil)
	}
}

// StartNewSegment inserts a fresh segment at the current write position
// and journals its opening subtree-map checkpoint. If onSync is non-nil,
// it is registered to fire once that checkpoint (and everything before
// it) is durable.
func (lg *Log) StartNewSegment(onSync func(error)) {
	if lg.writingSubtreeMap {
		panicWritingSubtreeMap()
	}

	pos := lg.streamer.WritePos()
	lg.ls.Info(log_service.LogEvent{Message: "start_new_segment", Metadata: map[string]any{"pos": pos}})

	seg := &Segment{Offset: pos}
	lg.segments.insert(seg)

	lg.writingSubtreeMap = true

	ev, err := lg.cache.CreateSubtreeMap()
	if err != nil {
		lg.writingSubtreeMap = false
		if onSync != nil {
			onSync(err)
		}
		return
	}

	lg.Submit(ev, func(err error) {
		lg.writingSubtreeMap = false
	})
	if onSync != nil {
		lg.WaitForSync(onSync)
	}

	lg.metrics.IncSegAdd()
	lg.metrics.SetSeg(lg.segments.len())
}

// WaitForSync registers cb to fire after the next durable flush boundary
// at or beyond the current write position.
func (lg *Log) WaitForSync(cb func(error)) {
	if !lg.cfg.Enabled {
		if cb != nil {
			cb(nil)
		}
		return
	}
	lg.flushWithCallback(cb)
}

// flushWithCallback is the shared helper behind Submit(event, onSafe) and
// WaitForSync: it asks the streamer to flush and durably deliver cb.
func (lg *Log) flushWithCallback(cb func(error)) {
	lg.streamer.FlushCB(cb)
}

// Flush forces a streamer flush if anything is unflushed, then runs the
// trimmer.
func (lg *Log) Flush() {
	if lg.unflushed > 0 {
		lg.streamer.Flush()
	}
	lg.unflushed = 0
	lg.Trim()
}

// Cap marks the log terminal: no further Submit calls are permitted, and
// the current segment becomes eligible for trimming.
func (lg *Log) Cap() {
	lg.ls.Info(log_service.LogEvent{Message: "cap"})
	lg.capped = true
}
