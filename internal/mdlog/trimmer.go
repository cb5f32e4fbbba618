package mdlog

import (
	"github.com/sandfs/mdlog/internal/log_service"
)

// Trim inspects segments in age order and expires the ones that are both
// over budget and whose prerequisites (per the cache) are satisfied. It
// does bounded work: at most trimWindow of wall-clock time per call, and
// at most cfg.MaxTrimming concurrently in-flight expiries.
func (lg *Log) Trim() {
	lg.ls.Debug(log_service.LogEvent{
		Message: "trim",
		Metadata: map[string]any{
			"segments":  lg.segments.len(),
			"events":    lg.numEvents,
			"trimming":  len(lg.trimming),
			"maxEvents": lg.cfg.MaxEvents,
			"maxSegs":   lg.cfg.MaxSegments,
		},
	})

	if lg.segments.empty() {
		return
	}

	deadline := lg.clock.Now().Add(trimWindow)
	remaining := lg.numEvents

	lg.segments.ascending(func(seg *Segment) bool {
		if !lg.clock.Now().Before(deadline) {
			return false
		}
		if len(lg.trimming) >= lg.cfg.MaxTrimming {
			return false
		}
		overEvents := lg.cfg.MaxEvents >= 0 && remaining > lg.cfg.MaxEvents
		overSegments := lg.cfg.MaxSegments >= 0 && (lg.segments.len()-len(lg.trimming)) > lg.cfg.MaxSegments
		if !overEvents && !overSegments {
			return false
		}

		if lg.trimming[seg] {
			lg.ls.Debug(log_service.LogEvent{
				Message:  "trim: already trimming segment",
				Metadata: map[string]any{"offset": seg.Offset, "events": seg.NumEvents},
			})
		} else {
			lg.tryTrim(seg)
		}

		remaining -= seg.NumEvents
		return true
	})
}

// tryTrim asks the cache whether seg's effects are fully absorbed. If so
// it is expired immediately; otherwise it moves into the trimming set and
// is expired once its barrier fires.
func (lg *Log) tryTrim(seg *Segment) {
	barrier := lg.cache.TryToExpire(seg)
	if barrier == nil {
		lg.ls.Debug(log_service.LogEvent{Message: "try_trim: trimmed segment", Metadata: map[string]any{"offset": seg.Offset}})
		lg.trimmed(seg)
	} else {
		lg.trimming[seg] = true
		lg.ls.Info(log_service.LogEvent{Message: "try_trim: trimming segment", Metadata: map[string]any{"offset": seg.Offset}})
		barrier.SetFinisher(func() { lg.maybeTrimmed(seg) })
	}
	lg.metrics.SetSegTrimming(len(lg.trimming))
}

// maybeTrimmed is the barrier completion: the prerequisites that were
// outstanding have cleared, so re-attempt expiry (a new barrier may have
// been established in the interim, but typically it now clears).
func (lg *Log) maybeTrimmed(seg *Segment) {
	lg.ls.Debug(log_service.LogEvent{
		Message:  "maybe_trimmed",
		Metadata: map[string]any{"offset": seg.Offset, "events": seg.NumEvents},
	})
	delete(lg.trimming, seg)
	lg.tryTrim(seg)
}

// trimmed actually expires seg: it never removes the current segment
// unless the log is capped, and only advances expire_pos when seg was the
// oldest.
func (lg *Log) trimmed(seg *Segment) {
	if !lg.capped && seg == lg.segments.current() {
		lg.ls.Debug(log_service.LogEvent{
			Message:  "trimmed: not trimming, last one and not capped",
			Metadata: map[string]any{"offset": seg.Offset},
		})
		return
	}

	lg.numEvents -= seg.NumEvents

	if oldest := lg.segments.oldest(); oldest == seg {
		lg.streamer.SetExpirePos(seg.Offset)
		lg.metrics.SetExpirePos(seg.Offset)
	}
	lg.segments.remove(seg)

	lg.metrics.SetEv(lg.numEvents)
	lg.metrics.IncEvTrim(seg.NumEvents)
	lg.metrics.SetSeg(lg.segments.len())
	lg.metrics.IncSegTrim()

	lg.ls.Info(log_service.LogEvent{
		Message:  "trimmed",
		Metadata: map[string]any{"offset": seg.Offset, "events": seg.NumEvents},
	})
}
