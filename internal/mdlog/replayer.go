package mdlog

import (
	"runtime"

	"github.com/sandfs/mdlog/internal/log_service"
)

// Replay reconstructs segments and applies events to the cache by reading
// forward from ExpirePos. onComplete fires once replay finishes (possibly
// synchronously, if the journal is empty).
//
// Precondition: the streamer must already be active (Open's recovery must
// have completed). Replay must not be called while a previous Replay on
// this Log is still running.
func (lg *Log) Replay(onComplete func(error)) {
	if !lg.streamer.IsActive() {
		if onComplete != nil {
			onComplete(ErrStreamerNotActive)
		}
		return
	}
	if lg.replaying {
		panicReplayAlreadyRunning()
	}

	lg.streamer.SetReadPos(lg.streamer.ExpirePos())

	if lg.streamer.ReadPos() == lg.streamer.WritePos() {
		lg.ls.Debug(log_service.LogEvent{Message: "replay: journal empty, done"})
		if onComplete != nil {
			onComplete(nil)
		}
		return
	}

	if onComplete != nil {
		lg.replayWaiters = append(lg.replayWaiters, onComplete)
	}

	lg.ls.Info(log_service.LogEvent{
		Message:  "replay start",
		Metadata: map[string]any{"from": lg.streamer.ReadPos(), "to": lg.streamer.WritePos()},
	})

	lg.replaying = true
	go lg.replayThread()
}

// replayThread is a dedicated goroutine (not a cooperative task) because
// it must release and reacquire the big lock across blocking waits for
// streamer readability, and it yields once per event so other lock
// holders (timers, heartbeats) can make progress. It acquires the lock on
// entry and holds it except while waiting on the condition variable and
// during that per-event yield.
func (lg *Log) replayThread() {
	lg.lock.Lock()
	defer lg.lock.Unlock()

	lg.ls.Debug(log_service.LogEvent{Message: "replay thread start"})

	newExpirePos := lg.streamer.ExpirePos()
	seenCheckpoint := false
	var replayErr error

	for {
		for !lg.streamer.IsReadable() && lg.streamer.ReadPos() < lg.streamer.WritePos() {
			lg.streamer.WaitForReadable(func() { lg.cond.Signal() })
			lg.cond.Wait()
		}

		if !lg.streamer.IsReadable() && lg.streamer.ReadPos() == lg.streamer.WritePos() {
			break
		}

		pos := lg.streamer.ReadPos()
		data, ok, err := lg.streamer.TryReadEntry()
		if err != nil {
			replayErr = err
			break
		}
		if !ok {
			replayErr = ErrDecodeFailed
			break
		}

		event, err := decodeEntry(data, lg.codec)
		if err != nil {
			replayErr = ErrDecodeFailed
			break
		}

		if event.Type() == EventTypeSubtreeMap {
			seg := &Segment{Offset: pos}
			lg.segments.insert(seg)
			lg.metrics.SetSeg(lg.segments.len())
		}

		event.SetSegment(lg.segments.current())

		if lg.segments.empty() {
			lg.ls.Debug(log_service.LogEvent{
				Message:  "replay: waiting for subtree map, skipping entry",
				Metadata: map[string]any{"pos": pos},
			})
		} else {
			lg.ls.Debug(log_service.LogEvent{Message: "replay", Metadata: map[string]any{"pos": pos, "type": event.Type()}})

			if err := event.Replay(lg.cache); err != nil {
				replayErr = err
				break
			}
			lg.numEvents++
			if !seenCheckpoint {
				newExpirePos = pos
				seenCheckpoint = true
			}
		}

		lg.metrics.SetReadPos(lg.streamer.ReadPos())

		// Drop the lock for a moment so other activity (timers,
		// heartbeats) can run between events.
		lg.lock.Unlock()
		runtime.Gosched()
		lg.lock.Lock()
	}

	if replayErr != nil {
		lg.ls.Error(log_service.LogEvent{
			Message:  "replay failed",
			Metadata: map[string]any{"events": lg.numEvents, "err": replayErr.Error()},
		})
	} else {
		lg.ls.Info(log_service.LogEvent{
			Message:  "replay complete",
			Metadata: map[string]any{"events": lg.numEvents, "newExpirePos": newExpirePos},
		})
		lg.streamer.SetReadPos(newExpirePos)
		lg.streamer.SetExpirePos(newExpirePos)
		lg.metrics.SetExpirePos(newExpirePos)
	}

	waiters := lg.replayWaiters
	lg.replayWaiters = nil
	lg.replaying = false
	for _, w := range waiters {
		w(replayErr)
	}
}
