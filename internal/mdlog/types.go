// Package mdlog implements the segment-structured metadata journal core: the
// append/flush protocol, the trimming engine, and the replay engine that
// sit on top of a raw append-only byte stream. The streamer, the metadata
// cache, the clock, the metric sink, and the event payload codec are all
// external collaborators, consumed here only through the interfaces
// declared in this package.
package mdlog

import (
	"container/list"
	"fmt"
)

// EventType is the discriminant tag an event is framed with on the wire:
// the stream body is a sequence of [tag][payload] entries.
type EventType uint32

// EventTypeSubtreeMap is the reserved type for the checkpoint event that
// makes a segment restartable: it is the first event of every segment.
const EventTypeSubtreeMap EventType = 0

// Event is a single journal entry. Events are single-use: Submit consumes
// and discards the Event after encoding it, and the replayer discards it
// after applying it to the cache.
type Event interface {
	// Type returns the wire discriminant for this event.
	Type() EventType

	// EncodePayload appends this event's payload (everything after the
	// type tag) to buf.
	EncodePayload(buf []byte) []byte

	// SetSegment attaches the (non-owning) back-reference to the segment
	// this event is bound to. Called once, on submit or on replay.
	SetSegment(seg *Segment)

	// Segment returns the segment this event is bound to, or nil if it
	// has not been bound yet.
	Segment() *Segment

	// UpdateSegment lets the event update any segment-tracked counters
	// derived from its payload. Submit calls it right after SetSegment;
	// replay does not call it.
	UpdateSegment()

	// Replay applies this event's effect to the cache during recovery.
	Replay(cache Cache) error
}

// segmentRef is the embeddable, non-owning back-reference every concrete
// Event implementation carries. It is deliberately not an ownership edge:
// segments never hold a collection of their events, only a count.
type segmentRef struct {
	seg *Segment
}

func (r *segmentRef) SetSegment(seg *Segment) { r.seg = seg }
func (r *segmentRef) Segment() *Segment       { return r.seg }

// Segment is a contiguous run of journal events delimited at its start by a
// subtree-map checkpoint. Its Offset is both its stream position and its
// identity; segments never track their member events individually, only a
// count.
type Segment struct {
	// Offset is the byte position at which this segment's opening
	// checkpoint was (or will be) written.
	Offset int64

	// NumEvents is the count of events bound to this segment.
	NumEvents int

	elem *list.Element // this segment's node in the owning segmentTable's list
}

func (s *Segment) String() string {
	return fmt.Sprintf("segment@%d(%d events)", s.Offset, s.NumEvents)
}
