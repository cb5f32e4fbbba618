package mdlog

import "encoding/binary"

// EventCodec decodes the opaque payload that follows an event's type tag.
// The wire codec for individual event payloads is an external collaborator
// (payload formats are owned by whatever emits the events); this package
// only needs to recognize the reserved SubtreeMap checkpoint type and
// otherwise defer to the supplied codec.
type EventCodec interface {
	Decode(t EventType, payload []byte) (Event, error)
}

// EventApplier lets an opaque (non-checkpoint) event apply itself to the
// cache during replay. Implemented optionally by Cache implementations
// that want GenericEvent.Replay to do something.
type EventApplier interface {
	ApplyEvent(t EventType, payload []byte) error
}

// SubtreeMapRestorer lets a Cache implementation restore authority state
// from a checkpoint snapshot during replay. Implemented optionally.
type SubtreeMapRestorer interface {
	RestoreSubtreeMap(snapshot []byte) error
}

// SubtreeMapEvent is the distinguished checkpoint event: it snapshots
// whatever authority state is required to make replay restartable from
// its offset, and it is always the first event of the segment it opens.
type SubtreeMapEvent struct {
	segmentRef
	Snapshot []byte
}

// NewSubtreeMapEvent wraps a cache-produced snapshot as a journal event.
func NewSubtreeMapEvent(snapshot []byte) *SubtreeMapEvent {
	return &SubtreeMapEvent{Snapshot: snapshot}
}

func (e *SubtreeMapEvent) Type() EventType { return EventTypeSubtreeMap }

func (e *SubtreeMapEvent) EncodePayload(buf []byte) []byte {
	return append(buf, e.Snapshot...)
}

func (e *SubtreeMapEvent) UpdateSegment() {}

func (e *SubtreeMapEvent) Replay(cache Cache) error {
	if r, ok := cache.(SubtreeMapRestorer); ok {
		return r.RestoreSubtreeMap(e.Snapshot)
	}
	return nil
}

// GenericEvent is an opaque event carrying a raw payload. It is the type
// produced by GenericCodec for any tag other than EventTypeSubtreeMap, and
// is also convenient for callers (and tests) that don't need a dedicated
// Go type per event kind.
type GenericEvent struct {
	segmentRef
	EvType  EventType
	Payload []byte
}

// NewGenericEvent builds an opaque event with the given tag and payload.
func NewGenericEvent(t EventType, payload []byte) *GenericEvent {
	return &GenericEvent{EvType: t, Payload: payload}
}

func (e *GenericEvent) Type() EventType { return e.EvType }

func (e *GenericEvent) EncodePayload(buf []byte) []byte {
	return append(buf, e.Payload...)
}

func (e *GenericEvent) UpdateSegment() {}

func (e *GenericEvent) Replay(cache Cache) error {
	if a, ok := cache.(EventApplier); ok {
		return a.ApplyEvent(e.EvType, e.Payload)
	}
	return nil
}

// GenericCodec decodes every tag into a GenericEvent. It is the default
// fallback codec, and a reasonable "next" codec to wrap with NewCodec.
type GenericCodec struct{}

func (GenericCodec) Decode(t EventType, payload []byte) (Event, error) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return &GenericEvent{EvType: t, Payload: cp}, nil
}

// codec composes the reserved SubtreeMap decoding with a caller-supplied
// fallback for every other event type.
type codec struct {
	next EventCodec
}

// NewCodec returns an EventCodec that recognizes EventTypeSubtreeMap and
// delegates every other tag to next. A nil next defaults to GenericCodec.
func NewCodec(next EventCodec) EventCodec {
	if next == nil {
		next = GenericCodec{}
	}
	return codec{next: next}
}

func (c codec) Decode(t EventType, payload []byte) (Event, error) {
	if t == EventTypeSubtreeMap {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		return &SubtreeMapEvent{Snapshot: cp}, nil
	}
	return c.next.Decode(t, payload)
}

// encodeEntry frames an event as [tag:u32][payload] for appending to the
// streamer. The event is not modified; callers still own destroying it
// afterwards per the single-use contract.
func encodeEntry(e Event) []byte {
	buf := make([]byte, 4, 4+32)
	binary.BigEndian.PutUint32(buf, uint32(e.Type()))
	return e.EncodePayload(buf)
}

// decodeEntry reads the type tag and dispatches the remaining payload to
// codec.
func decodeEntry(data []byte, c EventCodec) (Event, error) {
	if len(data) < 4 {
		return nil, ErrDecodeFailed
	}
	t := EventType(binary.BigEndian.Uint32(data[:4]))
	return c.Decode(t, data[4:])
}
