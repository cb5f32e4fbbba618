package mdlog

// memCache is a minimal Cache test double: CreateSubtreeMap hands back an
// empty checkpoint, and TryToExpire returns whatever barrier (if any) the
// test has armed for that segment.
type memCache struct {
	barriers map[*Segment]*memBarrier
	applied  [][]byte
}

func newMemCache() *memCache {
	return &memCache{barriers: make(map[*Segment]*memBarrier)}
}

func (c *memCache) CreateSubtreeMap() (Event, error) {
	return NewSubtreeMapEvent(nil), nil
}

// ApplyEvent records every payload handed to it by GenericEvent.Replay,
// so tests can assert which events replay actually applied versus merely
// consumed from the stream.
func (c *memCache) ApplyEvent(t EventType, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	c.applied = append(c.applied, cp)
	return nil
}

func (c *memCache) arm(seg *Segment, b *memBarrier) {
	c.barriers[seg] = b
}

func (c *memCache) TryToExpire(seg *Segment) Barrier {
	b, ok := c.barriers[seg]
	if !ok {
		return nil
	}
	delete(c.barriers, seg)
	return b
}

type memBarrier struct {
	finisher func()
}

func (b *memBarrier) SetFinisher(cb func()) { b.finisher = cb }

func (b *memBarrier) fire() {
	if b.finisher != nil {
		b.finisher()
	}
}

var (
	_ Cache        = (*memCache)(nil)
	_ EventApplier = (*memCache)(nil)
	_ Barrier      = (*memBarrier)(nil)
)
