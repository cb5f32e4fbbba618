// Package mdcache provides a test double for mdlog.Cache: the real cache
// is the hosting metadata server's in-memory authority state, an external
// collaborator this module never implements. Fakecache stands in for it
// in this module's own tests and is exported for downstream test use, the
// way metadata_service/inmemory stands in for a real backing store.
package mdcache

import (
	"encoding/json"
	"sync"

	"github.com/sandfs/mdlog/internal/mdlog"
)

// Event tags this fake cache understands. EventTypeSubtreeMap (0) is
// reserved by mdlog itself; domain tags start at 1.
const (
	EventTypeUpdate mdlog.EventType = iota + 1
	EventTypeDelete
)

type update struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type del struct {
	Path string `json:"path"`
}

// Barrier is an injectable mdlog.Barrier: tests arm it, call SetFinisher
// to capture the trimmer's completion callback, then call Fire to
// simulate the outstanding prerequisite clearing.
type Barrier struct {
	mu       sync.Mutex
	finisher func()
	fired    bool
}

func (b *Barrier) SetFinisher(cb func()) {
	b.mu.Lock()
	if b.fired {
		b.mu.Unlock()
		cb()
		return
	}
	b.finisher = cb
	b.mu.Unlock()
}

// Fire releases the barrier, invoking the finisher if one was armed.
func (b *Barrier) Fire() {
	b.mu.Lock()
	cb := b.finisher
	b.finisher = nil
	b.fired = true
	b.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Cache is a minimal in-memory mdlog.Cache: a flat key/value table that
// events mutate. It implements mdlog.EventApplier and
// mdlog.SubtreeMapRestorer so replay round-trips exercise both paths.
type Cache struct {
	mu    sync.Mutex
	state map[string]string

	// Barriers, keyed by segment, let tests control exactly when a
	// given segment becomes expirable. A segment with no entry here
	// expires immediately (TryToExpire returns nil).
	barriers map[*mdlog.Segment]*Barrier
}

// New returns an empty fake cache.
func New() *Cache {
	return &Cache{state: make(map[string]string), barriers: make(map[*mdlog.Segment]*Barrier)}
}

// Snapshot returns a copy of the current state, for test assertions.
func (c *Cache) Snapshot() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

// Update applies an update locally and returns the mdlog.Event to submit.
func (c *Cache) Update(path, value string) mdlog.Event {
	c.mu.Lock()
	c.state[path] = value
	c.mu.Unlock()

	payload, _ := json.Marshal(update{Path: path, Value: value})
	return mdlog.NewGenericEvent(EventTypeUpdate, payload)
}

// Delete removes path locally and returns the mdlog.Event to submit.
func (c *Cache) Delete(path string) mdlog.Event {
	c.mu.Lock()
	delete(c.state, path)
	c.mu.Unlock()

	payload, _ := json.Marshal(del{Path: path})
	return mdlog.NewGenericEvent(EventTypeDelete, payload)
}

// CreateSubtreeMap snapshots the whole state table as a checkpoint.
func (c *Cache) CreateSubtreeMap() (mdlog.Event, error) {
	c.mu.Lock()
	snap, err := json.Marshal(c.state)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return mdlog.NewSubtreeMapEvent(snap), nil
}

// RestoreSubtreeMap replaces the state table wholesale from a checkpoint
// encountered during replay.
func (c *Cache) RestoreSubtreeMap(snapshot []byte) error {
	state := make(map[string]string)
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &state); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return nil
}

// ApplyEvent replays a non-checkpoint event by tag.
func (c *Cache) ApplyEvent(t mdlog.EventType, payload []byte) error {
	switch t {
	case EventTypeUpdate:
		var u update
		if err := json.Unmarshal(payload, &u); err != nil {
			return err
		}
		c.mu.Lock()
		c.state[u.Path] = u.Value
		c.mu.Unlock()
	case EventTypeDelete:
		var d del
		if err := json.Unmarshal(payload, &d); err != nil {
			return err
		}
		c.mu.Lock()
		delete(c.state, d.Path)
		c.mu.Unlock()
	}
	return nil
}

// ArmBarrier registers b as the outstanding prerequisite for seg: the
// next TryToExpire(seg) call returns b instead of nil.
func (c *Cache) ArmBarrier(seg *mdlog.Segment, b *Barrier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.barriers[seg] = b
}

// TryToExpire returns the armed barrier for seg, if any, else nil
// (immediately expirable).
func (c *Cache) TryToExpire(seg *mdlog.Segment) mdlog.Barrier {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.barriers[seg]
	if !ok {
		return nil
	}
	delete(c.barriers, seg)
	return b
}

var (
	_ mdlog.Cache              = (*Cache)(nil)
	_ mdlog.EventApplier       = (*Cache)(nil)
	_ mdlog.SubtreeMapRestorer = (*Cache)(nil)
	_ mdlog.Barrier            = (*Barrier)(nil)
)
