package mdlog

import "container/list"

// segmentTable is the ordered offset -> segment mapping described in the
// data model. Segments are always inserted at the tail (new segments only
// ever key at write_pos, which only grows, or at the replayer's current
// read position, which also only grows), so a doubly linked list gives us
// ordered iteration and O(1) arbitrary removal without rebalancing.
type segmentTable struct {
	l *list.List
}

func newSegmentTable() *segmentTable {
	return &segmentTable{l: list.New()}
}

func (t *segmentTable) empty() bool {
	return t.l.Len() == 0
}

func (t *segmentTable) len() int {
	return t.l.Len()
}

// insert adds a new segment at the tail. Callers are responsible for
// ensuring offset is larger than every existing key.
func (t *segmentTable) insert(seg *Segment) {
	seg.elem = t.l.PushBack(seg)
}

// remove drops seg from the table. No-op if seg was never inserted here.
func (t *segmentTable) remove(seg *Segment) {
	if seg.elem == nil {
		return
	}
	t.l.Remove(seg.elem)
	seg.elem = nil
}

// oldest returns the segment with the smallest offset, or nil if empty.
func (t *segmentTable) oldest() *Segment {
	if e := t.l.Front(); e != nil {
		return e.Value.(*Segment)
	}
	return nil
}

// current returns the segment with the largest offset (the current
// segment new submits bind to), or nil if empty.
func (t *segmentTable) current() *Segment {
	if e := t.l.Back(); e != nil {
		return e.Value.(*Segment)
	}
	return nil
}

// ascending calls fn for each segment in offset order, stopping early if
// fn returns false.
func (t *segmentTable) ascending(fn func(*Segment) bool) {
	for e := t.l.Front(); e != nil; {
		next := e.Next()
		if !fn(e.Value.(*Segment)) {
			return
		}
		e = next
	}
}

// minOffset returns the oldest segment's offset and whether one exists.
func (t *segmentTable) minOffset() (int64, bool) {
	s := t.oldest()
	if s == nil {
		return 0, false
	}
	return s.Offset, true
}
