package mdlogmetrics

import (
	"testing"
	"time"

	"github.com/sandfs/mdlog/internal/log_service"
)

func TestMetrics_SnapshotReflectsUpdates(t *testing.T) {
	m := New(log_service.Discard)

	m.IncEvAdd()
	m.IncEvAdd()
	m.SetEv(2)
	m.IncSegAdd()
	m.SetSeg(1)
	m.SetExpirePos(10)
	m.SetWritePos(20)
	m.SetReadPos(15)
	m.ObserveAppendLatency(10 * time.Millisecond)
	m.ObserveAppendLatency(30 * time.Millisecond)

	snap := m.Snapshot()
	if snap.EvAdd != 2 {
		t.Fatalf("EvAdd = %d, want 2", snap.EvAdd)
	}
	if snap.Ev != 2 {
		t.Fatalf("Ev = %d, want 2", snap.Ev)
	}
	if snap.SegAdd != 1 || snap.Seg != 1 {
		t.Fatalf("SegAdd/Seg = %d/%d, want 1/1", snap.SegAdd, snap.Seg)
	}
	if snap.ExpirePos != 10 || snap.WritePos != 20 || snap.ReadPos != 15 {
		t.Fatalf("offsets = %d/%d/%d, want 10/20/15", snap.ExpirePos, snap.WritePos, snap.ReadPos)
	}
	if snap.AvgAppendLatency != 20*time.Millisecond {
		t.Fatalf("AvgAppendLatency = %v, want 20ms", snap.AvgAppendLatency)
	}
}

func TestMetrics_SnapshotWithNoLatencyObservations(t *testing.T) {
	m := New(log_service.Discard)
	snap := m.Snapshot()
	if snap.AvgAppendLatency != 0 {
		t.Fatalf("AvgAppendLatency = %v, want 0", snap.AvgAppendLatency)
	}
}
