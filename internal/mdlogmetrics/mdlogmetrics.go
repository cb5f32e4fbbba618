// Package mdlogmetrics is an in-memory Metrics sink for internal/mdlog:
// named counters, gauges and a running average, grounded on the
// teacher's ad hoc map[string]any metadata logging pattern but backed by
// real fields rather than a map, since these are read back by the MCP
// introspection tool rather than only ever printed.
package mdlogmetrics

import (
	"sync"
	"time"

	"github.com/sandfs/mdlog/internal/log_service"
)

var registerOnce sync.Once

// Metrics counts and gauges everything internal/mdlog.Metrics reports,
// mirroring MDLog::reopen_logger's counter set: evadd, evtrm, ev, segadd,
// segtrm, segtrmg, seg, expos, wrpos, rdpos, jlat.
type Metrics struct {
	mu sync.Mutex

	evAdd, evTrim       int64
	ev                  int64
	segAdd, segTrim     int64
	segTrimming         int64
	seg                 int64
	expirePos, writePos int64
	readPos             int64

	latencyCount int64
	latencySum   time.Duration
}

// New constructs a Metrics sink. registerOnce mirrors reopen_logger's
// "static bool didit" guard: the first call in a process logs that
// counters are live, later calls in the same process are silent no-ops,
// so repeated Log.Create/Open calls don't spam registration logging.
func New(ls log_service.LogService) *Metrics {
	m := &Metrics{}
	registerOnce.Do(func() {
		if ls != nil {
			ls.Info(log_service.LogEvent{Message: "mdlogmetrics: counters registered"})
		}
	})
	return m
}

func (m *Metrics) IncEvAdd() {
	m.mu.Lock()
	m.evAdd++
	m.mu.Unlock()
}

func (m *Metrics) IncEvTrim(n int) {
	m.mu.Lock()
	m.evTrim += int64(n)
	m.mu.Unlock()
}

func (m *Metrics) SetEv(n int) {
	m.mu.Lock()
	m.ev = int64(n)
	m.mu.Unlock()
}

func (m *Metrics) IncSegAdd() {
	m.mu.Lock()
	m.segAdd++
	m.mu.Unlock()
}

func (m *Metrics) IncSegTrim() {
	m.mu.Lock()
	m.segTrim++
	m.mu.Unlock()
}

func (m *Metrics) SetSegTrimming(n int) {
	m.mu.Lock()
	m.segTrimming = int64(n)
	m.mu.Unlock()
}

func (m *Metrics) SetSeg(n int) {
	m.mu.Lock()
	m.seg = int64(n)
	m.mu.Unlock()
}

func (m *Metrics) SetExpirePos(pos int64) {
	m.mu.Lock()
	m.expirePos = pos
	m.mu.Unlock()
}

func (m *Metrics) SetWritePos(pos int64) {
	m.mu.Lock()
	m.writePos = pos
	m.mu.Unlock()
}

func (m *Metrics) SetReadPos(pos int64) {
	m.mu.Lock()
	m.readPos = pos
	m.mu.Unlock()
}

func (m *Metrics) ObserveAppendLatency(d time.Duration) {
	m.mu.Lock()
	m.latencyCount++
	m.latencySum += d
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of every counter/gauge, for the MCP
// introspection tool and for tests.
type Snapshot struct {
	EvAdd, EvTrim       int64
	Ev                  int64
	SegAdd, SegTrim     int64
	SegTrimming         int64
	Seg                 int64
	ExpirePos, WritePos int64
	ReadPos             int64
	AvgAppendLatency    time.Duration
}

// Snapshot returns a consistent copy of all counters and gauges.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg time.Duration
	if m.latencyCount > 0 {
		avg = m.latencySum / time.Duration(m.latencyCount)
	}

	return Snapshot{
		EvAdd: m.evAdd, EvTrim: m.evTrim,
		Ev:          m.ev,
		SegAdd:      m.segAdd,
		SegTrim:     m.segTrim,
		SegTrimming: m.segTrimming,
		Seg:         m.seg,
		ExpirePos:   m.expirePos,
		WritePos:    m.writePos,
		ReadPos:     m.readPos,
		AvgAppendLatency: avg,
	}
}
