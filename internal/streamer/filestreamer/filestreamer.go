// Package filestreamer is a disk-backed mdlog.Streamer: one append-only
// data file holding length-prefixed entry frames, and a small JSON head
// file recording the durable ExpirePos/ReadPos/WritePos/Period, written
// atomically (temp file + rename) the way the teacher's cache log does.
package filestreamer

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/sandfs/mdlog/internal/log_service"
)

const headName = "journal.head"

// head is the durable record written to headName. Epoch names the data
// file this head belongs to, the way chunk_service/localdisc names each
// chunk file after a generated ID rather than reusing one fixed name:
// a fresh Reset gets a fresh epoch, so a half-written data file from a
// previous instance is never mistaken for the current one.
type head struct {
	Epoch              string
	ExpirePos          int64
	ReadPos            int64
	WritePos           int64
	Period             int64
	PreferredPlacement string
}

// Streamer is a single-process, single-writer journal backed by two files
// under baseDir. It is not safe for use by more than one process at a
// time; nothing here takes a filesystem lock, matching the spec's
// single-writer assumption.
type Streamer struct {
	baseDir            string
	ls                 log_service.LogService
	period             int64
	preferredPlacement string

	mu        sync.Mutex
	epoch     string
	data      *os.File
	active    bool
	readPos   int64
	writePos  int64
	expirePos int64

	readable []func()
}

// New returns a Streamer rooted at baseDir, which is created if missing.
// period is the stripe size used by the segment-boundary policy.
// preferredPlacement is a placement hint carried through into the head
// record for introspection; this streamer, a single local file, has
// nothing to honor it with beyond that.
func New(baseDir string, period int64, preferredPlacement string, ls log_service.LogService) (*Streamer, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &Streamer{baseDir: baseDir, period: period, preferredPlacement: preferredPlacement, ls: ls}, nil
}

func (s *Streamer) headPath() string { return filepath.Join(s.baseDir, headName) }

func (s *Streamer) dataPath(epoch string) string {
	return filepath.Join(s.baseDir, epoch+".journal")
}

// Reset discards any existing journal and starts a fresh, empty one under
// a newly minted epoch.
func (s *Streamer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data != nil {
		s.data.Close()
	}

	epoch := uuid.NewString()
	f, err := os.OpenFile(s.dataPath(epoch), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	s.epoch = epoch
	s.data = f
	s.readPos = 0
	s.writePos = 0
	s.expirePos = 0
	s.active = true

	s.ls.Info(log_service.LogEvent{Message: "filestreamer: reset", Metadata: map[string]any{"dir": s.baseDir, "epoch": epoch}})
	return nil
}

// WriteHead durably persists the current offsets, then invokes cb.
func (s *Streamer) WriteHead(cb func(error)) {
	err := s.writeHeadLocked()
	if cb != nil {
		cb(err)
	}
}

func (s *Streamer) writeHeadLocked() error {
	s.mu.Lock()
	h := head{
		Epoch: s.epoch, ExpirePos: s.expirePos, ReadPos: s.readPos, WritePos: s.writePos,
		Period: s.period, PreferredPlacement: s.preferredPlacement,
	}
	s.mu.Unlock()

	buf, err := json.Marshal(h)
	if err != nil {
		return err
	}

	tmp := s.headPath() + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.headPath())
}

// Recover opens an existing journal: it reads the head file for the last
// durable offsets, then reconciles WritePos against the actual data file
// size (a crash can leave a durable append that the head never recorded).
func (s *Streamer) Recover(cb func(error)) {
	err := s.recover()
	if cb != nil {
		cb(err)
	}
}

func (s *Streamer) recover() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := os.ReadFile(s.headPath())
	if err != nil {
		return err
	}
	var h head
	if err := json.Unmarshal(buf, &h); err != nil {
		return err
	}

	f, err := os.OpenFile(s.dataPath(h.Epoch), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	if s.data != nil {
		s.data.Close()
	}
	s.data = f
	s.epoch = h.Epoch

	info, err := f.Stat()
	if err != nil {
		return err
	}

	s.expirePos = h.ExpirePos
	s.readPos = h.ReadPos
	s.writePos = h.WritePos
	s.period = h.Period
	s.preferredPlacement = h.PreferredPlacement
	if info.Size() > s.writePos {
		s.writePos = info.Size()
	}
	s.active = true

	s.ls.Info(log_service.LogEvent{
		Message: "filestreamer: recovered",
		Metadata: map[string]any{
			"expirePos": s.expirePos, "readPos": s.readPos, "writePos": s.writePos,
		},
	})
	return nil
}

// IsActive reports whether Reset or Recover has completed successfully.
func (s *Streamer) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// AppendEntry writes one length-prefixed frame at the current write
// position and advances it. It does not fsync; Flush/FlushCB do.
func (s *Streamer) AppendEntry(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.data.WriteAt(frame(data), s.writePos); err != nil {
		return err
	}
	s.writePos += int64(4 + len(data))

	waiters := s.readable
	s.readable = nil
	for _, w := range waiters {
		go w()
	}
	return nil
}

func frame(data []byte) []byte {
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out[:4], uint32(len(data)))
	copy(out[4:], data)
	return out
}

// Flush fsyncs the data file and persists the head record.
func (s *Streamer) Flush() {
	s.mu.Lock()
	f := s.data
	s.mu.Unlock()
	if f != nil {
		f.Sync()
	}
	s.writeHeadLocked()
}

// FlushCB flushes, then invokes cb with the result of the head write.
func (s *Streamer) FlushCB(cb func(error)) {
	s.mu.Lock()
	f := s.data
	s.mu.Unlock()
	if f != nil {
		f.Sync()
	}
	err := s.writeHeadLocked()
	if cb != nil {
		cb(err)
	}
}

// TryReadEntry reads one frame from the current read position, if one is
// fully durable on disk. ok is false (with a nil error) when ReadPos has
// caught up to WritePos.
func (s *Streamer) TryReadEntry() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readPos >= s.writePos {
		return nil, false, nil
	}

	var lenBuf [4]byte
	if _, err := s.data.ReadAt(lenBuf[:], s.readPos); err != nil && err != io.EOF {
		return nil, false, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])

	payload := make([]byte, n)
	if _, err := s.data.ReadAt(payload, s.readPos+4); err != nil && err != io.EOF {
		return nil, false, err
	}

	s.readPos += int64(4 + n)
	return payload, true, nil
}

// IsReadable reports whether a full entry is currently available at
// ReadPos. This streamer has no write-buffering lag, so it is simply
// ReadPos < WritePos.
func (s *Streamer) IsReadable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPos < s.writePos
}

// WaitForReadable arranges for cb to run the next time AppendEntry makes
// new data available. Callers only invoke this when IsReadable is
// already false.
func (s *Streamer) WaitForReadable(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readable = append(s.readable, cb)
}

func (s *Streamer) ReadPos() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPos
}

func (s *Streamer) WritePos() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writePos
}

func (s *Streamer) ExpirePos() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expirePos
}

func (s *Streamer) SetReadPos(pos int64) {
	s.mu.Lock()
	s.readPos = pos
	s.mu.Unlock()
}

func (s *Streamer) SetExpirePos(pos int64) {
	s.mu.Lock()
	s.expirePos = pos
	s.mu.Unlock()
}

func (s *Streamer) Period() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// PreferredPlacement returns the placement hint recorded in the head file.
func (s *Streamer) PreferredPlacement() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferredPlacement
}
