package mdlog

import "encoding/binary"

// memStreamer is an in-memory Streamer test double: a byte slice holding
// length-prefixed frames, with no real asynchrony. It exists purely for
// this package's own tests; internal/streamer/filestreamer is the real
// disk-backed implementation.
type memStreamer struct {
	buf               []byte
	readPos, writePos int64
	expirePos         int64
	active            bool
	period            int64

	failAppend bool
	waiters    []func()
}

func newMemStreamer(period int64) *memStreamer {
	return &memStreamer{period: period}
}

func (m *memStreamer) Reset() error {
	m.buf = nil
	m.readPos, m.writePos, m.expirePos = 0, 0, 0
	m.active = true
	return nil
}

func (m *memStreamer) Recover(cb func(error)) {
	m.active = true
	if cb != nil {
		cb(nil)
	}
}

func (m *memStreamer) WriteHead(cb func(error)) {
	if cb != nil {
		cb(nil)
	}
}

func (m *memStreamer) AppendEntry(data []byte) error {
	if m.failAppend {
		return errTestAppendFailed
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	m.buf = append(m.buf, lenBuf[:]...)
	m.buf = append(m.buf, data...)
	m.writePos += int64(4 + len(data))

	waiters := m.waiters
	m.waiters = nil
	for _, w := range waiters {
		w()
	}
	return nil
}

func (m *memStreamer) Flush() {}

func (m *memStreamer) FlushCB(cb func(error)) {
	if cb != nil {
		cb(nil)
	}
}

func (m *memStreamer) TryReadEntry() ([]byte, bool, error) {
	if m.readPos >= m.writePos {
		return nil, false, nil
	}
	n := binary.BigEndian.Uint32(m.buf[m.readPos : m.readPos+4])
	start := m.readPos + 4
	payload := m.buf[start : start+int64(n)]
	m.readPos = start + int64(n)
	return payload, true, nil
}

func (m *memStreamer) IsReadable() bool { return m.readPos < m.writePos }

func (m *memStreamer) IsActive() bool { return m.active }

func (m *memStreamer) WaitForReadable(cb func()) {
	m.waiters = append(m.waiters, cb)
}

func (m *memStreamer) ReadPos() int64   { return m.readPos }
func (m *memStreamer) WritePos() int64  { return m.writePos }
func (m *memStreamer) ExpirePos() int64 { return m.expirePos }

func (m *memStreamer) SetReadPos(pos int64)   { m.readPos = pos }
func (m *memStreamer) SetExpirePos(pos int64) { m.expirePos = pos }

func (m *memStreamer) Period() int64 { return m.period }

var _ Streamer = (*memStreamer)(nil)

type testErr string

func (e testErr) Error() string { return string(e) }

const errTestAppendFailed = testErr("test append failed")
