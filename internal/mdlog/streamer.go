package mdlog

// Streamer is the raw, byte-addressed append-only journal this package
// layers segments and checkpoints on top of. It is an external
// collaborator (an object-store-resident stream in production); mdlog only
// ever talks to it through this interface. Implementations live outside
// this package (see internal/streamer for the on-disk reference one).
//
// Three offsets are monotonically non-decreasing and satisfy
// ExpirePos() <= ReadPos() <= WritePos() at every call boundary.
type Streamer interface {
	// Reset discards any prior content and positions all three offsets
	// at zero. Used by Log.Create.
	Reset() error

	// Recover scans the backing store to discover valid ReadPos/WritePos
	// values and puts the streamer in its active state. cb fires on
	// completion (possibly synchronously).
	Recover(cb func(error))

	// WriteHead durably persists the current offsets and layout. cb
	// fires once the write is durable.
	WriteHead(cb func(error))

	// AppendEntry appends one already-framed entry and advances
	// WritePos by its encoded length.
	AppendEntry(data []byte) error

	// Flush forces any buffered appends to become durable, without
	// waiting for completion.
	Flush()

	// FlushCB behaves like Flush but invokes cb once the flush (and
	// every append that preceded it) is durable.
	FlushCB(cb func(error))

	// TryReadEntry reads one framed entry starting at the current
	// ReadPos, advancing ReadPos past it. ok is false if the streamer is
	// not currently readable.
	TryReadEntry() (data []byte, ok bool, err error)

	// IsReadable reports whether a TryReadEntry call would currently
	// succeed.
	IsReadable() bool

	// IsActive reports whether Recover has completed successfully.
	IsActive() bool

	// WaitForReadable registers cb to fire the next time the streamer
	// transitions from not-readable to readable.
	WaitForReadable(cb func())

	ReadPos() int64
	WritePos() int64
	ExpirePos() int64

	SetReadPos(pos int64)
	SetExpirePos(pos int64)

	// Period returns the backing layout's stripe size in bytes, used by
	// the segment-boundary policy.
	Period() int64
}
