package mdlog

import "time"

// trimWindow bounds how long a single Trim call is allowed to run.
const trimWindow = 2 * time.Second

// Config carries the tunables from spec section 6's configuration list
// (mds_log, mds_log_max_segments, mds_log_max_events, mds_log_max_trimming,
// debug_mds_log). The object-store placement hint
// (mds_local_osd/mds_local_osd_offset) is a streamer-construction concern,
// not a runtime tunable of the core, and lives in internal/mdlogconfig /
// internal/streamer instead.
type Config struct {
	// Enabled is the master switch (mds_log). When false, Submit and
	// WaitForSync become no-ops that still invoke their callback.
	Enabled bool

	// MaxEvents caps the total live event budget the trimmer targets.
	// -1 disables the check.
	MaxEvents int

	// MaxSegments caps the live (non-trimming) segment budget the
	// trimmer targets. -1 disables the check.
	MaxSegments int

	// MaxTrimming caps the number of segments concurrently expiring.
	MaxTrimming int

	// Debug carries debug_mds_log. Nothing in this package reads it: how
	// much is logged is decided by the injected LogService's own level
	// filtering.
	Debug bool
}

// DefaultConfig matches the teacher's config defaults convention: logging
// on, no budget enforced, a conservative trim concurrency cap.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxEvents:   -1,
		MaxSegments: -1,
		MaxTrimming: 5,
		Debug:       false,
	}
}
