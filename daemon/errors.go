package daemon

import "errors"

// These sentinel errors are the daemon-level error kinds from
// SPEC_FULL.md §7 that do not already have a natural home in a lower
// package (graphstore.ErrUnknownFile and watch's ExtractFailed warning
// live closer to where they occur). Where one is returned it is wrapped
// with %w, so callers (the CLI, the control API) test for it with
// errors.Is.
var (
	// ErrStoreUnavailable is fatal: the supervisor snapshots whatever
	// state it has and exits.
	ErrStoreUnavailable = errors.New("daemon: graph store unavailable")
	// ErrSnapshotFailed triggers a bounded retry-with-backoff before
	// falling back to logging and continuing.
	ErrSnapshotFailed = errors.New("daemon: snapshot write failed")
	// ErrWatcherLost is returned by Supervisor.Run when the filesystem
	// watch cannot be started or its event stream ends. Run does not
	// re-establish the watch and does not fall back to periodic full
	// scans; it returns.
	ErrWatcherLost = errors.New("daemon: file watcher lost")
	// ErrQueryBadInput is returned to a control-API caller as a
	// structured error, never logged as a daemon fault.
	ErrQueryBadInput = errors.New("daemon: invalid query input")
)
