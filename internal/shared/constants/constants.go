package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// BodyCaptureLimitBytes caps how much of a response body is read for fingerprinting and secret scans.
	BodyCaptureLimitBytes = 1 << 20
	// ScriptFetchTimeout bounds each external script download during a secret scan.
	ScriptFetchTimeout = 3 * time.Second
	// FrameProbeTimeout is how long the browser probe waits for the framed page.
	FrameProbeTimeout = 5 * time.Second
	// DefaultUserAgent identifies requests sent by the tool.
	DefaultUserAgent = "seca-headers/1.0 (+authorized security testing)"
)
