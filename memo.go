package memo

import (
	"fmt"
	"hash"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// ChecksumFunc defines a function that creates a new hash.Hash used for
// entry output checksums.
type ChecksumFunc func() hash.Hash

// NowFunc defines a function that returns the current time.
type NowFunc func() time.Time

// Option defines a function that configures a Memory.
type Option func(*Memory)

// Memory is a handle on one cache root. It owns the cache entries and
// the usage logs under the root and is safe for concurrent use; several
// handles on distinct roots can coexist in one process.
type Memory struct {
	root         string
	fs           afero.Fs
	nowFunc      NowFunc
	checksumFunc ChecksumFunc
	logger       *slog.Logger
	group        singleflight.Group
}

// Open creates a handle on the cache root at the given path.
// The directory is created if it doesn't exist; an existing non-directory
// path fails with ErrInvalidRoot. Opening truncates the current-run
// usage log, so the log reflects exactly the keys touched through this
// handle's lifetime.
func Open(root string, options ...Option) (*Memory, error) {
	m := &Memory{
		root:         root,
		fs:           afero.NewOsFs(),
		nowFunc:      time.Now,
		checksumFunc: defaultChecksumFunc,
		logger:       slog.Default(),
	}

	// Apply options
	for _, option := range options {
		option(m)
	}

	info, err := m.fs.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	case err != nil:
		if err := m.fs.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache root: %w", err)
		}
	}

	// Recreate the current-run log empty
	if err := afero.WriteFile(m.fs, m.currentLogPath(), nil, 0o644); err != nil {
		return nil, fmt.Errorf("failed to reset current-run log: %w", err)
	}

	return m, nil
}

// OpenTemp creates an in-memory cache for testing.
func OpenTemp() *Memory {
	m, err := Open("/memo", WithFs(afero.NewMemMapFs()))
	if err != nil {
		panic(fmt.Sprintf("failed to create temp cache: %v", err))
	}
	return m
}

// Root returns the cache root path.
func (m *Memory) Root() string {
	return m.root
}

// entryDir returns the path of the entry directory for a key.
func (m *Memory) entryDir(key Key) string {
	return filepath.Join(m.root, string(key))
}

// currentLogPath returns the path of the current-run usage log.
func (m *Memory) currentLogPath() string {
	return filepath.Join(m.root, "log.current")
}

// dayLogPath returns the path of the day log for the given time.
func (m *Memory) dayLogPath(t time.Time) string {
	return filepath.Join(m.root,
		fmt.Sprintf("log.%d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d.log", t.Day()))
}

// newChecksum creates a new checksum hash instance.
func (m *Memory) newChecksum() hash.Hash {
	return m.checksumFunc()
}

// now returns the current time.
func (m *Memory) now() time.Time {
	return m.nowFunc()
}

// defaultChecksumFunc returns the default checksum hash (xxHash64).
func defaultChecksumFunc() hash.Hash {
	return xxhash.New()
}
