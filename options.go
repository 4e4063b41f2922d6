package memo

import (
	"log/slog"

	"github.com/spf13/afero"
)

// WithFs sets a custom filesystem for the cache.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	mem, err := memo.Open(".cache", memo.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(m *Memory) {
		m.fs = fs
	}
}

// WithChecksumFunc sets the hash used for entry output checksums.
// The default is xxHash64, which is plenty for corruption detection.
// The cache key digest is not affected: keys always use SHA-256.
//
// Note: Changing the checksum function makes existing entries verify
// as corrupt, forcing recomputation.
func WithChecksumFunc(checksumFunc ChecksumFunc) Option {
	return func(m *Memory) {
		m.checksumFunc = checksumFunc
	}
}

// WithNowFunc sets a custom time function for the cache.
// This is primarily useful for testing with deterministic timestamps;
// it drives the day-log paths used by date-window collection.
func WithNowFunc(nowFunc NowFunc) Option {
	return func(m *Memory) {
		m.nowFunc = nowFunc
	}
}

// WithLogger sets the structured logger used for corrupt-entry warnings
// and garbage-collection notices. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memory) {
		m.logger = logger
	}
}
