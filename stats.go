package memo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Stats represents cache statistics.
type Stats struct {
	Entries     int           // Total number of cache entries
	TotalSize   int64         // Total size of all entry files in bytes
	OldestEntry time.Duration // Age of the oldest entry
	NewestEntry time.Duration // Age of the newest entry
}

// Entry describes a single cache entry for iteration.
type Entry struct {
	Key         Key
	CreatedAt   time.Time
	Size        int64
	OutputCount int
}

// Stats returns statistics about the cache root.
func (m *Memory) Stats() (Stats, error) {
	stats := Stats{}
	var oldest, newest time.Time

	err := m.walkEntries(func(key Key, mf *manifest) error {
		stats.Entries++

		if oldest.IsZero() || mf.CreatedAt.Before(oldest) {
			oldest = mf.CreatedAt
		}
		if newest.IsZero() || mf.CreatedAt.After(newest) {
			newest = mf.CreatedAt
		}

		size, _ := m.dirSize(m.entryDir(key))
		stats.TotalSize += size
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	now := m.now()
	if !oldest.IsZero() {
		stats.OldestEntry = now.Sub(oldest)
	}
	if !newest.IsZero() {
		stats.NewestEntry = now.Sub(newest)
	}

	return stats, nil
}

// Entries returns a snapshot of all cache entries.
func (m *Memory) Entries() ([]Entry, error) {
	var entries []Entry

	err := m.walkEntries(func(key Key, mf *manifest) error {
		size, _ := m.dirSize(m.entryDir(key))
		entries = append(entries, Entry{
			Key:         key,
			CreatedAt:   mf.CreatedAt,
			Size:        size,
			OutputCount: len(mf.Outputs),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// walkEntries walks all entry directories under the root and calls fn
// with each readable manifest. Log directories, staging directories and
// entries with damaged manifests are skipped.
func (m *Memory) walkEntries(fn func(key Key, mf *manifest) error) error {
	dirs, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		name := dir.Name()
		if !dir.IsDir() || strings.HasPrefix(name, "log.") || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := afero.ReadFile(m.fs, filepath.Join(m.root, name, manifestName))
		if err != nil {
			continue
		}
		var mf manifest
		if err := json.Unmarshal(data, &mf); err != nil {
			continue
		}

		if err := fn(Key(name), &mf); err != nil {
			return err
		}
	}
	return nil
}

// dirSize calculates the total size of all files in a directory.
func (m *Memory) dirSize(dir string) (int64, error) {
	var size int64

	err := afero.Walk(m.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	return size, err
}
