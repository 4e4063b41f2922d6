package memo

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Collect deletes every cache entry under the root whose key is not in
// the retained set, and returns how many were removed. Retained keys
// that never materialized as directories are ignored: deletion is the
// one-sided difference of on-disk entries minus retained, never the
// symmetric one. A per-entry notice is logged when warn is set.
//
// Collection is destructive and irreversible. It must only run once all
// record calls for the window it protects have completed; collecting
// while other processes are still populating or reading entries for the
// same window can delete results that are about to be reused.
func (m *Memory) Collect(retained map[Key]struct{}, warn bool) (int, error) {
	entries, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache root: %w", err)
	}

	collected := 0
	for _, entry := range entries {
		name := entry.Name()
		// Usage logs and in-flight staging directories are not entries.
		if !entry.IsDir() || strings.HasPrefix(name, "log.") || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := retained[Key(name)]; ok {
			continue
		}

		dir := m.entryDir(Key(name))
		if exists, err := afero.DirExists(m.fs, dir); err != nil || !exists {
			continue // already gone
		}
		if warn {
			m.logger.Warn("removing cache entry", "dir", dir)
		}
		if err := m.fs.RemoveAll(dir); err != nil {
			return collected, fmt.Errorf("failed to remove entry %s: %w", name, err)
		}
		collected++
	}
	return collected, nil
}

// CollectSinceOpen deletes every entry not used since this handle was
// opened, i.e. everything absent from the current-run log.
func (m *Memory) CollectSinceOpen(warn bool) (int, error) {
	retained, err := m.CurrentRunKeys()
	if err != nil {
		return 0, err
	}
	return m.Collect(retained, warn)
}

// CollectSince deletes every entry not used on or after the given day,
// judged by the day logs, and prunes the day-log files that predate it.
func (m *Memory) CollectSince(year int, month time.Month, day int, warn bool) (int, error) {
	retained, stale, err := m.keysSince(year, month, day)
	if err != nil {
		return 0, err
	}

	collected, err := m.Collect(retained, warn)
	if err != nil {
		return collected, err
	}

	for _, path := range stale {
		if err := m.fs.Remove(path); err != nil {
			return collected, fmt.Errorf("failed to prune day log %s: %w", path, err)
		}
	}
	return collected, nil
}
