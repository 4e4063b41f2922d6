package memo

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// manifestName is the per-entry metadata file. An entry directory
// without a valid manifest is treated as corrupt.
const manifestName = "manifest.json"

// manifest records what one execution produced. It is written into the
// staging directory before publication, so a visible entry always has
// one.
type manifest struct {
	Key       Key               `json:"key"`
	Outputs   map[string]string `json:"outputs"`
	Checksum  string            `json:"checksum"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Producer computes the outputs of one invocation. It runs in dir, a
// fresh staging directory it may fill with working files; on success
// the directory becomes the cache entry.
type Producer func(ctx context.Context, dir string) (Outputs, error)

// GetOrCompute resolves a key to its cache entry, running produce only
// on a miss.
//
// Entries are published by renaming a completed staging directory into
// place, so no caller ever observes a half-written entry. Concurrent
// misses for the same key inside one process are collapsed into a
// single execution; across processes both sides may execute, the first
// completed rename wins and the loser adopts the winner's entry.
//
// Every successful call, hit or miss, appends the key to the usage
// logs. A failed append is returned as a LogWriteError and must be
// treated as fatal.
func (m *Memory) GetOrCompute(ctx context.Context, key Key, produce Producer) (*Result, error) {
	v, err, _ := m.group.Do(string(key), func() (interface{}, error) {
		return m.getOrCompute(ctx, key, produce)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (m *Memory) getOrCompute(ctx context.Context, key Key, produce Producer) (*Result, error) {
	if result, ok := m.loadEntry(key); ok {
		if err := m.record(key); err != nil {
			return nil, err
		}
		return result, nil
	}

	result, err := m.compute(ctx, key, produce)
	if err != nil {
		return nil, err
	}
	if err := m.record(key); err != nil {
		return nil, err
	}
	return result, nil
}

// compute runs the producer in a staging directory and publishes the
// completed entry.
func (m *Memory) compute(ctx context.Context, key Key, produce Producer) (*Result, error) {
	staging, err := afero.TempDir(m.fs, m.root, ".tmp-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	outputs, err := produce(ctx, staging)
	if err != nil {
		_ = m.fs.RemoveAll(staging)
		return nil, &ExecutionError{Key: key, Err: err}
	}
	if outputs == nil {
		outputs = Outputs{}
	}

	checksum, err := entryChecksum(m.fs, m.newChecksum(), staging, outputs)
	if err != nil {
		_ = m.fs.RemoveAll(staging)
		return nil, fmt.Errorf("failed to checksum outputs for %s: %w", key, err)
	}

	mf := &manifest{
		Key:       key,
		Outputs:   outputs,
		Checksum:  checksum,
		CreatedAt: m.now(),
	}
	if err := m.saveManifest(staging, mf); err != nil {
		_ = m.fs.RemoveAll(staging)
		return nil, err
	}

	dir := m.entryDir(key)
	if err := m.fs.Rename(staging, dir); err != nil {
		// Another process may have published the same key first; if so,
		// discard our work and use theirs.
		_ = m.fs.RemoveAll(staging)
		if result, ok := m.loadEntry(key); ok {
			return result, nil
		}
		return nil, fmt.Errorf("failed to publish entry %s: %w", key, err)
	}

	return m.newResult(key, dir, mf), nil
}

// loadEntry loads an existing entry. A missing directory is a clean
// miss; an unreadable or damaged one is discarded with a warning so the
// next computation can repopulate it. Disk corruption never bricks the
// cache.
func (m *Memory) loadEntry(key Key) (*Result, bool) {
	dir := m.entryDir(key)
	exists, err := afero.DirExists(m.fs, dir)
	if err != nil || !exists {
		return nil, false
	}

	result, err := m.readEntry(key, dir)
	if err != nil {
		m.logger.Warn("discarding corrupt cache entry",
			"key", key.String(), "dir", dir, "error", err)
		_ = m.fs.RemoveAll(dir)
		return nil, false
	}
	return result, true
}

// readEntry reads and verifies an entry directory.
func (m *Memory) readEntry(key Key, dir string) (*Result, error) {
	data, err := afero.ReadFile(m.fs, filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var mf manifest
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if mf.Key != key {
		return nil, fmt.Errorf("manifest names key %s", mf.Key)
	}

	checksum, err := entryChecksum(m.fs, m.newChecksum(), dir, mf.Outputs)
	if err != nil {
		return nil, err
	}
	if checksum != mf.Checksum {
		return nil, fmt.Errorf("checksum mismatch: recorded %s, computed %s", mf.Checksum, checksum)
	}

	return m.newResult(key, dir, &mf), nil
}

// saveManifest writes a manifest into the given directory.
func (m *Memory) saveManifest(dir string, mf *manifest) error {
	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := afero.WriteFile(m.fs, filepath.Join(dir, manifestName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Exists reports whether a completed entry for the key is on disk.
// It never executes anything and does not touch the usage logs.
func (m *Memory) Exists(key Key) bool {
	exists, err := afero.Exists(m.fs, filepath.Join(m.entryDir(key), manifestName))
	return err == nil && exists
}
