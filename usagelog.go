package memo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// record appends the key to the current-run log and to today's day log.
// Each append opens the file in append mode, writes one line and closes
// it immediately: O_APPEND writes of a short line are atomic with
// respect to interleaving writers, so concurrent processes sharing a
// root never corrupt the logs. The log file is never held open across
// an operation's execution.
func (m *Memory) record(key Key) error {
	if err := m.appendLine(m.currentLogPath(), key); err != nil {
		return err
	}

	dayPath := m.dayLogPath(m.now())
	if err := m.fs.MkdirAll(filepath.Dir(dayPath), 0o755); err != nil {
		return &LogWriteError{Path: dayPath, Err: err}
	}
	return m.appendLine(dayPath, key)
}

func (m *Memory) appendLine(path string, key Key) error {
	f, err := m.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &LogWriteError{Path: path, Err: err}
	}
	_, werr := f.Write([]byte(key.String() + "\n"))
	cerr := f.Close()
	if werr != nil {
		return &LogWriteError{Path: path, Err: werr}
	}
	if cerr != nil {
		return &LogWriteError{Path: path, Err: cerr}
	}
	return nil
}

// CurrentRunKeys returns the set of keys touched since this handle was
// opened. The current-run log is reset at Open, so the set never leaks
// keys from earlier runs against the same root.
func (m *Memory) CurrentRunKeys() (map[Key]struct{}, error) {
	keys := make(map[Key]struct{})
	if err := m.readLogKeys(m.currentLogPath(), keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// UsedSince returns the union of all day logs dated on or after the
// given day.
func (m *Memory) UsedSince(year int, month time.Month, day int) (map[Key]struct{}, error) {
	keys, _, err := m.keysSince(year, month, day)
	return keys, err
}

// keysSince unions the day logs on or after the cutoff day and
// separately collects the day-log files strictly older than it, which
// are the candidates for pruning during a date-window collection.
func (m *Memory) keysSince(year int, month time.Month, day int) (map[Key]struct{}, []string, error) {
	cutoff := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	keys := make(map[Key]struct{})
	var stale []string

	err := m.walkDayLogs(func(path string, logDay time.Time) error {
		if logDay.Before(cutoff) {
			stale = append(stale, path)
			return nil
		}
		return m.readLogKeys(path, keys)
	})
	if err != nil {
		return nil, nil, err
	}
	return keys, stale, nil
}

// walkDayLogs visits every day-log file under the root's log.<year>
// hierarchy, passing its path and the day it covers. Files that don't
// parse as dates are skipped.
func (m *Memory) walkDayLogs(fn func(path string, day time.Time) error) error {
	entries, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		return fmt.Errorf("failed to read cache root: %w", err)
	}

	for _, yearEntry := range entries {
		if !yearEntry.IsDir() || !strings.HasPrefix(yearEntry.Name(), "log.") {
			continue
		}
		year, err := strconv.Atoi(strings.TrimPrefix(yearEntry.Name(), "log."))
		if err != nil {
			continue
		}

		yearDir := filepath.Join(m.root, yearEntry.Name())
		months, err := afero.ReadDir(m.fs, yearDir)
		if err != nil {
			return fmt.Errorf("failed to read log directory %s: %w", yearDir, err)
		}
		for _, monthEntry := range months {
			if !monthEntry.IsDir() {
				continue
			}
			month, err := strconv.Atoi(monthEntry.Name())
			if err != nil {
				continue
			}

			monthDir := filepath.Join(yearDir, monthEntry.Name())
			days, err := afero.ReadDir(m.fs, monthDir)
			if err != nil {
				return fmt.Errorf("failed to read log directory %s: %w", monthDir, err)
			}
			for _, dayEntry := range days {
				if dayEntry.IsDir() || !strings.HasSuffix(dayEntry.Name(), ".log") {
					continue
				}
				day, err := strconv.Atoi(strings.TrimSuffix(dayEntry.Name(), ".log"))
				if err != nil {
					continue
				}

				path := filepath.Join(monthDir, dayEntry.Name())
				logDay := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
				if err := fn(path, logDay); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// readLogKeys reads one usage log and adds its keys to the set.
func (m *Memory) readLogKeys(path string, keys map[Key]struct{}) error {
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read usage log %s: %w", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		keys[Key(line)] = struct{}{}
	}
	return nil
}
