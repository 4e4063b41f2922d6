package memo

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRecordWritesBothLogs(t *testing.T) {
	mem, memFs := setupTestMemory(t)
	op := newFileOp("demo.Write", memFs)

	res := callOp(t, mem, op, InputSet{"text": "hello"})

	current, err := afero.ReadFile(memFs, mem.currentLogPath())
	require.NoError(t, err)
	assert.Equal(t, res.Key().String()+"\n", string(current))

	// fixedNowFunc is 2020-03-01.
	day, err := afero.ReadFile(memFs, filepath.Join(mem.Root(), "log.2020", "03", "01.log"))
	require.NoError(t, err)
	assert.Equal(t, res.Key().String()+"\n", string(day))
}

func TestRecordHitAndMissBothLogged(t *testing.T) {
	mem, memFs := setupTestMemory(t)
	op := newFileOp("demo.Write", memFs)

	res := callOp(t, mem, op, InputSet{"text": "hello"})
	callOp(t, mem, op, InputSet{"text": "hello"})

	current, err := afero.ReadFile(memFs, mem.currentLogPath())
	require.NoError(t, err)
	want := res.Key().String() + "\n" + res.Key().String() + "\n"
	assert.Equal(t, want, string(current))
}

func TestDayLogsSurviveReopen(t *testing.T) {
	mem, memFs := setupTestMemory(t)
	op := newFileOp("demo.Write", memFs)
	res := callOp(t, mem, op, InputSet{"text": "hello"})

	_, err := Open(mem.Root(), WithFs(memFs), WithNowFunc(fixedNowFunc))
	require.NoError(t, err)

	day, err := afero.ReadFile(memFs, filepath.Join(mem.Root(), "log.2020", "03", "01.log"))
	require.NoError(t, err)
	assert.Equal(t, res.Key().String()+"\n", string(day))
}

func TestUsedSinceWindows(t *testing.T) {
	memFs := afero.NewMemMapFs()
	clock := time.Date(2020, 2, 20, 0, 0, 0, 0, time.UTC)
	mem, err := Open("/memo-window", WithFs(memFs), WithNowFunc(func() time.Time { return clock }))
	require.NoError(t, err)
	op := newFileOp("demo.Write", memFs)

	early := callOp(t, mem, op, InputSet{"text": "early"})

	clock = time.Date(2020, 3, 5, 0, 0, 0, 0, time.UTC)
	late := callOp(t, mem, op, InputSet{"text": "late"})

	keys, err := mem.UsedSince(2020, time.March, 1)
	require.NoError(t, err)
	assert.Contains(t, keys, late.Key())
	assert.NotContains(t, keys, early.Key())

	keys, err = mem.UsedSince(2020, time.February, 1)
	require.NoError(t, err)
	assert.Contains(t, keys, early.Key())
	assert.Contains(t, keys, late.Key())
}

func TestKeysSinceReportsStaleLogs(t *testing.T) {
	memFs := afero.NewMemMapFs()
	clock := time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)
	mem, err := Open("/memo-stale", WithFs(memFs), WithNowFunc(func() time.Time { return clock }))
	require.NoError(t, err)
	op := newFileOp("demo.Write", memFs)

	callOp(t, mem, op, InputSet{"text": "old"})
	clock = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	callOp(t, mem, op, InputSet{"text": "new"})

	_, stale, err := mem.keysSince(2020, time.January, 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, filepath.Join(mem.Root(), "log.2019", "12", "31.log"), stale[0])
}

// Concurrent appends must land as whole lines. This runs against the
// real filesystem: the guarantee under test is O_APPEND itself.
func TestConcurrentRecordAppends(t *testing.T) {
	mem, err := Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	const writers = 64
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		key := Key(fmt.Sprintf("demo-Write-%064d", i))
		g.Go(func() error {
			return mem.record(key)
		})
	}
	require.NoError(t, g.Wait())

	data, err := afero.ReadFile(mem.fs, mem.currentLogPath())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, writers)

	seen := make(map[string]struct{}, writers)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "demo-Write-"), "malformed line %q", line)
		assert.Len(t, line, len("demo-Write-")+64)
		seen[line] = struct{}{}
	}
	assert.Len(t, seen, writers)
}
