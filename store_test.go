package memo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRacingMissesExecuteOnce(t *testing.T) {
	mem, memFs := setupTestMemory(t)
	gate := make(chan struct{})
	op := newFileOp("demo.Write", memFs)
	slow := op.execute
	op.execute = func(ctx context.Context, dir string, inputs InputSet) (Outputs, error) {
		<-gate
		return slow(ctx, dir, inputs)
	}
	f := mem.Wrap(op)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.Call(context.Background(), InputSet{"text": "shared"})
			return err
		})
	}
	time.Sleep(10 * time.Millisecond)
	close(gate)
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), op.calls.Load(), "racing misses for one key must collapse into a single execution")
}

func TestFailedComputeCleansStaging(t *testing.T) {
	mem, memFs := setupTestMemory(t)
	op := &testOp{
		identity: "demo.Fail",
		schema:   Schema{"text": Scalar()},
		execute: func(ctx context.Context, dir string, inputs InputSet) (Outputs, error) {
			return nil, errors.New("boom")
		},
	}

	_, err := mem.Wrap(op).Call(context.Background(), InputSet{"text": "x"})
	require.Error(t, err)

	entries, err := afero.ReadDir(memFs, mem.Root())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"),
			"staging directory %s left behind after failure", entry.Name())
	}
}

func TestGetOrComputeNilOutputs(t *testing.T) {
	mem, _ := setupTestMemory(t)
	op := &testOp{
		identity: "demo.Silent",
		schema:   Schema{},
		execute: func(ctx context.Context, dir string, inputs InputSet) (Outputs, error) {
			return nil, nil
		},
	}

	res := callOp(t, mem, op, InputSet{})
	assert.Empty(t, res.Outputs())

	// And the entry round-trips as a hit.
	callOp(t, mem, op, InputSet{})
	assert.Equal(t, int64(1), op.calls.Load())
}

func TestStats(t *testing.T) {
	mem, memFs := setupTestMemory(t)
	op := newFileOp("demo.Write", memFs)
	callOp(t, mem, op, InputSet{"text": "a"})
	callOp(t, mem, op, InputSet{"text": "bb"})

	stats, err := mem.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.TotalSize, int64(0))

	entries, err := mem.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, 1, e.OutputCount)
		assert.True(t, e.CreatedAt.Equal(fixedNowFunc()))
		assert.Greater(t, e.Size, int64(0))
	}
}
