package memo

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestMain(t *testing.M) {
	code := t.Run()

	os.Exit(code)
}

func fixedNowFunc() time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
}

// testOp is a fake operation with a call counter.
type testOp struct {
	identity string
	schema   Schema
	calls    atomic.Int64
	execute  func(ctx context.Context, dir string, inputs InputSet) (Outputs, error)
}

func (o *testOp) Identity() string { return o.identity }

func (o *testOp) Schema() Schema { return o.schema }

func (o *testOp) Execute(ctx context.Context, dir string, inputs InputSet) (Outputs, error) {
	o.calls.Add(1)
	if o.execute != nil {
		return o.execute(ctx, dir, inputs)
	}
	return Outputs{"status": "done"}, nil
}

// newFileOp returns an operation that writes out.txt into its entry
// directory on the given filesystem, deriving the content from the
// "text" input.
func newFileOp(identity string, fs afero.Fs) *testOp {
	return &testOp{
		identity: identity,
		schema:   Schema{"text": Scalar()},
		execute: func(ctx context.Context, dir string, inputs InputSet) (Outputs, error) {
			text, _ := inputs["text"].(string)
			path := filepath.Join(dir, "out.txt")
			if err := afero.WriteFile(fs, path, []byte(text), 0o644); err != nil {
				return nil, err
			}
			return Outputs{"out_file": "out.txt"}, nil
		},
	}
}

// setupTestMemory creates an in-memory cache for testing.
// It returns the handle and its filesystem.
func setupTestMemory(t *testing.T) (*Memory, afero.Fs) {
	t.Helper()

	memFs := afero.NewMemMapFs()
	mem, err := Open("/memo-test", WithFs(memFs), WithNowFunc(fixedNowFunc))
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	return mem, memFs
}

// createTestFile creates a file with the given path and content in the filesystem.
func createTestFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// callOp runs one memoized invocation and fails the test on error.
func callOp(t *testing.T, mem *Memory, op Operation, inputs InputSet) *Result {
	t.Helper()

	res, err := mem.Wrap(op).Call(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Call failed for %s: %v", op.Identity(), err)
	}
	return res
}
