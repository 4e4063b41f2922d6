package memo

import (
	"context"
	"fmt"
)

// Operation is an expensive external computation the engine can
// memoize. The engine never looks inside an operation; it only
// fingerprints its inputs and manages the cache slot its results live
// in.
type Operation interface {
	// Identity is a stable name for the operation type, constant across
	// process restarts. It becomes part of every cache key.
	Identity() string

	// Schema declares the operation's input names and kinds. It is used
	// only for validation and fingerprinting.
	Schema() Schema

	// Execute runs the operation with the given inputs. dir is the
	// entry directory in the making; the operation writes its files
	// there and returns its named outputs. It is never asked to run
	// twice for the same inputs through this engine.
	Execute(ctx context.Context, dir string, inputs InputSet) (Outputs, error)
}

// Func is a memoized operation bound to one cache root.
//
//	mem, _ := memo.Open(".cache")
//	merge := mem.Wrap(mergeOp)
//	res, err := merge.Call(ctx, memo.InputSet{"in_files": files, "dimension": "t"})
type Func struct {
	mem *Memory
	op  Operation
}

// Wrap returns a memoized callable for the operation. Repeated calls
// with equivalent inputs execute the operation once and reuse the
// stored entry afterwards.
func (m *Memory) Wrap(op Operation) *Func {
	return &Func{mem: m, op: op}
}

// Key resolves an input set to its cache key without executing
// anything. Validation and fingerprinting failures surface here.
func (f *Func) Key(inputs InputSet) (Key, error) {
	schema := f.op.Schema()
	if err := schema.Validate(f.op.Identity(), inputs); err != nil {
		return "", err
	}
	fp, err := fingerprint(f.mem.fs, inputs, schema)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint inputs for %s: %w", f.op.Identity(), err)
	}
	return buildKey(f.op.Identity(), fp)
}

// Call resolves the inputs to a cache entry, executing the operation
// only on a miss. The resolved key is recorded in the usage logs either
// way.
func (f *Func) Call(ctx context.Context, inputs InputSet) (*Result, error) {
	key, err := f.Key(inputs)
	if err != nil {
		return nil, err
	}
	return f.mem.GetOrCompute(ctx, key, func(ctx context.Context, dir string) (Outputs, error) {
		return f.op.Execute(ctx, dir, inputs)
	})
}

// Exists reports whether a completed entry for the inputs is on disk,
// without executing the operation or touching the usage logs.
func (f *Func) Exists(inputs InputSet) (bool, error) {
	key, err := f.Key(inputs)
	if err != nil {
		return false, err
	}
	return f.mem.Exists(key), nil
}

// String implements fmt.Stringer.
func (f *Func) String() string {
	return fmt.Sprintf("Func(%s, root=%s)", f.op.Identity(), f.mem.root)
}
