package memo

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Outputs holds the named outputs of one execution. Values are plain
// strings; file outputs conventionally name files inside the entry
// directory.
type Outputs map[string]string

// Result is one resolved cache entry. It is returned by GetOrCompute
// and Func.Call; users never construct it directly. The entry directory
// it points at is read-only from the engine's perspective.
type Result struct {
	key       Key
	dir       string
	outputs   map[string]string
	createdAt time.Time
	mem       *Memory
}

func (m *Memory) newResult(key Key, dir string, mf *manifest) *Result {
	outputs := mf.Outputs
	if outputs == nil {
		outputs = map[string]string{}
	}
	return &Result{
		key:       key,
		dir:       dir,
		outputs:   outputs,
		createdAt: mf.CreatedAt,
		mem:       m,
	}
}

// Key returns the cache key this result was resolved under.
func (r *Result) Key() Key {
	return r.key
}

// Dir returns the entry directory holding the execution's files.
func (r *Result) Dir() string {
	return r.dir
}

// Output returns a named output value.
// Returns empty string if the output doesn't exist.
func (r *Result) Output(name string) string {
	return r.outputs[name]
}

// Outputs returns all named outputs as a map.
func (r *Result) Outputs() Outputs {
	out := make(Outputs, len(r.outputs))
	for k, v := range r.outputs {
		out[k] = v
	}
	return out
}

// HasOutput returns true if an output with the given name exists.
func (r *Result) HasOutput(name string) bool {
	_, ok := r.outputs[name]
	return ok
}

// Path resolves a file name inside the entry directory.
func (r *Result) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// CreatedAt returns when this entry was originally computed.
func (r *Result) CreatedAt() time.Time {
	return r.createdAt
}

// Age returns how long ago this entry was computed.
func (r *Result) Age() time.Duration {
	return r.mem.now().Sub(r.createdAt)
}

// Size returns the total size of the entry's files in bytes.
// Returns 0 if unable to determine size.
func (r *Result) Size() int64 {
	var total int64
	_ = afero.Walk(r.mem.fs, r.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
