package memo

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/spf13/afero"
)

// Fingerprint is the canonical structural representation of one
// invocation's inputs, as seen through the operation's schema.
// Two input sets are equivalent iff their fingerprints serialize to the
// same canonical form.
type Fingerprint struct {
	inputs map[string]any
}

// fingerprint derives the canonical representation of an input set.
// Inputs must already be validated against the schema; stat failures on
// tracked paths surface as errors because an existence-sensitive path
// is required to exist at fingerprint time.
func fingerprint(fs afero.Fs, inputs InputSet, schema Schema) (Fingerprint, error) {
	out := make(map[string]any, len(inputs))
	for name, value := range inputs {
		spec := schema[name]
		fv, err := fingerprintValue(fs, value, spec)
		if err != nil {
			return Fingerprint{}, fmt.Errorf("input %s: %w", name, err)
		}
		out[name] = fv
	}
	return Fingerprint{inputs: out}, nil
}

// fingerprintValue applies the per-kind rule, recursing over sequences.
func fingerprintValue(fs afero.Fs, value any, spec Spec) (any, error) {
	switch spec.Kind {
	case KindScalar:
		return value, nil

	case KindPath:
		path, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("path input must be a string, got %T", value)
		}
		if !spec.TrackMtime {
			return path, nil
		}
		info, err := fs.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		// (path, mtime) — content is deliberately not hashed.
		return []any{path, info.ModTime().UnixNano()}, nil

	case KindSequence:
		elems, err := asSlice(value)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, elem := range elems {
			fv, err := fingerprintValue(fs, elem, *spec.Elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = fv
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown input kind %d", spec.Kind)
	}
}

// asSlice accepts []any directly and converts any other slice type
// (e.g. []string from a caller) via reflection.
func asSlice(value any) ([]any, error) {
	if elems, ok := value.([]any); ok {
		return elems, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("sequence input must be a slice, got %T", value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// canonical serializes the fingerprint as canonical JSON: object keys
// sorted, sequence order preserved. This is the byte form the cache key
// digest is computed over.
func (f Fingerprint) canonical() ([]byte, error) {
	return canonicalize(f.inputs)
}

// String returns the canonical JSON, for debugging and logging.
func (f Fingerprint) String() string {
	b, err := f.canonical()
	if err != nil {
		return fmt.Sprintf("<unserializable fingerprint: %v>", err)
	}
	return string(b)
}

// canonicalize produces a deterministic JSON representation of a value.
// Maps are written with sorted keys; slices keep their order.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')
		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
