package memo

// Kind classifies how an input value contributes to a fingerprint.
type Kind int

const (
	// KindScalar fingerprints the value itself. The value must survive
	// canonical JSON serialization; two scalars are equivalent iff their
	// serializations are equal.
	KindScalar Kind = iota

	// KindPath fingerprints a string value naming a filesystem object.
	// By default only the path string participates; a tracked path also
	// folds in the object's last-modified time (see TrackedPath).
	KindPath

	// KindSequence fingerprints an ordered slice of element values.
	// Element order is significant and is never sorted: the order of a
	// sequence input carries operation semantics.
	KindSequence
)

// Spec declares one input of an operation's schema.
// Build values with Scalar, Path, TrackedPath and SequenceOf.
type Spec struct {
	Kind       Kind
	Elem       *Spec // element spec when Kind is KindSequence
	TrackMtime bool  // path inputs only: fingerprint (path, mtime)
}

// Scalar declares an input whose value is fingerprinted as-is.
func Scalar() Spec {
	return Spec{Kind: KindScalar}
}

// Path declares a path-reference input fingerprinted by its path string
// alone. The referenced file's content and existence are ignored.
func Path() Spec {
	return Spec{Kind: KindPath}
}

// TrackedPath declares an existence-sensitive path-reference input.
// Its fingerprint is the pair (path, last-modified time), taken at
// fingerprint time; the file must exist. Content is deliberately never
// hashed, so a change that does not bump the mtime goes unnoticed —
// see the package documentation for this contract.
func TrackedPath() Spec {
	return Spec{Kind: KindPath, TrackMtime: true}
}

// SequenceOf declares an ordered sequence input with elements of the
// given spec. Sequences nest.
func SequenceOf(elem Spec) Spec {
	return Spec{Kind: KindSequence, Elem: &elem}
}

// Schema maps input names to their specs. It is supplied by the
// operation definition and is immutable from the engine's perspective.
type Schema map[string]Spec

// InputSet maps input names to values for one invocation.
type InputSet map[string]any

// Validate checks that every input name in the set is declared by the
// schema. An unknown name is the caller's bug and fails fast with a
// SchemaMismatchError, before any fingerprinting happens.
func (s Schema) Validate(op string, inputs InputSet) error {
	for name := range inputs {
		if _, ok := s[name]; !ok {
			return &SchemaMismatchError{Op: op, Input: name}
		}
	}
	return nil
}
