/*
Package memo memoizes invocations of expensive, side-effecting external
operations on the local filesystem.

An operation takes structured named inputs and produces named outputs
plus files on disk. memo fingerprints the inputs, maps the fingerprint
to a content-addressed entry directory under a cache root, and never
recomputes an invocation whose entry already exists. Append-only usage
logs track which entries each run touched, and a garbage collector
reclaims everything a chosen usage window no longer references.

# Core Architecture

A cache root is owned by a Memory handle:

  - entry directories, named <identity>-<sha256 of canonical inputs>
  - log.current — keys touched since the handle was opened
  - log.<year>/<month>/<day>.log — append-only day logs

Entries are computed in a hidden staging directory and published with a
single rename, so a half-written entry is never visible. Usage-log
appends are one open-append-close write each, which keeps them atomic
across concurrent processes sharing a root.

# Basic Usage

Wrap an operation and call it with keyword-style inputs:

	mem, err := memo.Open(".cache")
	if err != nil {
	    log.Fatalf("Failed to open cache: %v", err)
	}

	merge := mem.Wrap(mergeOp)
	res, err := merge.Call(ctx, memo.InputSet{
	    "in_files":  []string{"a.nii", "b.nii"},
	    "dimension": "t",
	})
	if err != nil {
	    log.Fatalf("merge failed: %v", err)
	}
	fmt.Println(res.Output("merged_file"), res.Dir())

The second Call with equivalent inputs returns the stored result
without executing the operation.

# Schemas and Fingerprinting

An operation declares a Schema: each input is a scalar, a path
reference, or an ordered sequence of either. Scalars are fingerprinted
by value. Sequences keep their order; [f1, f2] and [f2, f1] are
different invocations. A path reference is fingerprinted by its path
string, or, when declared with TrackedPath, by the pair
(path, last-modified time) taken at call time.

Tracked paths deliberately never hash file content. Touching a file
(same bytes, new mtime) forces a recomputation; rewriting its bytes
without bumping the mtime does not. This trades strict content
addressing for never re-reading large external files, and it means
cache correctness depends on the environment's mtime granularity and on
nothing rewriting files behind the filesystem's back. Switching to
content hashing would change the meaning of every existing key, so this
contract is fixed.

# Reclaiming Space

Day logs and the current-run log supply the retained set:

	// Keep only what this run touched
	n, err := mem.CollectSinceOpen(true)

	// Keep everything used since March 1st; prune older day logs
	n, err := mem.CollectSince(2024, time.March, 1, true)

Collection deletes on-disk entries not in the retained set; retained
keys with no directory are ignored. It must only run after all calls
for the protected window have finished.

# Concurrency

Memory is safe for concurrent use. Racing misses for one key inside a
process run the operation once; across processes both sides may
execute, the first completed publication wins and the loser adopts it.
A corrupt entry (damaged files or manifest) is discarded with a warning
and recomputed on the next call; it is never fatal. A failed usage-log
append is fatal, because collection would no longer be safe.

# Configuration Options

	mem, err := memo.Open(".cache",
	    memo.WithFs(afero.NewMemMapFs()),
	    memo.WithLogger(slog.Default()),
	    memo.WithNowFunc(func() time.Time { return fixed }),
	)
*/
package memo
