package memo

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// Default size for the buffer used when hashing files
const defaultBufferSize = 32 * 1024 // 32KB

// bufferPool is a pool of byte slices used for file I/O during hashing
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, defaultBufferSize)
		return &buffer
	},
}

// hashReader hashes the content from a reader using the provided hash.
func hashReader(content io.Reader, h hash.Hash) error {
	bufPtr := bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(h, content, buffer)
	if err != nil {
		return fmt.Errorf("failed to copy content: %w", err)
	}
	return nil
}

// entryChecksum computes the checksum recorded in an entry manifest:
// the named outputs in sorted order, then every file under the entry
// directory (relative path plus content), excluding the manifest itself.
// The same walk runs at store and load time, so any damage to an
// entry's files after the fact shows up as a mismatch.
func entryChecksum(fs afero.Fs, h hash.Hash, dir string, outputs map[string]string) (string, error) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(h, "%d", len(names))
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte(outputs[name]))
	}

	var files []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(path) == manifestName {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk entry %s: %w", dir, err)
	}
	sort.Strings(files)

	fmt.Fprintf(h, "%d", len(files))
	for _, rel := range files {
		h.Write([]byte(rel))
		f, err := fs.Open(filepath.Join(dir, rel))
		if err != nil {
			return "", fmt.Errorf("failed to open entry file %s: %w", rel, err)
		}
		if err := hashReader(f, h); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to hash entry file %s: %w", rel, err)
		}
		_ = f.Close()
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
