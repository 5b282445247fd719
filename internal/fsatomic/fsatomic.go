// Package fsatomic replaces a file's content without ever exposing a
// half-written state: the new content goes to a sibling temp file which is
// verified, synced and renamed over the original.
package fsatomic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPartialWrite marks a rename that did not complete cleanly. The state
// of the target path is unknown from this layer; the caller must tell the
// user to verify the file by hand instead of assuming it is unchanged.
var ErrPartialWrite = errors.New("partial write: rename did not complete cleanly")

// Commit atomically replaces the file at path with produce(original bytes).
//
// The temp file is created in the same directory as path, so the final
// rename stays on one filesystem and is atomic. On any failure before the
// rename the temp file is removed and the original is untouched. Once the
// rename has started, the commit runs to completion.
func Commit(path string, produce func(original []byte) ([]byte, error)) error {
	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	next, err := produce(original)
	if err != nil {
		return fmt.Errorf("produce new content: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".albumtag-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	renamed := false
	defer func() {
		if !renamed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(next); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return fmt.Errorf("stat temp file: %w", err)
	}
	if info.Size() != int64(len(next)) {
		return fmt.Errorf("verify temp file: %d bytes on disk, want %d", info.Size(), len(next))
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Leave the temp file next to the original for manual recovery.
		renamed = true
		return fmt.Errorf("%w: %v (temp file kept at %s)", ErrPartialWrite, err, tmpPath)
	}
	renamed = true

	return nil
}
