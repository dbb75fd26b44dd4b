// Package atomicfile provides crash-safe file writing using temporary files
// and atomic renames.

package atomicfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File is one target of [WriteSet].
type File struct {
	Path string
	Data []byte
	Perm os.FileMode
}

// Write atomically writes data to path using a temporary-file-and-rename
// strategy. The temp file lives in the same directory as path so the final
// [os.Rename] never crosses a filesystem. If any step fails the temp file is
// removed.
func Write(path string, data []byte, perm os.FileMode) error {
	tmp, err := stage(File{Path: path, Data: data, Perm: perm})
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteSet writes several files as a group. Every file is fully written and
// synced to a temp file before any target is replaced, so a failure while
// writing leaves all targets untouched. Renames then happen in order; if one
// fails, the remaining temp files are removed and the error names the first
// target that was not replaced.
func WriteSet(files []File) error {
	tmps := make([]string, 0, len(files))
	cleanup := func(from int) {
		for _, t := range tmps[from:] {
			os.Remove(t)
		}
	}

	for _, f := range files {
		tmp, err := stage(f)
		if err != nil {
			cleanup(0)
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		tmps = append(tmps, tmp)
	}

	for i, tmp := range tmps {
		if err := os.Rename(tmp, files[i].Path); err != nil {
			cleanup(i)
			return fmt.Errorf("rename temp file for %s: %w", files[i].Path, err)
		}
	}
	return nil
}

// stage writes f to a synced temp file next to f.Path with f.Perm applied
// and returns the temp file's name. On error nothing is left behind.
func stage(f File) (name string, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name = tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(name)
		}
	}()

	if _, err = tmp.Write(f.Data); err != nil {
		return "", errors.Join(fmt.Errorf("write temp file: %w", err), tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return "", errors.Join(fmt.Errorf("sync temp file: %w", err), tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(name, f.Perm); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return name, nil
}
