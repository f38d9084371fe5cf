package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MakeTempWorkdir creates a unique temp directory under base (or $TMPDIR/reencoder when base is empty).
func MakeTempWorkdir(base, prefix string) (string, error) {
	if base == "" {
		base = filepath.Join(os.TempDir(), "reencoder")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, prefix+"-")
}

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveIfExists deletes the file if present.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	} else if os.IsNotExist(err) {
		return nil
	} else {
		return err
	}
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// WaitForFile polls for path with exponential backoff starting at delay,
// for up to attempts checks. Some encoders return before the muxer has
// finished renaming its output into place.
func WaitForFile(ctx context.Context, path string, attempts int, delay time.Duration) (os.FileInfo, error) {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; ; i++ {
		if fi, err := os.Stat(path); err == nil {
			return fi, nil
		}
		if i+1 >= attempts {
			return nil, fmt.Errorf("output %s not found after %d checks", path, attempts)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
