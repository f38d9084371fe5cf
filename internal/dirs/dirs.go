// Package dirs locates the per-user directories reencoder keeps its
// config, template database, lock file and scratch files in.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "reencoder"

// HomeEnv, when set, roots every directory below it (config, data, cache
// and state as subdirectories). Handy for portable installs and tests.
const HomeEnv = "REENCODER_HOME"

type kind int

const (
	kindConfig kind = iota
	kindData
	kindCache
	kindState
)

// layout describes where a kind lives on each platform.
type layout struct {
	sub    string   // subdirectory under HomeEnv
	xdg    string   // linux override variable
	linux  []string // below $HOME
	darwin []string // below $HOME
	other  func() (string, error)
}

var layouts = map[kind]layout{
	kindConfig: {
		sub: "config", xdg: "XDG_CONFIG_HOME",
		linux:  []string{".config"},
		darwin: []string{"Library", "Application Support"},
		other:  os.UserConfigDir,
	},
	kindData: {
		sub: "data", xdg: "XDG_DATA_HOME",
		linux:  []string{".local", "share"},
		darwin: []string{"Library", "Application Support"},
		other:  os.UserConfigDir,
	},
	kindCache: {
		sub: "cache", xdg: "XDG_CACHE_HOME",
		linux:  []string{".cache"},
		darwin: []string{"Library", "Caches"},
		other:  os.UserCacheDir,
	},
	kindState: {
		sub: "state", xdg: "XDG_STATE_HOME",
		linux:  []string{".local", "state"},
		darwin: []string{"Library", "Application Support"},
		other:  os.UserCacheDir,
	},
}

func resolve(k kind) (string, error) {
	l := layouts[k]
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, l.sub), nil
	}

	var dir string
	switch runtime.GOOS {
	case "linux":
		if x := os.Getenv(l.xdg); x != "" {
			return filepath.Join(x, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(append([]string{home}, l.linux...)...)
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(append([]string{home}, l.darwin...)...)
	default:
		base, err := l.other()
		if err != nil {
			return "", err
		}
		dir = base
	}
	p := filepath.Join(dir, appName)
	// State shares the application folder outside XDG systems.
	if k == kindState && runtime.GOOS != "linux" {
		p = filepath.Join(p, "state")
	}
	return p, nil
}

// ConfigDir holds config.{yaml,toml,json}.
func ConfigDir() (string, error) { return resolve(kindConfig) }

// DataDir holds the template database.
func DataDir() (string, error) { return resolve(kindData) }

// CacheDir holds scratch files such as extracted subtitles.
func CacheDir() (string, error) { return resolve(kindCache) }

// StateDir holds the batch lock and the TUI log file.
func StateDir() (string, error) { return resolve(kindState) }

func under(dir func() (string, error), name string) (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// TemplateDBPath returns the SQLite database of saved command templates.
func TemplateDBPath() (string, error) { return under(DataDir, "templates.db") }

// BatchLockPath returns the lock file guarding against concurrent batches.
func BatchLockPath() (string, error) { return under(StateDir, "batch.lock") }

// TempBaseDir returns the parent of per-batch working directories.
func TempBaseDir() (string, error) { return under(CacheDir, "temp") }

// Ensure creates path and its parents.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll creates every application directory that can be resolved.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, DataDir, CacheDir, StateDir} {
		p, err := fn()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
