package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

type document struct {
	Templates []docEntry `toml:"template"`
}

type docEntry struct {
	Name        string `toml:"name"`
	Command     string `toml:"command"`
	Description string `toml:"description,omitempty"`
}

// Export writes every template to w as TOML [[template]] tables and
// returns how many were written.
func (s *Store) Export(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	doc := document{Templates: make([]docEntry, 0, len(entries))}
	for _, e := range entries {
		doc.Templates = append(doc.Templates, docEntry{Name: e.Name, Command: e.Command, Description: e.Description})
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return 0, fmt.Errorf("encode templates: %w", err)
	}
	return len(entries), nil
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Imported []string
	Skipped  []string // existing names left alone
}

// Import reads TOML written by Export. Existing templates are kept unless
// overwrite is set. Invalid entries are reported together in the returned
// error while valid ones are still imported. Concurrent imports into the
// same store are serialized with a lock file next to the database.
func (s *Store) Import(ctx context.Context, r io.Reader, overwrite bool) (ImportResult, error) {
	var doc document
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return ImportResult{}, fmt.Errorf("decode templates: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	ok, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return ImportResult{}, fmt.Errorf("lock template store: %w", err)
	}
	if !ok {
		return ImportResult{}, errors.New("template store is locked by another import")
	}
	defer func() { _ = lock.Unlock() }()

	var (
		res  ImportResult
		errs error
	)
	for i, e := range doc.Templates {
		if err := Validate(e.Name, e.Command); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("entry %d: %w", i+1, err))
			continue
		}
		if !overwrite {
			if _, err := s.Load(ctx, e.Name); err == nil {
				res.Skipped = append(res.Skipped, e.Name)
				continue
			} else if !errors.Is(err, ErrNotFound) {
				errs = multierr.Append(errs, err)
				continue
			}
		}
		if err := s.Save(ctx, e.Name, e.Command, e.Description); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		res.Imported = append(res.Imported, e.Name)
	}
	return res, errs
}
