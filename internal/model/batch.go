// Package model holds the batch description shared by the pipeline, the CLI
// and the UI.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode selects how a batch schedules its files.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// DefaultJobs is the worker count of a parallel batch when none is given.
const DefaultJobs = 2

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSequential, "":
		return ModeSequential, nil
	case ModeParallel:
		return ModeParallel, nil
	}
	return "", fmt.Errorf("unknown mode %q (want sequential or parallel)", s)
}

// Options are the run-wide settings of a batch.
type Options struct {
	Mode         Mode
	Jobs         int // parallel workers; <=0 means DefaultJobs
	SkipExisting bool
	DryRun       bool
}

// Workers returns the number of files that may encode at once.
func (o Options) Workers() int {
	if o.Mode != ModeParallel {
		return 1
	}
	if o.Jobs <= 0 {
		return DefaultJobs
	}
	return o.Jobs
}

// File is one entry of a batch.
type File struct {
	ID     string // stable within the batch, used as the progress job ID
	Source string
	Output string
}

// Batch is an ordered list of files processed under shared options.
type Batch struct {
	ID      string
	Files   []File
	Options Options
	Created time.Time
}

// Pair is a source file and the output planned for it.
type Pair struct {
	Source string
	Output string
}

// NewBatch numbers the pairs in order and stamps a fresh batch ID.
func NewBatch(pairs []Pair, opts Options) Batch {
	b := Batch{
		ID:      uuid.NewString(),
		Options: opts,
		Created: time.Now(),
		Files:   make([]File, 0, len(pairs)),
	}
	width := len(fmt.Sprint(len(pairs)))
	for i, p := range pairs {
		b.Files = append(b.Files, File{
			ID:     fmt.Sprintf("%0*d", width, i+1),
			Source: p.Source,
			Output: p.Output,
		})
	}
	return b
}
