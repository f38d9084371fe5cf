package pipeline

import (
	"fmt"
	"sync"
	"time"

	"reencoder/internal/model"
	"reencoder/internal/progress"
)

// Status is the observable state of one file.
type Status struct {
	Stage   progress.Stage
	Percent float64       // 0..100, <0 when unknown
	ETA     time.Duration // <0 when unknown
	Message string
	Command string // resolved command once translated
	Err     error
	Started time.Time
	Ended   time.Time
}

// FileStatus pairs a file with a snapshot of its status.
type FileStatus struct {
	File   model.File
	Status Status
}

// TransitionError reports a stage change the state machine does not allow.
type TransitionError struct {
	ID       string
	From, To progress.Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("file %s: invalid transition %s -> %s", e.ID, e.From, e.To)
}

// validTransition encodes the per-file state machine:
//
//	pending -> analyzing -> translating -> encoding -> complete
//
// with skipped reachable only from pending, and error or cancelled from any
// running stage.
func validTransition(from, to progress.Stage) bool {
	switch from {
	case progress.StagePending:
		return to == progress.StageAnalyzing || to == progress.StageSkipped
	case progress.StageAnalyzing:
		return to == progress.StageTranslating || to == progress.StageError || to == progress.StageCancelled
	case progress.StageTranslating:
		return to == progress.StageEncoding || to == progress.StageError || to == progress.StageCancelled
	case progress.StageEncoding:
		return to == progress.StageComplete || to == progress.StageError || to == progress.StageCancelled
	}
	return false
}

type entry struct {
	mu   sync.RWMutex
	file model.File
	st   Status
}

// Table holds the status of every file in a batch. Each entry is written
// only by the worker that owns the file; readers get consistent copies.
type Table struct {
	order   []*entry
	entries map[string]*entry
}

// NewTable returns a table with every file pending.
func NewTable(files []model.File) *Table {
	t := &Table{entries: make(map[string]*entry, len(files))}
	for _, f := range files {
		e := &entry{file: f, st: Status{Stage: progress.StagePending, Percent: -1, ETA: -1}}
		t.order = append(t.order, e)
		t.entries[f.ID] = e
	}
	return t
}

func (t *Table) lookup(id string) (*entry, error) {
	e, ok := t.entries[id]
	if !ok {
		return nil, fmt.Errorf("unknown file %q", id)
	}
	return e, nil
}

// Transition moves file id to stage to. err and msg are recorded with it.
func (t *Table) Transition(id string, to progress.Stage, msg string, err error) (Status, error) {
	e, lerr := t.lookup(id)
	if lerr != nil {
		return Status{}, lerr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validTransition(e.st.Stage, to) {
		return e.st, &TransitionError{ID: id, From: e.st.Stage, To: to}
	}
	now := time.Now()
	if e.st.Stage == progress.StagePending {
		e.st.Started = now
	}
	e.st.Stage = to
	e.st.Message = msg
	e.st.Err = err
	switch {
	case to == progress.StageComplete:
		e.st.Percent, e.st.ETA = 100, 0
	case to.Terminal():
		e.st.ETA = -1
	default:
		e.st.Percent, e.st.ETA = -1, -1
	}
	if to.Terminal() {
		e.st.Ended = now
	}
	return e.st, nil
}

// SetCommand records the resolved command of file id.
func (t *Table) SetCommand(id, command string) {
	if e, err := t.lookup(id); err == nil {
		e.mu.Lock()
		e.st.Command = command
		e.mu.Unlock()
	}
}

// SetProgress records an encoding sample. It is ignored outside the
// encoding stage.
func (t *Table) SetProgress(id string, percent float64, eta time.Duration, msg string) {
	e, err := t.lookup(id)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st.Stage != progress.StageEncoding {
		return
	}
	e.st.Percent, e.st.ETA = percent, eta
	if msg != "" {
		e.st.Message = msg
	}
}

// Get returns the status of file id.
func (t *Table) Get(id string) (Status, bool) {
	e, ok := t.entries[id]
	if !ok {
		return Status{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st, true
}

// Snapshot returns every file's status in batch order.
func (t *Table) Snapshot() []FileStatus {
	out := make([]FileStatus, 0, len(t.order))
	for _, e := range t.order {
		e.mu.RLock()
		out = append(out, FileStatus{File: e.file, Status: e.st})
		e.mu.RUnlock()
	}
	return out
}

// Count returns how many files are in stage s.
func (t *Table) Count(s progress.Stage) int {
	n := 0
	for _, fs := range t.Snapshot() {
		if fs.Status.Stage == s {
			n++
		}
	}
	return n
}
