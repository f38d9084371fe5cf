// Package progress defines the events a running batch emits to observers.
package progress

import (
	"sync"
	"time"
)

// Stage is the status of one file in a batch.
type Stage string

const (
	StagePending     Stage = "pending"
	StageAnalyzing   Stage = "analyzing"
	StageTranslating Stage = "translating"
	StageEncoding    Stage = "encoding"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
	StageSkipped     Stage = "skipped"
	StageCancelled   Stage = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageError, StageSkipped, StageCancelled:
		return true
	}
	return false
}

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a file.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64 // 0..100, or <0 if unknown

	ETA     *time.Duration // optional
	Elapsed *time.Duration // optional media time processed so far
	Speed   *float64       // optional processing rate, media seconds per wall second
	FPS     *float64       // optional
	Message string         // short human-friendly status line
}

// Log is a line of subprocess output associated with a file.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is emitted once per file when it reaches a terminal stage.
type Result struct {
	JobID      string
	Stage      Stage
	SourcePath string
	OutputPath string
	Bytes      int64
	Command    string // resolved command line, also set for dry runs
	Err        error  // nil unless Stage is StageError or StageCancelled
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Multi fans events out to several reporters in order.
type Multi []Reporter

func (m Multi) Update(u Update) {
	for _, r := range m {
		r.Update(u)
	}
}

func (m Multi) Log(l Log) {
	for _, r := range m {
		r.Log(l)
	}
}

func (m Multi) Result(res Result) {
	for _, r := range m {
		r.Result(res)
	}
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	updates []Update
	logs    []Log
	results []Result
}

func (r *Recorder) Update(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *Recorder) Log(l Log) {
	r.mu.Lock()
	r.logs = append(r.logs, l)
	r.mu.Unlock()
}

func (r *Recorder) Result(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

// Updates returns a copy of the recorded updates.
func (r *Recorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

// Logs returns a copy of the recorded log lines.
func (r *Recorder) Logs() []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Log(nil), r.logs...)
}

// Results returns a copy of the recorded results.
func (r *Recorder) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}
