package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"reencoder/internal/pipeline"
	"reencoder/internal/progress"
	"reencoder/internal/util/format"
)

// progressStep is how far an encode must advance before the plain
// reporter prints again.
const progressStep = 10.0

// textReporter prints stage changes and coarse progress for runs without
// the TUI.
type textReporter struct {
	mu    sync.Mutex
	w     io.Writer
	names map[string]string
	last  map[string]float64
}

func newTextReporter(w io.Writer, names map[string]string) *textReporter {
	return &textReporter{w: w, names: names, last: map[string]float64{}}
}

func (r *textReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.names[u.JobID]
	if u.Stage != progress.StageEncoding || u.Percent < 0 {
		if !u.Stage.Terminal() {
			fmt.Fprintf(r.w, "[%s] %s: %s\n", u.JobID, name, u.Stage)
		}
		return
	}
	if prev, ok := r.last[u.JobID]; ok && u.Percent-prev < progressStep && u.Percent < 100 {
		return
	}
	r.last[u.JobID] = u.Percent
	line := fmt.Sprintf("[%s] %s: %5.1f%%", u.JobID, name, u.Percent)
	if u.ETA != nil {
		line += " ETA " + format.Clock(*u.ETA)
	}
	if u.Speed != nil {
		line += fmt.Sprintf(" (%.2fx)", *u.Speed)
	}
	fmt.Fprintln(r.w, line)
}

func (r *textReporter) Log(progress.Log) {}

func (r *textReporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.names[res.JobID]
	switch res.Stage {
	case progress.StageComplete:
		if res.Bytes > 0 {
			fmt.Fprintf(r.w, "[%s] %s: saved %s (%s)\n", res.JobID, name, res.OutputPath, format.HumanizeBytes(res.Bytes))
		} else {
			fmt.Fprintf(r.w, "[%s] %s: planned %s\n", res.JobID, name, res.Command)
		}
	case progress.StageError:
		fmt.Fprintf(r.w, "[%s] %s: error: %v\n", res.JobID, name, res.Err)
	default:
		fmt.Fprintf(r.w, "[%s] %s: %s\n", res.JobID, name, res.Stage)
	}
}

// printSummary writes the per-file outcome table and batch warnings.
func printSummary(w io.Writer, res pipeline.Result) {
	rows := make([][]string, 0, len(res.Files))
	for _, f := range res.Files {
		detail := f.File.Output
		size := ""
		switch f.Status.Stage {
		case progress.StageError, progress.StageCancelled:
			detail = f.Status.Message
		case progress.StageComplete:
			if fi, err := os.Stat(f.File.Output); err == nil {
				size = format.HumanizeBytes(fi.Size())
			}
		}
		rows = append(rows, []string{f.File.ID, filepath.Base(f.File.Source), string(f.Status.Stage), detail, size})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "File", "Status", "Output / Detail", "Size"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(w, "%d complete, %d failed, %d skipped, %d cancelled, %d not started in %s\n",
		res.Count(progress.StageComplete),
		res.Count(progress.StageError),
		res.Count(progress.StageSkipped),
		res.Count(progress.StageCancelled),
		res.Count(progress.StagePending),
		format.Clock(res.Duration),
	)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
