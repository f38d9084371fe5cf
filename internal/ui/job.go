package ui

import (
	"path/filepath"
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"reencoder/internal/model"
	"reencoder/internal/progress"
)

const logRingSize = 50

type jobState struct {
	id     string
	source string
	output string
	stage  progress.Stage
	status string
	err    error
	done   bool

	bytes   int64
	percent float64 // -1 means unknown
	eta     *time.Duration
	command string

	spinner spinner.Model
	bar     bubblesprogress.Model

	// Recent subprocess output, shown for failed files.
	logsRing []string
}

func newJobState(f model.File, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      f.ID,
		source:  f.Source,
		output:  f.Output,
		stage:   progress.StagePending,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}

func (js *jobState) name() string { return filepath.Base(js.source) }

func (js *jobState) addLog(line string) {
	if len(js.logsRing) >= logRingSize {
		js.logsRing = js.logsRing[1:]
	}
	js.logsRing = append(js.logsRing, line)
}
