package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"reencoder/internal/model"
	"reencoder/internal/pipeline"
	"reencoder/internal/progress"
	"reencoder/internal/util/format"
)

// StartFunc runs the batch, reporting progress to rep.
type StartFunc func(ctx context.Context, rep progress.Reporter) (pipeline.Result, error)

// batchRun is shared between the model copies and Run.
type batchRun struct {
	done chan struct{}
	res  pipeline.Result
	err  error

	// closed when the program has exited, so reporters stop blocking
	quit chan struct{}
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	start  StartFunc
	run    *batchRun

	batch    model.Batch
	jobOrder []string
	jobs     map[string]*jobState

	stopping bool
	finished bool
	result   pipeline.Result
	runErr   error

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, b model.Batch, start StartFunc) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(b.Files))
	order := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		js := newJobState(f, sty)
		jobs[f.ID] = &js
		order = append(order, f.ID)
	}

	return Model{
		ctx:      c,
		cancel:   cancel,
		start:    start,
		run:      &batchRun{done: make(chan struct{}), quit: make(chan struct{})},
		batch:    b,
		jobs:     jobs,
		jobOrder: order,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	cmds = append(cmds, m.listenEventsCmd(), m.startBatchCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// First press stops the batch cooperatively; a second one
			// leaves without waiting.
			if m.stopping || m.finished {
				m.cancel()
				return m, tea.Quit
			}
			m.stopping = true
			m.cancel()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case jobUpdateMsg, jobLogMsg, jobResultMsg:
		m.applyEvent(msg)
	case batchDoneMsg:
		m.drainEvents()
		m.finished = true
		m.result = msg.Result
		m.runErr = msg.Err
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	switch msg.(type) {
	case jobUpdateMsg, jobLogMsg, jobResultMsg:
		// Keep listening for events
		cmds = append(cmds, m.listenEventsCmd())
	}
	return m, tea.Batch(cmds...)
}

// applyEvent folds a reporter event into the job it belongs to.
func (m Model) applyEvent(msg tea.Msg) {
	switch msg := msg.(type) {
	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.eta = u.ETA
			if u.Message != "" {
				js.status = u.Message
			}
		}
	case jobLogMsg:
		l := msg.L
		if js, ok := m.jobs[l.JobID]; ok {
			js.addLog(strings.TrimRight(l.Line, "\r\n"))
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.stage = r.Stage
			js.err = r.Err
			js.bytes = r.Bytes
			js.command = r.Command
			js.eta = nil
			switch r.Stage {
			case progress.StageComplete:
				js.percent = 100
				name := filepath.Base(r.OutputPath)
				if m.batch.Options.DryRun {
					js.status = fmt.Sprintf("Planned: %s", name)
				} else {
					js.status = fmt.Sprintf("Saved: %s (%s)", name, format.HumanizeBytes(r.Bytes))
				}
			case progress.StageSkipped:
				js.percent = -1
				js.status = "Skipped: output exists"
			case progress.StageCancelled:
				js.percent = -1
				js.status = "Cancelled"
			default:
				js.percent = -1
				if r.Err != nil {
					js.status = r.Err.Error()
				}
			}
		}
	}
}

// drainEvents applies events still queued when the batch ends.
func (m Model) drainEvents() {
	for {
		select {
		case msg := <-m.eventCh:
			m.applyEvent(msg)
		default:
			return
		}
	}
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.run.done:
			return nil
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) startBatchCmd() tea.Cmd {
	run := m.run
	rep := teaReporter{ch: m.eventCh, quit: run.quit}
	go func() {
		defer close(run.done)
		run.res, run.err = m.start(m.ctx, rep)
	}()
	return func() tea.Msg {
		<-run.done
		return batchDoneMsg{Result: run.res, Err: run.err}
	}
}

type teaReporter struct {
	ch   chan tea.Msg
	quit <-chan struct{}
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.quit:
	}
}

func (r teaReporter) Update(u progress.Update) {
	// Stage changes must arrive; progress ticks may be dropped.
	if u.Stage != progress.StageEncoding || u.Percent < 0 {
		r.send(jobUpdateMsg{U: u})
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	// Always block on Result messages - they're critical
	r.send(jobResultMsg{R: res})
}
