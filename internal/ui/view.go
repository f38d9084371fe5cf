package ui

import (
	"fmt"
	"strings"

	"reencoder/internal/progress"
	"reencoder/internal/util/format"
)

const failureLogLines = 3

func (m Model) viewHeader() string {
	done, total := 0, len(m.jobOrder)
	for _, id := range m.jobOrder {
		if m.jobs[id].done {
			done++
		}
	}
	mode := string(m.batch.Options.Mode)
	if m.batch.Options.DryRun {
		mode += ", dry run"
	}
	hint := "q: stop"
	if m.stopping {
		hint = "stopping, q again to quit now"
	}
	title := m.styles.Title.Render("reencoder")
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Files: %d/%d done • %s • %s", done, total, mode, hint))
	return title + "\n" + sub
}

func (m Model) viewJobs() string {
	var b strings.Builder
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		b.WriteString(m.viewJob(js))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewJob(js *jobState) string {
	stageStyle := m.styles.JobInfo
	switch js.stage {
	case progress.StageAnalyzing:
		stageStyle = m.styles.StageAnalyze
	case progress.StageTranslating:
		stageStyle = m.styles.StageTranslate
	case progress.StageEncoding:
		stageStyle = m.styles.StageEncode
	case progress.StageComplete:
		stageStyle = m.styles.Success
	case progress.StageError:
		stageStyle = m.styles.Error
	case progress.StageSkipped, progress.StageCancelled:
		stageStyle = m.styles.Warning
	}

	left := m.styles.JobTitle.Render(truncate(js.name(), 48))
	stage := stageStyle.Render(string(js.stage))

	var right string
	switch {
	case js.percent >= 0 && js.percent <= 100:
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
		if js.eta != nil && !js.done {
			right += m.styles.Faint.Render(" ETA " + format.Clock(*js.eta))
		}
	case js.stage == progress.StageError:
		right = m.styles.Error.Render("✗ error")
	case js.stage == progress.StageSkipped:
		right = m.styles.Warning.Render("↷ skipped")
	case js.stage == progress.StageCancelled:
		right = m.styles.Warning.Render("■ cancelled")
	case js.stage == progress.StagePending:
		right = m.styles.Faint.Render("queued")
	default:
		right = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("working")
	}

	line1 := fmt.Sprintf("%s  %s", left, stage)
	line2 := m.styles.JobInfo.Render(js.status)
	out := line1 + "\n" + right + "\n" + line2
	if js.stage == progress.StageError {
		for _, l := range lastN(js.logsRing, failureLogLines) {
			out += "\n" + m.styles.Faint.Render("  "+truncate(l, 100))
		}
	}
	return m.styles.Box.Render(out)
}

func (m Model) viewSummary() string {
	if !m.finished {
		return ""
	}
	var completed, failed []string
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		switch js.stage {
		case progress.StageComplete:
			completed = append(completed, js.output)
		case progress.StageError:
			failed = append(failed, js.name())
		}
	}

	var b strings.Builder
	if len(completed) > 0 {
		b.WriteString(m.styles.Subtitle.Render("✓ Completed Files:"))
		b.WriteString("\n")
		for _, path := range completed {
			b.WriteString(m.styles.Success.Render("  • " + path))
			b.WriteString("\n")
		}
	}
	if len(failed) > 0 {
		b.WriteString(m.styles.Subtitle.Render("✗ Failed Files:"))
		b.WriteString("\n")
		for _, name := range failed {
			b.WriteString(m.styles.Error.Render("  • " + name))
			b.WriteString("\n")
		}
	}
	for _, w := range m.result.Warnings {
		b.WriteString(m.styles.Warning.Render("! " + w))
		b.WriteString("\n")
	}
	return b.String()
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
