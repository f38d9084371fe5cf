package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"reencoder/internal/model"
	"reencoder/internal/pipeline"
)

// Run shows the batch view while start processes b, and returns the batch
// outcome. Quitting the view early cancels the batch and waits for the
// in-flight encodes to stop.
func Run(ctx context.Context, b model.Batch, start StartFunc) (pipeline.Result, error) {
	m := NewModel(ctx, b, start)
	prog := tea.NewProgram(m)
	_, uiErr := prog.Run()

	close(m.run.quit)
	m.cancel()
	<-m.run.done
	if m.run.err != nil {
		return m.run.res, m.run.err
	}
	return m.run.res, uiErr
}
