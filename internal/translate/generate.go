package translate

import (
	"fmt"

	"reencoder/internal/preset"
)

// Backend is a preset.Visitor that renders the visited preset as a command.
type Backend interface {
	preset.Visitor
	Template() (Template, error)
	Notes() []string
}

// NewBackend returns the backend for e, seeded with the preset identity
// HandBrake needs to re-import it.
func NewBackend(e Engine, p preset.Preset) (Backend, error) {
	switch e {
	case EngineFFmpeg:
		return &FFmpeg{}, nil
	case EngineHandBrake:
		return &HandBrake{name: p.Name, source: p.Source}, nil
	}
	return nil, &Error{Msg: fmt.Sprintf("unknown engine %q", e)}
}

// Generate walks p with the backend for e and returns the command template
// together with notes about settings the engine could not express.
// The result depends only on p and e.
func Generate(p preset.Preset, e Engine) (Template, []string, error) {
	b, err := NewBackend(e, p)
	if err != nil {
		return Template{}, nil, err
	}
	p.Walk(b)
	t, err := b.Template()
	if err != nil {
		return Template{}, nil, err
	}
	return t, b.Notes(), nil
}
