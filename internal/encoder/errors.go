package encoder

import (
	"fmt"
	"strings"
)

// LaunchError reports an encoder that could not be started at all, such as
// a missing or non-executable binary.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("launch encoder: %v", e.Err)
	}
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Failure reports an encoder that ran but did not produce its output.
// Tail holds the last lines it wrote to stderr.
type Failure struct {
	Code int
	Tail []string
	Err  error
}

func (e *Failure) Error() string {
	msg := fmt.Sprintf("encoder exited with code %d", e.Code)
	if e.Code == 0 && e.Err != nil {
		msg = e.Err.Error()
	}
	if last := e.LastLine(); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *Failure) Unwrap() error { return e.Err }

// LastLine returns the final non-blank stderr line, usually the reason.
func (e *Failure) LastLine() string {
	for i := len(e.Tail) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(e.Tail[i]); s != "" {
			return s
		}
	}
	return ""
}

// Detail renders the stderr tail for logs.
func (e *Failure) Detail() string { return strings.Join(e.Tail, "\n") }
