package translate

import "fmt"

// Error reports a template that cannot be generated or instantiated.
type Error struct {
	Template    string
	Placeholder Placeholder // empty when not about a placeholder
	Msg         string
}

func (e *Error) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("translate: %s: %s", e.Placeholder, e.Msg)
	}
	return "translate: " + e.Msg
}
