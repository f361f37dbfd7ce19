package scenario

import "fmt"

var (
	ErrInvalidYAML   = fmt.Errorf("invalid yaml format")
	ErrEmptyDocument = fmt.Errorf("empty scenario document")
)

// ValidationError reports the first rejected field of a document.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scenario field %q: %s", e.Field, e.Reason)
}
