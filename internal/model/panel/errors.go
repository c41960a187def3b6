package panel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigLoad       = errors.New("panel config load failed")
	ErrTemplateNotFound = errors.New("panel template not found")
	ErrPersonaCount     = errors.New("persona_ids must contain 2-4 personas")
	ErrUnknownPersona   = errors.New("unknown persona")
	ErrEmptyMessage     = errors.New("user message cannot be empty")
	ErrNoHistory        = errors.New("no discussion history to summarize")
)

// LoadError reports why a template file could not be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load panel config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrConfigLoad }

// PersonaCountError is returned when a panel is not 2-4 personas wide.
type PersonaCountError struct {
	Got int
}

func (e *PersonaCountError) Error() string {
	return fmt.Sprintf("persona_ids must contain 2-4 personas, got %d", e.Got)
}

func (e *PersonaCountError) Is(target error) bool { return target == ErrPersonaCount }

// UnknownPersonaError names every persona id absent from the known set.
type UnknownPersonaError struct {
	IDs []string
}

func (e *UnknownPersonaError) Error() string {
	return fmt.Sprintf("unknown persona ids: %s", strings.Join(e.IDs, ", "))
}

func (e *UnknownPersonaError) Is(target error) bool { return target == ErrUnknownPersona }

// IsInvalidRequest reports whether err is a configuration or input error the
// caller should surface as a bad request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrPersonaCount) ||
		errors.Is(err, ErrUnknownPersona) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrNoHistory)
}
