package runner

import (
	"errors"
	"strings"
)

// UnknownError is recorded when a failed stage carries no message
const UnknownError = "Unknown error"

// StageFailure is the recorded outcome of a failed stage
type StageFailure struct {
	Message string
}

// NewStageFailure converts an operation error into a StageFailure with a non-empty message
func NewStageFailure(err error) *StageFailure {
	var sf *StageFailure
	switch {
	case errors.As(err, &sf):
		return &StageFailure{Message: orUnknown(sf.Message)}
	case err != nil:
		return &StageFailure{Message: orUnknown(err.Error())}
	default:
		return &StageFailure{Message: UnknownError}
	}
}

func (e *StageFailure) Error() string {
	return orUnknown(e.Message)
}

func orUnknown(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return UnknownError
	}
	return msg
}
