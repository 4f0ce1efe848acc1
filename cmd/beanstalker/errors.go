package main

import (
	"errors"

	"github.com/artpar/beanstalker/internal/core/domain"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess          = 0
	ExitConfigError      = 1
	ExitArtifactNotFound = 2
	ExitServiceError     = 3
	ExitCleanupFailures  = 4
)

// =============================================================================
// Command Error
// =============================================================================

// CommandError represents a failed command with its exit code.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// commandError wraps err for op, picking the exit code from its kind.
func commandError(op string, err error) error {
	if err == nil {
		return nil
	}
	code := ExitConfigError
	switch {
	case errors.Is(err, domain.ErrArtifactNotFound):
		code = ExitArtifactNotFound
	case errors.Is(err, domain.ErrServiceRequest):
		code = ExitServiceError
	}
	return &CommandError{Op: op, Err: err, ExitCode: code}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cErr *CommandError
	if errors.As(err, &cErr) {
		return cErr.ExitCode
	}
	return ExitConfigError
}
