package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Deployment Errors
// =============================================================================

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrServiceRequest   = errors.New("service request failed")
)

// ArtifactNotFoundError reports a local artifact missing before upload.
type ArtifactNotFoundError struct {
	Path string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact %s does not exist", e.Path)
}

// Is makes errors.Is(err, ErrArtifactNotFound) match.
func (e *ArtifactNotFoundError) Is(target error) bool {
	return target == ErrArtifactNotFound
}

// ServiceRequestError reports a failed call to the storage or hosting service.
// Target names what the call was about: an artifact path, an application
// name or a version label.
type ServiceRequestError struct {
	Op     string
	Target string
	Code   string
	Err    error
}

func (e *ServiceRequestError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Op, e.Target)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceRequestError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrServiceRequest) match.
func (e *ServiceRequestError) Is(target error) bool {
	return target == ErrServiceRequest
}
