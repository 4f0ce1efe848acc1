package platform

import (
	"errors"

	smithy "github.com/aws/smithy-go"

	"github.com/artpar/beanstalker/internal/core/domain"
)

// serviceError wraps a failed AWS call, keeping the API error code if any.
func serviceError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	sErr := &domain.ServiceRequestError{
		Op:     op,
		Target: target,
		Err:    err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		sErr.Code = apiErr.ErrorCode()
	}
	return sErr
}
