package ai

import (
	"errors"
	"fmt"
)

// ErrSchema marks a 2xx upstream response whose payload did not match the
// expected shape (no image in the list, non-audio content type, and so on).
var ErrSchema = errors.New("unexpected upstream response")

// APIError represents a non-success status from an upstream service.
type APIError struct {
	Service string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s api error: %s", e.Service, e.Message)
}
