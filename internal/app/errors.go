package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"marketmind/pkg/ai"
)

// Error kinds, matched with errors.Is. Every stage failure wraps exactly one
// of these so the boundary can tell a caller mistake from a broken deployment
// from a downed service.
var (
	// ErrValidation is a caller mistake; no network call was made.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration is a deployment mistake (missing endpoint, bad
	// workflow template). Never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstreamUnavailable covers connection refused and DNS failures.
	ErrUpstreamUnavailable = errors.New("generation service unavailable")
	// ErrUpstreamTimeout covers calls that exceeded the per-service budget.
	ErrUpstreamTimeout = errors.New("generation service timed out")
	// ErrUpstreamBadResponse covers non-2xx statuses and 2xx responses whose
	// payload does not match the expected schema.
	ErrUpstreamBadResponse = errors.New("generation service returned an unusable response")
	// ErrPersistence is a store failure; fatal for the invocation.
	ErrPersistence = errors.New("persistence failed")
	// ErrConversationNotFound is returned by read operations on a
	// conversation the owner does not have.
	ErrConversationNotFound = errors.New("conversation not found")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func configurationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func persistenceErr(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// upstreamErr classifies a failed upstream call. Timeouts are checked before
// connection errors because http.Client deadline failures arrive as
// *url.Error with Timeout() == true.
func upstreamErr(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s did not answer in time: %v", ErrUpstreamTimeout, service, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s did not answer in time: %v", ErrUpstreamTimeout, service, err)
	}
	if errors.Is(err, ai.ErrSchema) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamBadResponse, service, err)
	}
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamBadResponse, service, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: cannot reach %s: %v", ErrUpstreamUnavailable, service, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, service, err)
}
