package xtream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable covers transport failures: DNS, refused connections, timeouts.
	ErrUnreachable = errors.New("upstream unreachable")
	// ErrFormat is returned when the upstream answered with an unexpected shape.
	ErrFormat = errors.New("unexpected upstream response")
)

// UpstreamError is a well-formed upstream reply that signals failure,
// such as rejected credentials or a non-2xx status.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func unreachable(cause string) error {
	return fmt.Errorf("%w: %s", ErrUnreachable, cause)
}

func badFormat(what string) error {
	return fmt.Errorf("%w: %s", ErrFormat, what)
}

// outcome labels an error for metrics.
func outcome(err error) string {
	var ue *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.As(err, &ue):
		return "upstream_error"
	case errors.Is(err, ErrFormat):
		return "format_error"
	default:
		return "error"
	}
}
