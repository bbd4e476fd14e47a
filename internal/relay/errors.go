package relay

import (
	"errors"

	"github.com/voyagen/xtreamrelay/internal/xtream"
)

var (
	// ErrValidation marks caller input rejected before any upstream call.
	ErrValidation = errors.New("invalid request")
	// ErrNotAuthorized is returned for catalog operations without a live session.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrAccountInfoUnavailable is returned when the account payload has no expiry.
	ErrAccountInfoUnavailable = errors.New("account info unavailable")
	// ErrStore wraps session store failures.
	ErrStore = errors.New("session store unavailable")
)

// Kind is the caller-facing error category.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindNotAuthorized
	KindUpstreamUnreachable
	KindUpstreamError
	KindUpstreamFormat
	KindAccountInfoUnavailable
	KindStore
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotAuthorized:
		return "not_authorized"
	case KindUpstreamUnreachable:
		return "upstream_unreachable"
	case KindUpstreamError:
		return "upstream_error"
	case KindUpstreamFormat:
		return "upstream_format"
	case KindAccountInfoUnavailable:
		return "account_info_unavailable"
	case KindStore:
		return "store"
	default:
		return "internal"
	}
}

// Classify maps err onto the error taxonomy.
func Classify(err error) Kind {
	var ue *xtream.UpstreamError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotAuthorized):
		return KindNotAuthorized
	case errors.Is(err, xtream.ErrUnreachable):
		return KindUpstreamUnreachable
	case errors.As(err, &ue):
		return KindUpstreamError
	case errors.Is(err, xtream.ErrFormat):
		return KindUpstreamFormat
	case errors.Is(err, ErrAccountInfoUnavailable):
		return KindAccountInfoUnavailable
	case errors.Is(err, ErrStore):
		return KindStore
	default:
		return KindInternal
	}
}

// Message returns the human-readable text shown to callers for err.
// Upstream messages pass through verbatim.
func Message(err error) string {
	var ue *xtream.UpstreamError
	switch Classify(err) {
	case KindNone:
		return ""
	case KindNotAuthorized:
		return "Not authorized"
	case KindUpstreamError:
		errors.As(err, &ue)
		return ue.Message
	case KindAccountInfoUnavailable:
		return "Account information unavailable"
	case KindStore:
		return "Session store unavailable"
	case KindInternal:
		return "Internal error"
	default:
		return err.Error()
	}
}

// Result is the uniform envelope returned to callers.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data any) Result {
	return Result{Status: "success", Data: data}
}

// Failure wraps err in an error envelope.
func Failure(err error) Result {
	return Result{Status: "error", Message: Message(err)}
}
