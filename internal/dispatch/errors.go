package dispatch

import "fmt"

// ErrorKind is the closed set of error kinds a dispatch can terminate with.
type ErrorKind string

const (
	ErrInputInvalid          ErrorKind = "input_invalid"
	ErrNoMatch               ErrorKind = "no_match"
	ErrShellBlocked          ErrorKind = "shell_blocked"
	ErrConfirmationRequired  ErrorKind = "confirmation_required"
	ErrProviderMissingAuth   ErrorKind = "provider_missing_auth"
	ErrProviderAuthError     ErrorKind = "provider_auth_error"
	ErrProviderRateLimit     ErrorKind = "provider_rate_limit"
	ErrProviderUnreachable   ErrorKind = "provider_unreachable"
	ErrProviderInvalidResp   ErrorKind = "provider_invalid_response"
	ErrCancelled             ErrorKind = "cancelled"
	ErrNonLoopbackTarget     ErrorKind = "non_loopback_target"
	ErrContractDrift         ErrorKind = "contract_drift"
	ErrContractUnrepairable  ErrorKind = "contract_unrepairable"
	ErrInternal              ErrorKind = "internal"
)

// HTTPStatus maps an error kind to the status code the HTTP surface returns
// for it (§7: 200 for success/pending/skipped, 400 for input, 409 for
// confirmation-required, 502 for provider failures, 503 for
// contract-unrepairable).
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrInputInvalid, ErrNoMatch, ErrShellBlocked, ErrNonLoopbackTarget:
		return 400
	case ErrConfirmationRequired:
		return 409
	case ErrProviderMissingAuth, ErrProviderAuthError, ErrProviderRateLimit,
		ErrProviderUnreachable, ErrProviderInvalidResp, ErrCancelled:
		return 502
	case ErrContractUnrepairable:
		return 503
	case ErrContractDrift:
		// Never terminal for a dispatch (§7); surfaced via the
		// contract-status endpoint instead, which has its own mapping.
		return 200
	default:
		return 500
	}
}

// Error is the typed error carried by a terminal dispatch outcome. Its Code
// is always exactly the ErrorKind's string value, per §7.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Code returns the machine code, identical to Kind's string value.
func (e *Error) Code() string { return string(e.Kind) }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// errorResponse builds a terminal error Response routed to route, carrying
// err's code and message.
func errorResponse(route Route, err *Error) Response {
	resp := newResponse(StatusError, route)
	resp.Code = err.Code()
	resp.Message = err.Message
	return resp
}
