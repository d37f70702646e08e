package sgp

import "fmt"

const (
	CodeValidation     = "VALIDATION"
	CodeNotLoggedIn    = "NOT_LOGGED_IN"
	CodeSessionExpired = "SESSION_EXPIRED"
	CodeClientNotFound = "CLIENT_NOT_FOUND"
	CodeUnreachable    = "ENDPOINT_UNREACHABLE"
	CodeBusy           = "BUSY"
	CodeTabUnavailable = "TAB_UNAVAILABLE"
	CodeScrapeFailure  = "SCRAPE_FAILURE"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a CodedError. Exported so the coordinating service can
// produce the same taxonomy without re-declaring codes.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}
