package leprosorium

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the site answered 404 for the user.
	ErrNotFound = errors.New("user not found")
	// ErrAuthRequired means the site redirected to its login flow, so the cookie is bad
	// for every request that follows.
	ErrAuthRequired = errors.New("redirected: cookie might be wrong or outdated")
	// ErrExtractionFailed is the root of every markup or payload mismatch.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrTokenNotFound means no inline script carried a csrf_token assignment.
	ErrTokenNotFound = fmt.Errorf("%w: csrf_token not found in any inline script", ErrExtractionFailed)
)

// UnexpectedStatusError is any http status other than 200, 302 and 404.
type UnexpectedStatusError struct {
	Code   int
	Reason string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("bad http code: %d %s", e.Code, e.Reason)
}

// TransportError is a failure to complete the http exchange at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StrategyError is the reason a single profile strategy gave up.
type StrategyError struct {
	Strategy string
	Field    string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %s: %s", e.Strategy, e.Field, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when no profile strategy matched the page.
type ExtractionError struct {
	Attempts []*StrategyError
}

// Strategies returns the names of every attempted strategy, in the order they ran.
func (e *ExtractionError) Strategies() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Strategy
	}
	return names
}

func (e *ExtractionError) Error() string {
	reasons := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		reasons[i] = a.Error()
	}
	return fmt.Sprintf("%s: no profile strategy matched (%s)", ErrExtractionFailed, strings.Join(reasons, "; "))
}

func (e *ExtractionError) Unwrap() error {
	return ErrExtractionFailed
}

// Outcome is the terminal state of a single grab.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeAuthRequired
	OutcomeExtractionFailed
	OutcomeUnexpectedStatus
	OutcomeTransportFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAuthRequired:
		return "auth_required"
	case OutcomeExtractionFailed:
		return "extraction_failed"
	case OutcomeUnexpectedStatus:
		return "unexpected_status"
	default:
		return "transport_failed"
	}
}

// Classify maps the error returned by Grabber.Grab to its outcome. A nil error is OutcomeFound.
func Classify(err error) Outcome {
	var unexpected *UnexpectedStatusError
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAuthRequired):
		return OutcomeAuthRequired
	case errors.Is(err, ErrExtractionFailed):
		return OutcomeExtractionFailed
	case errors.As(err, &unexpected):
		return OutcomeUnexpectedStatus
	default:
		return OutcomeTransportFailed
	}
}
