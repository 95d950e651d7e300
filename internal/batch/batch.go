package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"karmagrab/internal/components/assert"
	"karmagrab/internal/components/telemetry"
	"karmagrab/internal/output"
	"karmagrab/internal/scrapers/leprosorium"
)

const (
	report_batch_user   = "batch.user"
	report_batch_found  = "batch.found"
	report_batch_failed = "batch.failed"
)

// ErrUsersFailed is returned when the batch ran to the end but some users
// could not be extracted.
var ErrUsersFailed = errors.New("some users could not be grabbed")

// Grabber is implemented by *leprosorium.Grabber.
type Grabber interface {
	Grab(ctx context.Context, login string, withVoters bool) (leprosorium.KarmaRecord, error)
}

type Policy struct {
	// StopOnUnexpectedStatus makes any status other than 200, 302 and 404 abort the batch.
	// Otherwise it is treated like an extraction failure.
	StopOnUnexpectedStatus bool
}

// AbortedError means the batch stopped at Login without resolving the users after it.
type AbortedError struct {
	Login string
	Err   error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("aborted at %q: %s", e.Login, e.Err)
}

func (e *AbortedError) Unwrap() error {
	return e.Err
}

type Failure struct {
	Login string
	Err   error
}

type Summary struct {
	Found    []string
	NotFound []string
	Failed   []Failure
}

func (s Summary) FailedLogins() []string {
	out := make([]string, len(s.Failed))
	for i, f := range s.Failed {
		out[i] = f.Login
	}
	return out
}

// Run grabs every login in order and hands each outcome to `dumper`.
//
// A user that does not exist is written as not found. A user whose page or ledger
// could not be extracted is reported and skipped, and the batch returns ErrUsersFailed
// once every login was tried. Rejected cookies, transport failures, cancellation and
// (depending on the policy) unexpected statuses abort the batch with an *AbortedError,
// in which case the dumper is not ended.
func Run(
	ctx context.Context,
	grabber Grabber,
	dumper output.Dumper,
	logins []string,
	policy Policy,
	tel telemetry.API,
) (Summary, error) {
	assert.NotNil(grabber)
	assert.NotNil(dumper)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("batch", tel)

	var summary Summary
	dumper.Start()
	for _, login := range logins {
		if err := ctx.Err(); err != nil {
			return summary, &AbortedError{Login: login, Err: err}
		}

		record, err := grabber.Grab(ctx, login, dumper.WantsVoters())
		outcome := leprosorium.Classify(err)
		tel.ReportDebug(report_batch_user, login, outcome.String())

		switch outcome {
		case leprosorium.OutcomeFound:
			summary.Found = append(summary.Found, login)
			dumper.Found(login, record)
		case leprosorium.OutcomeNotFound:
			summary.NotFound = append(summary.NotFound, login)
			dumper.NotFound(login)
		case leprosorium.OutcomeExtractionFailed:
			tel.ReportBroken(report_batch_user, err, login)
			summary.Failed = append(summary.Failed, Failure{Login: login, Err: err})
		case leprosorium.OutcomeUnexpectedStatus:
			if policy.StopOnUnexpectedStatus {
				return summary, &AbortedError{Login: login, Err: err}
			}
			tel.ReportBroken(report_batch_user, err, login)
			summary.Failed = append(summary.Failed, Failure{Login: login, Err: err})
		default:
			return summary, &AbortedError{Login: login, Err: err}
		}
	}

	tel.ReportCount(report_batch_found, int64(len(summary.Found)))
	tel.ReportCount(report_batch_failed, int64(len(summary.Failed)))

	err := dumper.End()
	if err != nil {
		return summary, fmt.Errorf("write output: %w", err)
	}
	if len(summary.Failed) > 0 {
		errs := make([]error, len(summary.Failed))
		for i, f := range summary.Failed {
			errs[i] = f.Err
		}
		return summary, fmt.Errorf(
			"%w (%s): %w",
			ErrUsersFailed,
			strings.Join(summary.FailedLogins(), ", "),
			errors.Join(errs...),
		)
	}
	return summary, nil
}
