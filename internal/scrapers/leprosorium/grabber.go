package leprosorium

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"karmagrab/internal/components/assert"
	"karmagrab/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultProfilePath = "/users/"
	DefaultVotesPath   = "/ajax/user/karma/list/"
)

type Options struct {
	// ProfilePath is prefixed to the escaped login.
	ProfilePath string
	VotesPath   string
	VotePolicy  VotePolicy
	// Strategies defaults to DefaultStrategies().
	Strategies []ProfileStrategy
}

// Grabber resolves one user at a time. It owns the fetcher for its lifetime.
type Grabber struct {
	fetcher   Fetcher
	extractor Extractor
	opts      Options
	tel       telemetry.API
}

func NewGrabber(fetcher Fetcher, opts Options, tel telemetry.API) *Grabber {
	assert.NotNil(fetcher)
	assert.NotNil(tel)

	if opts.ProfilePath == "" {
		opts.ProfilePath = DefaultProfilePath
	}
	if opts.VotesPath == "" {
		opts.VotesPath = DefaultVotesPath
	}
	if opts.VotePolicy == "" {
		opts.VotePolicy = VotePolicyOverwrite
	}

	return &Grabber{
		fetcher:   fetcher,
		extractor: NewExtractor(opts.Strategies...),
		opts:      opts,
		tel:       telemetry.NewScopedAPI("grabber", tel),
	}
}

func (g *Grabber) state(login, state string) {
	g.tel.ReportDebug(report_grabber_state, login, state)
}

// Grab fetches and extracts the profile of `login`, and its vote ledger when withVoters is set.
// The returned error can be passed to Classify.
func (g *Grabber) Grab(ctx context.Context, login string, withVoters bool) (record KarmaRecord, err error) {
	ctx, span := tracer.Start(ctx, "grab", trace.WithAttributes(
		attribute.String("login", login),
		attribute.Bool("with_voters", withVoters),
	))
	defer func() {
		outcome := Classify(err)
		span.SetAttributes(attribute.String("outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome.String())
			g.state(login, outcome.String())
		}
		grabCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
		span.End()
	}()

	if login == "" {
		return KarmaRecord{}, fmt.Errorf("grab: empty login: %w", ErrNotFound)
	}

	g.state(login, "fetching")
	res, err := g.fetcher.Fetch(ctx, http.MethodGet, g.opts.ProfilePath+url.PathEscape(login), "")
	if err != nil {
		return KarmaRecord{}, fmt.Errorf("grab %s: %w", login, err)
	}
	body, err := classify(res)
	if err != nil {
		return KarmaRecord{}, fmt.Errorf("grab %s: %w", login, err)
	}

	g.state(login, "extracting")
	doc, err := ParseDocument(res.ContentType, body)
	if err != nil {
		return KarmaRecord{}, fmt.Errorf("grab %s: %w", login, err)
	}
	record, strategy, err := g.extractor.Extract(doc)
	if err != nil {
		return KarmaRecord{}, fmt.Errorf("grab %s: %w", login, err)
	}
	span.SetAttributes(attribute.String("strategy", strategy))
	g.tel.ReportDebug("matched profile strategy", login, strategy)

	if withVoters {
		g.state(login, "voters_requested")
		token, err := FindCSRFToken(doc)
		if err != nil {
			return KarmaRecord{}, fmt.Errorf("grab %s: %w", login, err)
		}

		g.state(login, "aggregating")
		voters, err := g.Voters(ctx, record.ID, token)
		if err != nil {
			return KarmaRecord{}, fmt.Errorf("grab %s: %w", login, err)
		}
		record.Voters = voters
	}

	g.state(login, "done")
	return record, nil
}

// Voters requests the vote ledger of a user in one page and folds it with the configured policy.
func (g *Grabber) Voters(ctx context.Context, userID int64, token string) (map[string]int, error) {
	ctx, span := tracer.Start(ctx, "voters", trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	res, err := g.fetcher.Fetch(ctx, http.MethodPost, g.opts.VotesPath, votesForm(userID, token))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch vote ledger")
		return nil, err
	}
	body, err := classify(res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch vote ledger")
		return nil, fmt.Errorf("vote ledger: %w", err)
	}

	ledger, err := decodeLedger(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode vote ledger")
		return nil, err
	}
	if ledger.size() >= VotesPageLimit {
		g.tel.ReportWarning(report_votes_truncated, userID, ledger.size())
	}

	pros, cons, skipped := ledger.entries()
	if skipped > 0 {
		g.tel.ReportWarning(report_votes_missing_login, userID, skipped)
	}
	span.SetAttributes(
		attribute.Int("pros", len(pros)),
		attribute.Int("cons", len(cons)),
	)
	return FoldVotes(pros, cons, g.opts.VotePolicy), nil
}

// Close releases the fetcher if it holds any resources.
func (g *Grabber) Close() error {
	closer, ok := g.fetcher.(io.Closer)
	if !ok {
		return nil
	}
	err := closer.Close()
	if err != nil {
		g.tel.ReportBroken(report_grabber_close, err)
	}
	return err
}
