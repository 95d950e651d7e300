package leprosorium

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const library_name = "karmagrab.scrapers.leprosorium"

var tracer = otel.Tracer(library_name)
var meter = otel.Meter(library_name)

var grabCounter, _ = meter.Int64Counter(
	"karmagrab.grabs",
	metric.WithDescription("Finished grabs by outcome."),
)

const (
	report_grabber_state       = "grabber.state"
	report_votes_truncated     = "votes.truncated"
	report_votes_missing_login = "votes.missing-login"
	report_grabber_close       = "grabber.close"
)
