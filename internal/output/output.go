package output

import (
	"fmt"
	"io"
	"strings"

	"karmagrab/internal/components/assert"
	"karmagrab/internal/components/chrono"
	"karmagrab/internal/scrapers/leprosorium"
)

// Dumper receives the outcome of every grabbed user of a batch, in order.
// Start is called once before the first user and End once after the last.
type Dumper interface {
	Start()
	Found(login string, record leprosorium.KarmaRecord)
	NotFound(login string)
	// End flushes whatever is buffered and returns the first write error, if any.
	End() error
	// WantsVoters reports whether records should carry the vote ledger.
	WantsVoters() bool
}

type Format string

const (
	FormatTSV   Format = "tsv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTSV:
		return FormatTSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatTable:
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected tsv, json or table)", s)
}

type Options struct {
	Format Format
	// Voters only applies to formats that can show the vote ledger.
	Voters bool
}

// New creates the dumper for a format, writing to `out`.
func New(out io.Writer, clock chrono.API, opts Options) (Dumper, error) {
	assert.NotNil(out)
	assert.NotNil(clock)

	switch opts.Format {
	case "", FormatTSV:
		return NewTSV(out, clock), nil
	case FormatJSON:
		return NewJSON(out, clock, opts.Voters), nil
	case FormatTable:
		return NewTable(out), nil
	}
	return nil, fmt.Errorf("unknown output format %q", opts.Format)
}

// errWriter keeps the first error so callers can write unconditionally and check once.
type errWriter struct {
	out io.Writer
	err error
}

func (w *errWriter) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}
