package output

import (
	"io"
	"strconv"
	"strings"

	"karmagrab/internal/components/chrono"
	"karmagrab/internal/scrapers/leprosorium"
)

// TSV writes one tab separated line per user as soon as the user is resolved:
//
//	<unix time>	<login>	<comment karma>	<karma>
//	<unix time>	<login>	not found
type TSV struct {
	w     *errWriter
	clock chrono.API
}

func NewTSV(out io.Writer, clock chrono.API) *TSV {
	return &TSV{w: &errWriter{out: out}, clock: clock}
}

func (d *TSV) Start() {}

func (d *TSV) line(fields ...string) {
	d.w.printf("%d\t%s\n", d.clock.Now().Unix(), strings.Join(fields, "\t"))
}

func (d *TSV) Found(login string, record leprosorium.KarmaRecord) {
	d.line(login, strconv.Itoa(record.CommentKarma), strconv.Itoa(record.Karma))
}

func (d *TSV) NotFound(login string) {
	d.line(login, "not found")
}

func (d *TSV) End() error {
	return d.w.err
}

func (d *TSV) WantsVoters() bool {
	return false
}
