package output

import (
	"encoding/json"
	"io"

	"karmagrab/internal/components/chrono"
	"karmagrab/internal/scrapers/leprosorium"
)

type jsonDocument struct {
	Timestamp int64 `json:"timestamp"`
	// a nil record means the user was not found
	Users map[string]*leprosorium.KarmaRecord `json:"users"`
}

// JSON buffers the whole batch and writes it as one document at the end.
// The timestamp is the start of the batch.
type JSON struct {
	out    io.Writer
	clock  chrono.API
	voters bool
	doc    jsonDocument
}

func NewJSON(out io.Writer, clock chrono.API, voters bool) *JSON {
	return &JSON{out: out, clock: clock, voters: voters}
}

func (d *JSON) Start() {
	d.doc = jsonDocument{
		Timestamp: d.clock.Now().Unix(),
		Users:     map[string]*leprosorium.KarmaRecord{},
	}
}

func (d *JSON) Found(login string, record leprosorium.KarmaRecord) {
	d.doc.Users[login] = &record
}

func (d *JSON) NotFound(login string) {
	d.doc.Users[login] = nil
}

func (d *JSON) End() error {
	return json.NewEncoder(d.out).Encode(d.doc)
}

func (d *JSON) WantsVoters() bool {
	return d.voters
}
