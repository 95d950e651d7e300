package telemetry

import "karmagrab/internal/components/assert"

// API is what every component reports through instead of logging directly, so tests
// can assert on what a grab reported with RecordingAPI.
type API interface {
	// ReportBroken reports a failure someone should look at, ex. a profile page no strategy understands.
	//
	// The `id` names the component, not the step: a user that could not be grabbed is `batch.user`
	// whether the fetch or the extraction went wrong, the error param tells them apart. Ids are
	// lowercase, dot separated, with dashes inside a single part (`votes.missing-login`).
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is not a failure but may be worth a look, ex. a vote
	// ledger that reached the page limit. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports progress such as grab state transitions, hidden unless --debug is given.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a total, ex. the number of users a batch found. Counts are points in
	// time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id it reports with a namespace, ex. the transport reports
// `resty.request` as `transport: resty.request`.
type ScopedAPI struct {
	prefix string
	inner  API
}

// NewScopedAPI wraps `inner` so that its reports are attributed to `namespace`.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	assert.NotEmptyStr(namespace)
	assert.NotNil(inner)
	return ScopedAPI{prefix: namespace + ": ", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
