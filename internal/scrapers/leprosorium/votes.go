package leprosorium

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// VotesPageLimit is the page size of the single vote ledger request. Ledgers longer
// than this are cut off by the site, there is no pagination.
const VotesPageLimit = 100000

// LedgerEntry is a single vote as listed by the site. Magnitude is unsigned, the
// list an entry came from decides its sign.
type LedgerEntry struct {
	Login     string
	Magnitude int
}

type VotePolicy string

const (
	// VotePolicyOverwrite lets cons, which are folded after pros, replace an earlier value for the same login.
	VotePolicyOverwrite VotePolicy = "overwrite"
	// VotePolicySum adds up every contribution of a login.
	VotePolicySum VotePolicy = "sum"
)

func ParseVotePolicy(s string) (VotePolicy, error) {
	switch VotePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", VotePolicyOverwrite:
		return VotePolicyOverwrite, nil
	case VotePolicySum:
		return VotePolicySum, nil
	}
	return "", fmt.Errorf("unknown vote policy %q (expected %q or %q)", s, VotePolicyOverwrite, VotePolicySum)
}

// FoldVotes turns the two ledger lists into a login -> signed score mapping.
// A zero magnitude counts as a single vote.
func FoldVotes(pros, cons []LedgerEntry, policy VotePolicy) map[string]int {
	out := make(map[string]int, len(pros)+len(cons))
	apply := func(entries []LedgerEntry, sign int) {
		for _, e := range entries {
			magnitude := e.Magnitude
			if magnitude < 0 {
				magnitude = -magnitude
			}
			if magnitude == 0 {
				magnitude = 1
			}
			if policy == VotePolicySum {
				out[e.Login] += sign * magnitude
				continue
			}
			out[e.Login] = sign * magnitude
		}
	}
	apply(pros, 1)
	apply(cons, -1)
	return out
}

// magnitude accepts a json number, a quoted number or null.
type magnitude int

func (m *magnitude) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*m = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("vote magnitude %s: %w", data, err)
		}
		n = int(f)
	}
	*m = magnitude(n)
	return nil
}

type ledgerVote struct {
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Vote magnitude `json:"vote"`
}

// legacyVote is the older ledger shape, a single list of signed attitudes.
type legacyVote struct {
	Login    string    `json:"login"`
	Attitude magnitude `json:"attitude"`
}

type voteLedger struct {
	Pros  []ledgerVote `json:"pros"`
	Cons  []ledgerVote `json:"cons"`
	Votes []legacyVote `json:"votes"`
}

// normalize makes null or absent lists empty so that folding never has to care.
func (l *voteLedger) normalize() {
	if l.Pros == nil {
		l.Pros = []ledgerVote{}
	}
	if l.Cons == nil {
		l.Cons = []ledgerVote{}
	}
	if l.Votes == nil {
		l.Votes = []legacyVote{}
	}
}

func (l voteLedger) size() int {
	return len(l.Pros) + len(l.Cons) + len(l.Votes)
}

// entries splits the ledger into pros and cons, dropping entries without a login.
// Legacy votes go to whichever side their sign points to.
func (l voteLedger) entries() (pros, cons []LedgerEntry, skipped int) {
	pros = make([]LedgerEntry, 0, len(l.Pros))
	cons = make([]LedgerEntry, 0, len(l.Cons))
	for _, v := range l.Pros {
		if v.User.Login == "" {
			skipped++
			continue
		}
		pros = append(pros, LedgerEntry{Login: v.User.Login, Magnitude: int(v.Vote)})
	}
	for _, v := range l.Cons {
		if v.User.Login == "" {
			skipped++
			continue
		}
		cons = append(cons, LedgerEntry{Login: v.User.Login, Magnitude: int(v.Vote)})
	}
	for _, v := range l.Votes {
		if v.Login == "" {
			skipped++
			continue
		}
		if v.Attitude < 0 {
			cons = append(cons, LedgerEntry{Login: v.Login, Magnitude: int(-v.Attitude)})
			continue
		}
		pros = append(pros, LedgerEntry{Login: v.Login, Magnitude: int(v.Attitude)})
	}
	return pros, cons, skipped
}

func decodeLedger(body []byte) (voteLedger, error) {
	var ledger voteLedger
	err := json.Unmarshal(body, &ledger)
	if err != nil {
		return voteLedger{}, fmt.Errorf("%w: decode vote ledger: %w", ErrExtractionFailed, err)
	}
	ledger.normalize()
	return ledger, nil
}

// votesForm builds the ledger request body. The field order is fixed, which
// url.Values.Encode would not preserve.
func votesForm(userID int64, token string) string {
	fields := [][2]string{
		{"limit", strconv.Itoa(VotesPageLimit)},
		{"offset", "0"},
		{"csrf_token", token},
		{"user", strconv.FormatInt(userID, 10)},
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = url.QueryEscape(f[0]) + "=" + url.QueryEscape(f[1])
	}
	return strings.Join(parts, "&")
}
