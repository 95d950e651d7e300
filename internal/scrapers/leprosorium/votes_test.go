package leprosorium

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func foldBody(t *testing.T, body string, policy VotePolicy) map[string]int {
	t.Helper()
	ledger, err := decodeLedger([]byte(body))
	require.NoError(t, err)
	pros, cons, _ := ledger.entries()
	return FoldVotes(pros, cons, policy)
}

func TestFoldLedger(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		policy   VotePolicy
		expected map[string]int
	}{
		{
			name:     "one of each",
			body:     `{"pros":[{"user":{"login":"a"},"vote":1}],"cons":[{"user":{"login":"b"},"vote":1}]}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{"a": 1, "b": -1},
		},
		{
			name:     "null lists",
			body:     `{"pros":null,"cons":null}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{},
		},
		{
			name:     "absent lists",
			body:     `{}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{},
		},
		{
			name:     "null body",
			body:     `null`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{},
		},
		{
			name:     "only cons",
			body:     `{"pros":null,"cons":[{"user":{"login":"b"},"vote":2}]}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{"b": -2},
		},
		{
			name: "weighted and loosely typed magnitudes",
			body: `{"pros":[
				{"user":{"login":"a"},"vote":"3"},
				{"user":{"login":"c"},"vote":null},
				{"user":{"login":"d"}},
				{"user":{"login":"e"},"vote":-2}
			]}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{"a": 3, "c": 1, "d": 1, "e": 2},
		},
		{
			name: "login in both lists is overwritten by cons",
			body: `{"pros":[{"user":{"login":"a"},"vote":1}],
				"cons":[{"user":{"login":"a"},"vote":1}]}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{"a": -1},
		},
		{
			name: "login in both lists is summed",
			body: `{"pros":[{"user":{"login":"a"},"vote":2}],
				"cons":[{"user":{"login":"a"},"vote":1}]}`,
			policy:   VotePolicySum,
			expected: map[string]int{"a": 1},
		},
		{
			name:     "entries without a login are dropped",
			body:     `{"pros":[{"user":{"login":""},"vote":1},{"vote":1}],"cons":[{"user":{"login":"b"},"vote":1}]}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{"b": -1},
		},
		{
			name:     "legacy attitudes",
			body:     `{"votes":[{"login":"a","attitude":1},{"login":"b","attitude":-1},{"login":"c","attitude":"-2"}]}`,
			policy:   VotePolicyOverwrite,
			expected: map[string]int{"a": 1, "b": -1, "c": -2},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Empty(t, cmp.Diff(test.expected, foldBody(t, test.body, test.policy)))
		})
	}
}

func TestLedgerSkippedEntries(t *testing.T) {
	ledger, err := decodeLedger([]byte(`{"pros":[{"user":{"login":""},"vote":1},{"vote":1}],"votes":[{"attitude":1}]}`))
	require.NoError(t, err)
	require.Equal(t, 3, ledger.size())
	_, _, skipped := ledger.entries()
	require.Equal(t, 3, skipped)
}

func TestDecodeLedgerRejectsGarbage(t *testing.T) {
	for _, body := range []string{
		``,
		`<html>not json</html>`,
		`[]`,
		`{"pros":{"user":"a"}}`,
		`{"pros":[{"user":{"login":"a"},"vote":"many"}]}`,
	} {
		_, err := decodeLedger([]byte(body))
		require.ErrorIs(t, err, ErrExtractionFailed, body)
	}
}

func TestFoldVotesZeroMagnitude(t *testing.T) {
	folded := FoldVotes(
		[]LedgerEntry{{Login: "a"}},
		[]LedgerEntry{{Login: "b", Magnitude: 0}, {Login: "c", Magnitude: -4}},
		VotePolicySum,
	)
	require.Equal(t, map[string]int{"a": 1, "b": -1, "c": -4}, folded)
}

func TestVotesForm(t *testing.T) {
	require.Equal(
		t,
		"limit=100000&offset=0&csrf_token=a%2Bb%2Fc%3D&user=1234567",
		votesForm(1234567, "a+b/c="),
	)
}

func TestParseVotePolicy(t *testing.T) {
	testCases := []struct {
		input    string
		expected VotePolicy
	}{
		{input: "", expected: VotePolicyOverwrite},
		{input: "overwrite", expected: VotePolicyOverwrite},
		{input: " SUM ", expected: VotePolicySum},
	}
	for _, test := range testCases {
		policy, err := ParseVotePolicy(test.input)
		require.NoError(t, err)
		require.Equal(t, test.expected, policy)
	}

	_, err := ParseVotePolicy("average")
	require.Error(t, err)
}
