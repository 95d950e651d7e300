package leprosorium

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func readFixture(t testing.TB, name string) []byte {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return contents
}

func parseFixture(t testing.TB, name string) *goquery.Document {
	t.Helper()
	doc, err := ParseDocument("text/html; charset=utf-8", readFixture(t, name))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func parseString(t testing.TB, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func strPtr(s string) *string {
	return &s
}

func TestExtractStrategies(t *testing.T) {
	testCases := []struct {
		fixture  string
		strategy string
		expected KarmaRecord
	}{
		{
			fixture:  "profile_2014.html",
			strategy: "2014",
			expected: KarmaRecord{
				ID:           1234567,
				Karma:        -42,
				CommentKarma: 56,
				PostCount:    12,
				CommentCount: 34,
				Parent:       strPtr("vasya"),
				Kids:         []string{"a", "b"},
			},
		},
		{
			fixture:  "profile_2011.html",
			strategy: "2011",
			expected: KarmaRecord{
				ID:           31337,
				Karma:        17,
				CommentKarma: -5,
				PostCount:    3,
				CommentCount: 28,
				Parent:       strPtr("boss"),
				Kids:         []string{},
			},
		},
		{
			fixture:  "profile_2008.html",
			strategy: "2008",
			expected: KarmaRecord{
				ID:           12345,
				Karma:        8,
				CommentKarma: 0,
				PostCount:    0,
				CommentCount: 7,
				Kids:         []string{"x", "y", "z"},
			},
		},
	}

	extractor := NewExtractor()
	for _, test := range testCases {
		t.Run(test.fixture, func(t *testing.T) {
			record, strategy, err := extractor.Extract(parseFixture(t, test.fixture))
			require.NoError(t, err)
			require.Equal(t, test.strategy, strategy)
			require.Empty(t, cmp.Diff(test.expected, record))
		})
	}
}

func TestExtractUnknownSchema(t *testing.T) {
	record, strategy, err := NewExtractor().Extract(parseFixture(t, "profile_unknown.html"))
	require.ErrorIs(t, err, ErrExtractionFailed)
	require.Empty(t, strategy)
	require.Empty(t, cmp.Diff(KarmaRecord{}, record))

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.Equal(t, []string{"2014", "2011", "2008"}, extractionErr.Strategies())
	for _, name := range extractionErr.Strategies() {
		require.Contains(t, err.Error(), "strategy "+name)
	}
}

func TestExtractNeverReturnsPartialRecord(t *testing.T) {
	// karma and identifier are present but the rating blob only has two numbers
	doc := parseString(t, `<html><body>
		<div class="b-user_number">#42</div>
		<span class="b-karma_value_inner">10</span>
		<div class="b-user_stat">1 post, 2 comments</div>
	</body></html>`)

	record, _, err := NewExtractor().Extract(doc)
	require.ErrorIs(t, err, ErrExtractionFailed)
	require.Empty(t, cmp.Diff(KarmaRecord{}, record))

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.Equal(t, "2014", extractionErr.Attempts[0].Strategy)
	require.Equal(t, "rating", extractionErr.Attempts[0].Field)
}

func TestExtractMissingIdentifierAttribute(t *testing.T) {
	doc := parseString(t, `<html><body>
		<div id="uservote"><a class="vote" href="#"></a></div>
		<div class="uservoteholder"><span><em>17</em></span></div>
		<div class="userrating">3, 28, -5</div>
	</body></html>`)

	_, _, err := NewExtractor().Extract(doc)
	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.Equal(t, "2011", extractionErr.Attempts[1].Strategy)
	require.Equal(t, "id", extractionErr.Attempts[1].Field)
}

func TestExtractCustomStrategies(t *testing.T) {
	doc := parseFixture(t, "profile_2008.html")

	_, _, err := NewExtractor(DefaultStrategies()[:2]...).Extract(doc)
	require.ErrorIs(t, err, ErrExtractionFailed)

	_, strategy, err := NewExtractor(DefaultStrategies()[2]).Extract(doc)
	require.NoError(t, err)
	require.Equal(t, "2008", strategy)
}

func TestParseRating(t *testing.T) {
	testCases := []struct {
		text     string
		posts    int
		comments int
		karma    int
	}{
		{text: "12 posts · 34 comments · 56 karma", posts: 12, comments: 34, karma: 56},
		{text: "12\n34\n56", posts: 12, comments: 34, karma: 56},
		{text: "posts: 12;\n\tcomments: 34;\n\tkarma: -56", posts: 12, comments: 34, karma: -56},
		{text: "12 постов, 34 комментария, карма \u221256", posts: 12, comments: 34, karma: -56},
		{text: "(0) [0] {0}", posts: 0, comments: 0, karma: 0},
		{text: "12, 34, 56, 78", posts: 12, comments: 34, karma: 56},
	}

	for _, test := range testCases {
		posts, comments, karma, err := ParseRating(test.text)
		require.NoError(t, err, test.text)
		require.Equal(t, test.posts, posts, test.text)
		require.Equal(t, test.comments, comments, test.text)
		require.Equal(t, test.karma, karma, test.text)
	}

	for _, text := range []string{"", "12 posts", "12 posts and 34 comments"} {
		_, _, _, err := ParseRating(text)
		require.Error(t, err, text)
	}
}

func TestParseIdentifier(t *testing.T) {
	testCases := []struct {
		raw      string
		expected int64
	}{
		{raw: "#1.234.567", expected: 1234567},
		{raw: "№ 12,345", expected: 12345},
		{raw: "12\u00a0345", expected: 12345},
		{raw: "1\u2009000", expected: 1000},
		{raw: "  31337\n", expected: 31337},
		{raw: "1'000'000", expected: 1000000},
	}
	for _, test := range testCases {
		id, err := ParseIdentifier(test.raw)
		require.NoError(t, err, test.raw)
		require.Equal(t, test.expected, id, test.raw)
	}

	for _, raw := range []string{"", "#", "abc", "#0", "-5", "12a"} {
		_, err := ParseIdentifier(raw)
		require.Error(t, err, raw)
	}
}

func TestParseSigned(t *testing.T) {
	testCases := []struct {
		raw      string
		expected int
	}{
		{raw: "\u221212", expected: -12},
		{raw: "-12", expected: -12},
		{raw: "+3", expected: 3},
		{raw: " 1 024 ", expected: 1024},
		{raw: "1\u00a0024", expected: 1024},
		{raw: "0", expected: 0},
	}
	for _, test := range testCases {
		n, err := ParseSigned(test.raw)
		require.NoError(t, err, test.raw)
		require.Equal(t, test.expected, n, test.raw)
	}

	_, err := ParseSigned("many")
	require.Error(t, err)
}

func TestParseDocumentDecodesDeclaredCharset(t *testing.T) {
	// "карма" in windows-1251
	cp1251 := []byte{0xea, 0xe0, 0xf0, 0xec, 0xe0}
	body := append([]byte(`<html><body><div class="x">`), cp1251...)
	body = append(body, []byte(`</div></body></html>`)...)

	doc, err := ParseDocument("text/html; charset=windows-1251", body)
	require.NoError(t, err)
	require.Equal(t, "карма", doc.Find(".x").Text())
}

func TestParseDocumentKeepsUndeclaredUtf8(t *testing.T) {
	doc, err := ParseDocument("text/html", []byte(`<html><body><div class="x">карма</div></body></html>`))
	require.NoError(t, err)
	require.Equal(t, "карма", doc.Find(".x").Text())
}
