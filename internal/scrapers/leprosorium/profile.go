package leprosorium

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"karmagrab/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// KarmaRecord is everything extracted for one user. It is built once and not modified afterwards.
type KarmaRecord struct {
	ID           int64  `json:"id"`
	Karma        int    `json:"karma"`
	CommentKarma int    `json:"comment_karma"`
	PostCount    int    `json:"post_count"`
	CommentCount int    `json:"comment_count"`
	// Parent is nil for users nobody invited, and serializes as null.
	Parent *string `json:"parent"`
	// Kids is never nil so it always serializes as a list.
	Kids []string `json:"kids"`
	// Voters is only present when the vote ledger was requested.
	Voters map[string]int `json:"voters,omitempty"`
}

// ProfileStrategy extracts a record from one generation of the profile markup.
// It either resolves every required field or returns a *StrategyError, never a partial record.
type ProfileStrategy interface {
	Name() string
	Extract(doc *goquery.Document) (KarmaRecord, error)
}

// selectorStrategy describes a markup generation by its css selectors.
type selectorStrategy struct {
	name   string
	karma  string
	rating string
	// id is read from idAttr of the element when idAttr is set, from its text otherwise
	id     string
	idAttr string
	parent string
	kids   string
}

// DefaultStrategies lists the known markup generations, newest first.
func DefaultStrategies() []ProfileStrategy {
	return []ProfileStrategy{
		selectorStrategy{
			name:   "2014",
			karma:  ".b-karma_value_inner",
			rating: ".b-user_stat",
			id:     ".b-user_number",
			parent: ".b-user_parent a",
			kids:   ".b-user_children a",
		},
		selectorStrategy{
			name:   "2011",
			karma:  ".uservoteholder span em",
			rating: ".userrating",
			id:     "#uservote .vote",
			idAttr: "uid",
			parent: ".userparent a",
			kids:   ".userchildren a",
		},
		selectorStrategy{
			name:   "2008",
			karma:  ".userkarma strong",
			rating: ".userstat",
			id:     ".usernumber",
			parent: ".userinvited a",
			kids:   ".userinvites a",
		},
	}
}

func (s selectorStrategy) Name() string {
	return s.name
}

func (s selectorStrategy) Extract(doc *goquery.Document) (KarmaRecord, error) {
	fail := func(field string, err error) (KarmaRecord, error) {
		return KarmaRecord{}, &StrategyError{Strategy: s.name, Field: field, Err: err}
	}

	karmaText, err := requireText(doc, s.karma)
	if err != nil {
		return fail("karma", err)
	}
	karma, err := ParseSigned(karmaText)
	if err != nil {
		return fail("karma", err)
	}

	ratingText, err := requireText(doc, s.rating)
	if err != nil {
		return fail("rating", err)
	}
	posts, comments, commentKarma, err := ParseRating(ratingText)
	if err != nil {
		return fail("rating", err)
	}

	var rawID string
	if s.idAttr != "" {
		rawID, err = requireAttr(doc, s.id, s.idAttr)
	} else {
		rawID, err = requireText(doc, s.id)
	}
	if err != nil {
		return fail("id", err)
	}
	id, err := ParseIdentifier(rawID)
	if err != nil {
		return fail("id", err)
	}

	record := KarmaRecord{
		ID:           id,
		Karma:        karma,
		CommentKarma: commentKarma,
		PostCount:    posts,
		CommentCount: comments,
		Kids:         htmlutil.Texts(doc.Find(s.kids)),
	}
	// no parent element means the user has no parent
	if parent := htmlutil.CleanText(doc.Find(s.parent).First().Text()); parent != "" {
		record.Parent = &parent
	}
	return record, nil
}

func requireText(doc *goquery.Document, selector string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	text := htmlutil.CleanText(sel.Text())
	if text == "" {
		return "", fmt.Errorf("element %q is empty", selector)
	}
	return text, nil
}

func requireAttr(doc *goquery.Document, selector, attr string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	value, ok := sel.Attr(attr)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("element %q has no %s attribute", selector, attr)
	}
	return value, nil
}

// Extractor tries each strategy in order and keeps the first full match.
type Extractor struct {
	strategies []ProfileStrategy
}

func NewExtractor(strategies ...ProfileStrategy) Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return Extractor{strategies: strategies}
}

// Extract returns the record of the first strategy that resolves every field, together with its name.
// If none does, the error is an *ExtractionError listing every attempt.
func (e Extractor) Extract(doc *goquery.Document) (KarmaRecord, string, error) {
	var attempts []*StrategyError
	for _, strategy := range e.strategies {
		record, err := strategy.Extract(doc)
		if err == nil {
			return record, strategy.Name(), nil
		}

		attempt, ok := err.(*StrategyError)
		if !ok {
			attempt = &StrategyError{Strategy: strategy.Name(), Field: "record", Err: err}
		}
		attempts = append(attempts, attempt)
	}
	return KarmaRecord{}, "", &ExtractionError{Attempts: attempts}
}

// ParseDocument decodes the body to utf-8 and parses it. Bodies without a declared
// charset that are not valid utf-8 are sniffed from their <meta> tags.
func ParseDocument(contentType string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(decodeBody(contentType, body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", ErrExtractionFailed, err)
	}
	return doc, nil
}

func decodeBody(contentType string, body []byte) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	declared := err == nil && params["charset"] != ""
	if !declared && utf8.Valid(body) {
		return bytes.NewReader(body)
	}
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return reader
}

// three integers in order, separated by anything that is not a digit (newlines included)
var ratingRegex = regexp.MustCompile(`(-?\d+)\D+?(-?\d+)\D+?(-?\d+)`)

var minusSigns = strings.NewReplacer("\u2212", "-", "\u2013", "-")

// ParseRating recovers post count, comment count and comment karma from the rating blob.
func ParseRating(text string) (posts, comments, commentKarma int, err error) {
	groups := ratingRegex.FindStringSubmatch(minusSigns.Replace(text))
	if groups == nil {
		return 0, 0, 0, fmt.Errorf("rating %q does not contain three numbers", text)
	}
	values := make([]int, 3)
	for i := range values {
		values[i], err = strconv.Atoi(groups[i+1])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("rating %q: %w", text, err)
		}
	}
	return values[0], values[1], values[2], nil
}

var identifierNoise = strings.NewReplacer(
	"#", "",
	"\u2116", "",
	".", "",
	",", "",
	"'", "",
	" ", "",
	"\u00a0", "",
	"\u2009", "",
	"\u202f", "",
)

// ParseIdentifier parses a user number rendered with punctuation, ex. "#1.234.567" or "№ 12,345".
func ParseIdentifier(raw string) (int64, error) {
	cleaned := identifierNoise.Replace(htmlutil.CleanText(raw))
	if cleaned == "" {
		return 0, fmt.Errorf("empty identifier %q", raw)
	}
	id, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identifier %q: %w", raw, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("identifier %q is not positive", raw)
	}
	return id, nil
}

// ParseSigned parses a score such as "−12", "+3" or "1 024".
func ParseSigned(raw string) (int, error) {
	cleaned := minusSigns.Replace(htmlutil.CleanText(raw))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("score %q: %w", raw, err)
	}
	return n, nil
}
