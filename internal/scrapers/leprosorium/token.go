package leprosorium

import (
	"regexp"

	"karmagrab/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// matches `csrf_token: '...'`, `"csrf_token": "..."` and similar inline assignments,
// but not keys that merely end with csrf_token
var csrfTokenRegex = regexp.MustCompile(`(?:^|[^\w])['"]?csrf_token['"]?\s*:\s*(?:'([^']+)'|"([^"]+)")`)

// FindCSRFToken scans the inline scripts of a page for the anti-forgery token the
// vote ledger endpoint expects. The first assignment found wins.
func FindCSRFToken(doc *goquery.Document) (string, error) {
	var token string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, node := range s.Nodes {
			groups := csrfTokenRegex.FindStringSubmatch(htmlutil.GetText(node))
			if groups == nil {
				continue
			}
			token = groups[1]
			if token == "" {
				token = groups[2]
			}
			return false
		}
		return true
	})
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}
