package leprosorium

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindCSRFToken(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "single quotes",
			html:     `<script>var o = {csrf_token: 'abc123'};</script>`,
			expected: "abc123",
		},
		{
			name:     "double quotes with quoted key",
			html:     `<script>var o = {"csrf_token": "abc123"};</script>`,
			expected: "abc123",
		},
		{
			name:     "whitespace around the colon",
			html:     "<script>\n\tcsrf_token \t:\n  'a+b/c='\n</script>",
			expected: "a+b/c=",
		},
		{
			name: "first script wins",
			html: `<script>var nothing = 1;</script>
				<script>csrf_token: 'first'</script>
				<script>csrf_token: 'second'</script>`,
			expected: "first",
		},
		{
			name:     "longer keys are not the token",
			html:     `<script>var o = {xcsrf_token: 'wrong', other_csrf_token: "wrong", csrf_token: 'right'};</script>`,
			expected: "right",
		},
		{
			name:     "key at the start of the script",
			html:     `<script>csrf_token: 'abc'</script>`,
			expected: "abc",
		},
		{
			name:     "fixture page",
			html:     string(readFixture(t, "profile_2014.html")),
			expected: "tok-2014-abc",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			token, err := FindCSRFToken(parseString(t, "<html><head>"+test.html+"</head><body></body></html>"))
			require.NoError(t, err)
			require.Equal(t, test.expected, token)
		})
	}
}

func TestFindCSRFTokenMissing(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{name: "no scripts", html: `<html><body><p>hello</p></body></html>`},
		{name: "token outside of scripts", html: `<html><body><p>csrf_token: 'abc'</p></body></html>`},
		{name: "empty value", html: `<html><body><script>csrf_token: ''</script></body></html>`},
		{name: "unquoted value", html: `<html><body><script>csrf_token: abc</script></body></html>`},
		{name: "only longer keys", html: `<html><body><script>var o = {my_csrf_token: 'abc'};</script></body></html>`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			token, err := FindCSRFToken(parseString(t, test.html))
			require.ErrorIs(t, err, ErrTokenNotFound)
			require.ErrorIs(t, err, ErrExtractionFailed)
			require.Empty(t, token)
		})
	}

	token, err := FindCSRFToken(parseFixture(t, "profile_2008.html"))
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.Empty(t, token)
}
