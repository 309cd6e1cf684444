package archivist

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultRootURL is the address slugs are resolved against unless configured otherwise.
const DefaultRootURL = "https://www.let.leidenuniv.nl/Dutch/Ceneton/"

const documentSuffix = ".html"

// CanonicalURL resolves a slug against root, cuts it at the first '#' and
// ensures the result ends in ".html". The slug text is kept as written: spaces,
// non-ASCII characters and stray '%' signs are not escaped.
//
//	CanonicalURL(root, "foo/bar#frag") == root + "foo/bar.html"
//	CanonicalURL(root, "foo/bar.html") == root + "foo/bar.html"
//	CanonicalURL(root, "foo bar")      == root + "foo bar.html"
func CanonicalURL(root, slug string) (string, error) {
	base, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("parsing root url: %w", err)
	}

	s, _, _ := strings.Cut(strings.TrimSpace(slug), "#")

	var u string
	switch {
	case hasScheme(s):
		u = s
	case strings.HasPrefix(s, "//"):
		u = base.Scheme + ":" + s
	default:
		// Path holds unescaped text, so the resolved Path is the raw joined path.
		p, query, hasQuery := strings.Cut(s, "?")
		resolved := base.ResolveReference(&url.URL{Path: p, RawQuery: query, ForceQuery: hasQuery})
		authority := &url.URL{Scheme: base.Scheme, User: base.User, Host: base.Host}
		u = authority.String() + resolved.Path
		if hasQuery {
			u += "?" + query
		}
	}

	if !strings.HasSuffix(u, documentSuffix) {
		u += documentSuffix
	}
	return u, nil
}

// hasScheme reports whether s starts with "<scheme>:" (RFC 3986 section 3.1).
func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}
