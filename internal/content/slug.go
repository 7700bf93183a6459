package content

import (
	"strings"
	"unicode"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify returns a URL-safe, lower-case identifier for s using the default
// slug rules. Accents are folded first ("Café" becomes "cafe"). The result is
// empty when nothing usable remains.
func Slugify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	normalized, err := slug.Normalize(folded)
	if err != nil || !slug.IsValid(normalized) {
		return ""
	}
	return normalized
}
