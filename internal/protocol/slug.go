package protocol

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugSpaces  = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	slugInvalid = regexp.MustCompile(`[^\w-]+`)
	slugDashes  = regexp.MustCompile(`--+`)
)

// Slugify turns free text into a room-name friendly slug:
// "Café  Talk!" becomes "cafe-talk".
func Slugify(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningDiacritic)))
	s, _, err := transform.String(t, text)
	if err != nil {
		s = text
	}
	s = strings.TrimFunc(strings.ToLower(s), isSlugSpace)
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	return slugDashes.ReplaceAllString(s, "-")
}

// isCombiningDiacritic reports whether r is in the Combining Diacritical
// Marks block. Other nonspacing marks are kept.
func isCombiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

func isSlugSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || r == '\uFEFF'
}
