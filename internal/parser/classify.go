package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/patchgest/internal/patchdoc"
	"golang.org/x/text/unicode/norm"
)

// itemHeadings are the sub headings Riot uses for item sections.
var itemHeadings = map[string]bool{
	"CORE ITEMS":    true,
	"RADIANT ITEMS": true,
	"ARTIFACTS":     true,
	"EMBLEMS":       true,
}

var tierPattern = regexp.MustCompile(`TIER\s*(\d+)`)

// upper folds compatibility characters (non-breaking spaces, full-width
// letters) before upper-casing so headings compare on their visible text.
func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(s)))
}

// SizeFromMajorHeading maps an h2 title to its change-size group.
func SizeFromMajorHeading(title string) patchdoc.Size {
	t := upper(title)
	switch {
	case strings.Contains(t, "LARGE CHANGES"):
		return patchdoc.SizeLarge
	case strings.Contains(t, "SMALL CHANGES"):
		return patchdoc.SizeSmall
	}
	return patchdoc.SizeAll
}

// CategoryFromSubHeading maps an h4 title to a category. Anything not
// recognised (leveling, encounters, auras, ...) is "other".
func CategoryFromSubHeading(title string) patchdoc.Category {
	t := upper(title)
	switch {
	case t == "":
		return patchdoc.CategoryOther
	case strings.HasPrefix(t, "UNITS:"):
		return patchdoc.CategoryChampions
	case t == "TRAITS":
		return patchdoc.CategoryTraits
	case t == "AUGMENTS":
		return patchdoc.CategoryAugments
	case itemHeadings[t]:
		return patchdoc.CategoryItems
	}
	return patchdoc.CategoryOther
}

// TierFromSubHeading extracts N from "... TIER N ..." and reports whether
// one was found.
func TierFromSubHeading(title string) (int, bool) {
	m := tierPattern.FindStringSubmatch(upper(title))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
