package document

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	titleSkipPattern = regexp.MustCompile(`^\d+$|^page\s+\d+|^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	titleSkipWords   = []string{"copyright", "version", "draft", "confidential"}
)

// titleScanLimit bounds how many top-of-page elements are considered.
const titleScanLimit = 15

// ExtractTitle picks a title from the first page: the first prominent line
// near the top that is not a page number, date or boilerplate notice.
// Returns "" when nothing qualifies.
func ExtractTitle(d *Document) string {
	if d == nil || len(d.Pages) == 0 {
		return ""
	}
	elems := append([]Element(nil), d.Pages[0].Elements...)
	sort.SliceStable(elems, func(i, j int) bool {
		if elems[i].Y() != elems[j].Y() {
			return elems[i].Y() < elems[j].Y()
		}
		return elems[i].X() < elems[j].X()
	})
	if len(elems) > titleScanLimit {
		elems = elems[:titleScanLimit]
	}

	for _, e := range elems {
		text := strings.TrimSpace(e.Text)
		n := utf8.RuneCountInString(text)
		if n < 5 {
			continue
		}
		lower := strings.ToLower(text)
		if titleSkipPattern.MatchString(lower) {
			continue
		}
		skip := false
		for _, w := range titleSkipWords {
			if strings.Contains(lower, w) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if (n > 10 && (e.FontSize > 14 || e.Bold)) || n > 20 {
			return text
		}
	}
	return ""
}
