package quran

import (
	"strconv"
	"strings"
)

// FilterOptions narrows the chapter dropdown.
type FilterOptions struct {
	FreeWords       string
	RevelationPlace string // "makkah", "madinah" or "" for both
	MinVerses       int
	MaxVerses       int
}

// Filter keeps chapters matching every keyword in FreeWords against the id and
// any of the names, case-insensitively.
func Filter(chapters []Chapter, opt FilterOptions) []Chapter {
	out := []Chapter{}
	kw := strings.Fields(strings.ToLower(opt.FreeWords))
	for _, c := range chapters {
		if opt.RevelationPlace != "" && !strings.EqualFold(c.RevelationPlace, opt.RevelationPlace) {
			continue
		}
		if opt.MinVerses > 0 && c.VersesCount < opt.MinVerses {
			continue
		}
		if opt.MaxVerses > 0 && c.VersesCount > opt.MaxVerses {
			continue
		}
		if len(kw) > 0 && !matchesAll(c, kw) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesAll(c Chapter, kw []string) bool {
	hay := strings.ToLower(strings.Join([]string{
		strconv.Itoa(c.ID),
		c.NameSimple,
		c.NameComplex,
		c.NameArabic,
		c.TranslatedName.Name,
	}, " "))
	for _, k := range kw {
		if !strings.Contains(hay, k) {
			return false
		}
	}
	return true
}
