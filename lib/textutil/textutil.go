package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// ParseScrapedFloat parses numbers the way scraped pages print them:
// thousands separators, surrounding whitespace, an optional trailing "%".
// A bare "-" placeholder or unparseable text returns ok=false.
func ParseScrapedFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func ParseScrapedInt(s string) (int64, bool) {
	n, ok := ParseScrapedFloat(s)
	if !ok {
		return 0, false
	}
	return int64(n), true
}
