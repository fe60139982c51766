package prompts

import (
	"regexp"
	"strings"
)

const (
	// optional heading marker, bullet, list number and bold opener
	entryPrefix = `(?m)^[ \t]*(?:#{1,6}[ \t]*)?(?:[-*•][ \t]*)?(?:\d+[.)][ \t]*)?(?:\*\*)?[ \t]*`
	// capitalised words, allowing connectors as in "Rio de Janeiro"
	placeName = `\p{Lu}[\p{L}'.\-]*(?:[ ](?:\p{Lu}[\p{L}'.\-]*|de|da|do|del|di|la|le|les|el|am|an|sur|upon))*`
)

// "Kyoto, Japan" entries are tried first, then looser numbered and bulleted
// forms such as "1. **Kyoto** - ..." or "- Kyoto: ...".
var cityPatterns = []*regexp.Regexp{
	regexp.MustCompile(entryPrefix + `(` + placeName + `)(?:\*\*)?[ \t]*,[ \t]*` + placeName + `[ \t]*(?:\*\*)?[ \t]*(?:[:\-–(].*)?\r?$`),
	regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]*)?1[.)][ \t]*(?:\*\*)?[ \t]*(\p{Lu}[\p{L}' .]+?)[ \t]*(?:\*\*)?[ \t]*(?:[,:\-–(]|$)`),
	regexp.MustCompile(`(?m)^[ \t]*[-*•][ \t]*(?:\*\*)?[ \t]*(\p{Lu}[\p{L}' .]+?)[ \t]*(?:\*\*)?[ \t]*(?:[,:\-–(]|$)`),
}

var excludedCityWords = []string{
	"the", "and", "for", "with", "city", "travel", "trip", "based", "type", "perfect",
	"best", "experience", "plan", "planning", "expert", "reasons", "selection", "recommended",
	"why", "typical", "weather", "approximate", "approx", "estimated", "daily", "cost", "costs",
	"budget", "price", "interests", "highlights", "overview", "summary", "season", "climate",
	"note", "tip", "tips", "here", "top", "option", "day", "accommodation", "transport",
	"attractions", "pros", "cons",
}

// ExtractFirstCity returns the first plausible city name in a numbered or
// bulleted recommendation list, or fallback when none is found.
func ExtractFirstCity(text, fallback string) string {
	text = Sanitize(text)
	for _, re := range cityPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if city := strings.TrimSpace(strings.TrimRight(m[1], ". ")); isCityCandidate(city) {
				return city
			}
		}
	}
	return fallback
}

func isCityCandidate(s string) bool {
	if len([]rune(s)) <= 2 {
		return false
	}
	lower := strings.ToLower(s)
	if strings.HasSuffix(lower, "city") && lower != "mexico city" && lower != "ho chi minh city" {
		return false
	}
	for _, w := range excludedCityWords {
		if lower == w || strings.HasPrefix(lower, w+" ") {
			return false
		}
	}
	return true
}
