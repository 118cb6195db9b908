// Package durparse extracts a duration from a free-form utterance using
// a narrow phrase grammar. A targeted parser beats model extraction for
// phrases like "plank for 90 seconds", so callers prefer a successful
// parse here over a model-proposed number.
package durparse

import (
	"regexp"
	"strconv"
	"strings"
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40,
	"forty-five": 45, "fifty": 50, "sixty": 60, "ninety": 90,
}

var unitSeconds = map[string]int{
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
}

// phraseRe matches one amount+unit pair: "30 min", "1.5 hours",
// "ninety seconds". Combos like "1h 30m" match twice. Articles never
// act as amounts here: letting "a"/"an" count as 1 makes ordinary
// words like "am" or "as" parse as durations, so "a minute" and
// "an hour" get their own pattern below.
var phraseRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?|[a-z]+(?:-[a-z]+)?)\s*(s|secs?|seconds?|m|mins?|minutes?|h|hrs?|hours?)\b`)

var halfRe = regexp.MustCompile(`(?i)\bhalf\s+an?\s+hour\b`)

var articleRe = regexp.MustCompile(`(?i)\ban?\s+(second|minute|hour)\b`)

// Parse scans the utterance for duration phrases and returns the total
// in seconds. ok is false when the grammar matches nothing; the caller
// then falls back to whatever value it already had.
func Parse(utterance string) (int, bool) {
	if utterance == "" {
		return 0, false
	}

	total := 0
	found := false

	rest := utterance
	if halfRe.MatchString(rest) {
		total += 1800
		found = true
		rest = halfRe.ReplaceAllString(rest, " ")
	}

	for _, m := range articleRe.FindAllStringSubmatch(rest, -1) {
		total += unitSeconds[normalizeUnit(m[1])]
		found = true
	}
	rest = articleRe.ReplaceAllString(rest, " ")

	for _, m := range phraseRe.FindAllStringSubmatch(rest, -1) {
		amount, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		unit, ok := unitSeconds[normalizeUnit(m[2])]
		if !ok {
			continue
		}
		total += int(amount * float64(unit))
		found = true
	}

	if !found || total <= 0 {
		return 0, false
	}
	return total, true
}

func parseAmount(s string) (float64, bool) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, true
	}
	if n, ok := numberWords[strings.ToLower(s)]; ok {
		return float64(n), true
	}
	return 0, false
}

func normalizeUnit(s string) string {
	return strings.ToLower(s)
}
