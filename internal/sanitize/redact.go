// Package sanitize strips personal details from free text in increasingly aggressive levels.
// Each level removes everything the previous one did.
package sanitize

import (
	"regexp"
	"strings"
)

// DefaultMaxChars is the truncation length used when none is configured
const DefaultMaxChars = 4000

const (
	// LevelNone leaves text untouched
	LevelNone = 0
	// LevelContact strips emails, URLs and phone numbers and truncates
	LevelContact = 1
	// LevelAddress additionally drops address lines and long digit runs and truncates harder
	LevelAddress = 2
)

var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+|\b(?:linkedin|github|gitlab)\.com/\S*`)
	// International numbers are bounded digit groups so a match never runs into the next sentence
	phonePattern = regexp.MustCompile(`\+\d{1,3}(?:[ .-]?\(?\d{1,4}\)?){2,5}\b|(?:\(\d{3}\)|\b\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`)

	addressLinePattern = regexp.MustCompile(`(?i)\b(?:address|street|avenue|road|boulevard|blvd|apartment|apt|zip|postcode|postal code|p\.?o\.? box)\b|\b(?:st|ave|rd)\.`)
	digitRunPattern    = regexp.MustCompile(`\d{6,}`)
)

// Redact applies every redaction up to level and truncates the result.
// maxChars <= 0 selects DefaultMaxChars.
func Redact(text string, level, maxChars int) string {
	if level <= LevelNone {
		return text
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	out := emailPattern.ReplaceAllString(text, "[email]")
	out = urlPattern.ReplaceAllString(out, "[url]")
	out = phonePattern.ReplaceAllString(out, "[phone]")

	limit := maxChars
	if level >= LevelAddress {
		out = dropAddressLines(out)
		out = digitRunPattern.ReplaceAllString(out, "[number]")
		limit = maxChars * 3 / 4
	}

	return Truncate(out, limit)
}

func dropAddressLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if addressLinePattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Truncate cuts text to at most limit characters
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
