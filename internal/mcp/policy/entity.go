package policy

import "regexp"

// EntityType labels a kind of entity detected in raw query text.
type EntityType string

const (
	EntityURL      EntityType = "URL"
	EntityFile     EntityType = "FILE"
	EntityLocation EntityType = "LOCATION"
	EntityTime     EntityType = "TIME"
	EntityEmail    EntityType = "EMAIL"
	EntityNumber   EntityType = "NUMBER"
)

// Detection patterns. These are deliberately approximate keyword/shape
// heuristics, not classifiers; tests assert the documented matching rules,
// not semantic correctness.
var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Absolute/relative paths, or bare names with a letter file extension.
	filePattern = regexp.MustCompile(`(?:(?:~|\.{1,2})?/[\w.-]+(?:/[\w.-]+)*)|\b[\w-]+\.[A-Za-z]{2,4}\b`)

	// ISO dates, clock times, relative day words, and month names.
	timePattern = regexp.MustCompile(`(?i)\b\d{4}-\d{2}-\d{2}\b|` +
		`\b\d{1,2}:\d{2}(?:\s?(?:am|pm))?\b|` +
		`\b(?:today|tomorrow|yesterday|tonight|noon|midnight)\b|` +
		`\b(?:next|last)\s+(?:week|month|year|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|` +
		`\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b|` +
		`\btimezone\b`)

	// Prepositional capitalised place references plus geographic keywords.
	locationPattern = regexp.MustCompile(`\b(?:in|at|near|from|to)\s+[A-Z][A-Za-z]+\b|` +
		`(?i)\b(?:latitude|longitude|city|country|address)\b`)

	numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// DetectEntities reports which entity types appear in the raw query text.
// The result is ordered URL, FILE, LOCATION, TIME, EMAIL, NUMBER so callers
// get deterministic output. URLs and emails are stripped before the file
// check so that a link or address does not double as a path.
func DetectEntities(query string) []EntityType {
	var out []EntityType

	hasURL := urlPattern.MatchString(query)
	hasEmail := emailPattern.MatchString(query)

	stripped := urlPattern.ReplaceAllString(query, " ")
	stripped = emailPattern.ReplaceAllString(stripped, " ")

	if hasURL {
		out = append(out, EntityURL)
	}
	if filePattern.MatchString(stripped) {
		out = append(out, EntityFile)
	}
	if locationPattern.MatchString(query) {
		out = append(out, EntityLocation)
	}
	if timePattern.MatchString(query) {
		out = append(out, EntityTime)
	}
	if hasEmail {
		out = append(out, EntityEmail)
	}
	if numberPattern.MatchString(stripped) {
		out = append(out, EntityNumber)
	}
	return out
}
