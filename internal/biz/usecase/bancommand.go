package usecase

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	uuidPattern  = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	phonePattern = regexp.MustCompile(`\+\d{6,20}`)
)

// IsBanCommand reports whether text is a ban command: it starts with /ban
// (which covers /ban@anyone) or mentions /ban@<botName> anywhere.
func IsBanCommand(text, botName string) bool {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "/ban") {
		return true
	}
	return botName != "" && strings.Contains(t, "/ban@"+botName)
}

// ExtractTarget finds a ban target in command text: the first uuid-shaped
// token, else the first phone number (+ and 6-20 digits).
func ExtractTarget(text string) string {
	if m := uuidPattern.FindString(text); m != "" {
		if _, err := uuid.Parse(m); err == nil {
			return m
		}
	}
	return phonePattern.FindString(text)
}

// ResolveBanTarget prefers the author of the quoted message over a target
// written in the command text.
func ResolveBanTarget(quoteAuthor, text string) string {
	if strings.TrimSpace(quoteAuthor) != "" {
		return quoteAuthor
	}
	return ExtractTarget(text)
}
