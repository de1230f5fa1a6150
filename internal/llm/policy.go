package llm

import (
	"regexp"
	"strings"
)

// placeholderPatterns match the canned greetings the app itself writes as
// placeholder messages. A model reply matching one of them reads as a
// template, not a conversation, so it triggers a single retry at higher
// temperature.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(hi|hey)\s+(there|folks|everybody)?!?[\s,—-]`),
	regexp.MustCompile(`(?i)Thanks for the new photo`),
	regexp.MustCompile(`(?i)I remember this visit`),
	regexp.MustCompile(`(?i)Would you like to check my soil`),
	regexp.MustCompile(`(?i)Do you have a minute to give me some water`),
	regexp.MustCompile(`(?i)want to give me a little care`),
	regexp.MustCompile(`(?i)I'm (so )?excited to grow with you`),
	regexp.MustCompile(`(?i)I've just (been adopted|arrived)`),
}

// genericOpener catches replies that open with a bare greeting even when the
// rest is fine.
var genericOpener = regexp.MustCompile(`(?i)^(hey|hi)[\s,]`)

// IsPlaceholder reports whether text looks like one of the app's own canned
// placeholder messages.
func IsPlaceholder(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	for _, p := range placeholderPatterns {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

// needsRetry reports whether a model candidate should be regenerated once at
// higher temperature.
func needsRetry(candidate string) bool {
	return IsPlaceholder(candidate) || genericOpener.MatchString(candidate)
}
