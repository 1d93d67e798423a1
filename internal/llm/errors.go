package llm

import (
	"regexp"
	"strings"
)

// ErrorKind is a coarse label for provider failures, used in log lines.
type ErrorKind string

const (
	ErrorKindNone            ErrorKind = ""
	ErrorKindRateLimit       ErrorKind = "rate_limit"
	ErrorKindContextOverflow ErrorKind = "context_overflow"
	ErrorKindAuth            ErrorKind = "auth"
	ErrorKindOther           ErrorKind = "other"
)

var (
	contextWindowTooSmallRe = regexp.MustCompile(`(?i)context window.*(too small|minimum is)`)
	contextOverflowHintRe   = regexp.MustCompile(`(?i)context.*overflow|context window.*(too (?:large|long)|exceed|over|limit|max(?:imum)?)|prompt.*(too (?:large|long)|exceed)`)
	rateLimitHintRe         = regexp.MustCompile(`(?i)rate limit|too many requests|requests per (?:minute|hour|day)|quota|throttl|429\b|tpm\b|tpd\b`)
	authHintRe              = regexp.MustCompile(`(?i)401\b|403\b|invalid api key|incorrect api key|unauthori[sz]ed|permission denied|authentication`)
)

func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	return ClassifyText(err.Error())
}

func ClassifyText(msg string) ErrorKind {
	text := strings.TrimSpace(msg)
	if text == "" {
		return ErrorKindNone
	}
	// Rate limit errors can match broad overflow heuristics ("request reached ... limit").
	if rateLimitHintRe.MatchString(text) {
		return ErrorKindRateLimit
	}
	if authHintRe.MatchString(text) {
		return ErrorKindAuth
	}
	if isContextOverflowText(text) {
		return ErrorKindContextOverflow
	}
	return ErrorKindOther
}

func isContextOverflowText(text string) bool {
	if contextWindowTooSmallRe.MatchString(text) {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "request_too_large") ||
		strings.Contains(lower, "context length exceeded") ||
		strings.Contains(lower, "maximum context length") ||
		strings.Contains(lower, "prompt is too long") ||
		(strings.Contains(lower, "413") && strings.Contains(lower, "too large")) {
		return true
	}
	return contextOverflowHintRe.MatchString(text)
}
