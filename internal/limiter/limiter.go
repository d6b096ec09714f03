// Package limiter detects rate limit signals in upstream error responses.
package limiter

import "strings"

// Common rate limit patterns per upstream provider.
var patterns = map[string][]string{
	"openai": {
		"rate limit",
		"rate_limit",
		"too many requests",
		"insufficient_quota",
		"quota exceeded",
		"overloaded",
	},
	"generic": {
		"rate limit",
		"too many requests",
		"quota",
		"resource exhausted",
	},
}

// Detector checks response bodies for rate limit signals.
type Detector struct {
	provider string
	keywords []string
}

// New creates a Detector for the given provider.
func New(provider string) *Detector {
	kws := patterns[provider]
	if kws == nil {
		kws = patterns["generic"]
	}
	return &Detector{provider: provider, keywords: kws}
}

// DetectLimit returns true if the status or body signals a rate limit.
func (d *Detector) DetectLimit(status int, body string) bool {
	if status == 429 {
		return true
	}
	lower := strings.ToLower(body)
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ErrRateLimit is returned when an upstream rate limit is detected.
type ErrRateLimit struct {
	Provider string
	Line     string
}

func (e *ErrRateLimit) Error() string {
	return "rate limit detected (" + e.Provider + "): " + e.Line
}
