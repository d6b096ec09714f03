package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLimit_OpenAI(t *testing.T) {
	d := New("openai")
	assert.True(t, d.DetectLimit(400, `{"error":{"type":"insufficient_quota"}}`))
	assert.True(t, d.DetectLimit(429, ""))
	assert.True(t, d.DetectLimit(503, "Service Overloaded"))
	assert.False(t, d.DetectLimit(401, `{"error":{"message":"Incorrect API key provided"}}`))
}

func TestDetectLimit_UnknownProviderUsesGeneric(t *testing.T) {
	d := New("somebody")
	assert.True(t, d.DetectLimit(500, "RESOURCE EXHAUSTED"))
	assert.False(t, d.DetectLimit(500, "internal error"))
}

func TestErrRateLimit(t *testing.T) {
	err := &ErrRateLimit{Provider: "openai", Line: "rate limit hit"}
	assert.Contains(t, err.Error(), "rate limit detected")
	assert.Contains(t, err.Error(), "openai")
}
