package logs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarning, ParseLevel(" warn "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLevelFilter(t *testing.T) {
	prev := GetLevel()
	defer SetLevel(prev)

	var buf bytes.Buffer
	SetOutput(&buf)

	SetLevel(LevelWarning)
	Info("[VM] hidden %d", 1)
	Warn("[VM] shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "shown 2")

	// 越界的级别被钳制
	SetLevel(99)
	assert.Equal(t, LevelError, GetLevel())
}
