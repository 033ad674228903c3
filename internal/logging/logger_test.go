package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestNew_InstallsContextLogger(t *testing.T) {
	prev := zerolog.DefaultContextLogger
	t.Cleanup(func() { zerolog.DefaultContextLogger = prev })

	l := New("error", false, "kai-test")
	assert.Equal(t, zerolog.ErrorLevel, l.GetLevel())
	if assert.NotNil(t, zerolog.DefaultContextLogger) {
		assert.Equal(t, zerolog.ErrorLevel, zerolog.DefaultContextLogger.GetLevel())
	}
}
