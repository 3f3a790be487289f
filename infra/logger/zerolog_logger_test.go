package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	corelogger "github.com/kilianp07/tellocmd/core/logger"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, zerolog.DebugLevel, levelFromEnv())
	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, zerolog.InfoLevel, levelFromEnv())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, zerolog.InfoLevel, levelFromEnv())
}

func TestWithFields(t *testing.T) {
	l := NewZerologLogger("test")
	child := corelogger.With(l, map[string]any{"session": "abc"})
	assert.NotSame(t, l, child)
	child.Infof("child")

	var nop Logger = NopLogger{}
	assert.Equal(t, nop, corelogger.With(nop, map[string]any{"k": "v"}))
}
