package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name           string
		verbose, quiet bool
		want           zapcore.Level
	}{
		{"default", false, false, zapcore.InfoLevel},
		{"verbose", true, false, zapcore.DebugLevel},
		{"quiet", false, true, zapcore.ErrorLevel},
		{"quiet wins", true, true, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.verbose, tt.quiet)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	ctx := NewContext(context.Background(), l)
	L(ctx).Info("hello", zap.String("k", "v"))

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)

	// missing logger is a no-op, not nil
	assert.NotNil(t, L(context.Background()))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
