package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	t.Run("ReturnsDefaultWhenUnset", func(t *testing.T) {
		l := FromContext(context.Background())
		if l == nil {
			t.Fatal("expected a logger, got nil")
		}
	})

	t.Run("ReturnsAttachedLogger", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithLogger(context.Background(), NewLogger(WithQuiet(), WithWriter(&buf)))

		Info(ctx, "through context")

		if !strings.Contains(buf.String(), "through context") {
			t.Errorf("expected message via context logger, got: %s", buf.String())
		}
	})

	t.Run("FixedLoggerWins", func(t *testing.T) {
		var fixed, regular bytes.Buffer
		ctx := WithFixedLogger(context.Background(), NewLogger(WithQuiet(), WithWriter(&fixed)))
		ctx = WithLogger(ctx, NewLogger(WithQuiet(), WithWriter(&regular)))

		Info(ctx, "routed")

		if !strings.Contains(fixed.String(), "routed") {
			t.Errorf("expected message on the fixed logger, got: %s", fixed.String())
		}
		if regular.Len() != 0 {
			t.Errorf("expected nothing on the replaced logger, got: %s", regular.String())
		}
	})
}
