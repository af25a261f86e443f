package telegram

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"heraldbot/internal/transport"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		t.Parallel()
		if got := mapError(nil); got != nil {
			t.Fatalf("mapError(nil) = %v", got)
		}
	})

	t.Run("flood value becomes typed deferral", func(t *testing.T) {
		t.Parallel()
		// telebot hands out flood errors by value, not behind a pointer.
		got := mapError(tele.FloodError{RetryAfter: 7})
		fe, ok := transport.AsFlood(got)
		if !ok {
			t.Fatalf("mapError(flood) did not produce a FloodError")
		}
		if fe.RetryAfter != 7*time.Second {
			t.Fatalf("RetryAfter = %s, want 7s", fe.RetryAfter)
		}
	})

	t.Run("flood pointer becomes typed deferral", func(t *testing.T) {
		t.Parallel()
		got := mapError(&tele.FloodError{RetryAfter: 3})
		fe, ok := transport.AsFlood(got)
		if !ok {
			t.Fatalf("mapError(flood pointer) did not produce a FloodError")
		}
		if fe.RetryAfter != 3*time.Second {
			t.Fatalf("RetryAfter = %s, want 3s", fe.RetryAfter)
		}
	})

	t.Run("gone recipients become unreachable", func(t *testing.T) {
		t.Parallel()
		for _, src := range []error{
			tele.ErrBlockedByUser,
			tele.ErrUserIsDeactivated,
			tele.ErrChatNotFound,
		} {
			got := mapError(src)
			if !transport.IsUnreachable(got) {
				t.Fatalf("mapError(%v) = %v, want UnreachableError", src, got)
			}
			if !errors.Is(got, src) {
				t.Fatalf("mapError(%v) lost the cause", src)
			}
		}
	})

	t.Run("other errors pass through unchanged", func(t *testing.T) {
		t.Parallel()
		src := errors.New("bad request: message text is empty")
		if got := mapError(src); got != src {
			t.Fatalf("mapError = %v, want identity", got)
		}
	})
}
