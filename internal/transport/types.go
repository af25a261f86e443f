package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PayloadKind tags reconstructable message content.
type PayloadKind string

const (
	KindText      PayloadKind = "text"
	KindPhoto     PayloadKind = "photo"
	KindVideo     PayloadKind = "video"
	KindDocument  PayloadKind = "document"
	KindAudio     PayloadKind = "audio"
	KindVoice     PayloadKind = "voice"
	KindSticker   PayloadKind = "sticker"
	KindVideoNote PayloadKind = "video_note"
)

// MessageRef points at an already-existing message that can be delivered as a
// verbatim copy.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Payload is reconstructable message content: a kind tag plus the content
// reference (FileID for media, Text for text) and an optional caption.
type Payload struct {
	Kind    PayloadKind
	FileID  string
	Caption string
	Text    string
}

// Client performs the actual network sends.
//
// Implementations must surface throttling as *FloodError and
// blocked/invalid-recipient conditions as *UnreachableError so callers can
// classify outcomes without string matching.
type Client interface {
	// Copy delivers a verbatim copy of ref to the chat.
	Copy(ctx context.Context, chatID int64, ref MessageRef) error
	// SendPayload reconstructs and sends the payload to the chat.
	SendPayload(ctx context.Context, chatID int64, p Payload) error
	// SendText sends a plain text message to the chat.
	SendText(ctx context.Context, chatID int64, text string) error
}

// FloodError reports server-side throttling with a mandated delay before the
// next attempt.
type FloodError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *FloodError) Error() string {
	return fmt.Sprintf("flood limit: retry after %s: %v", e.RetryAfter, e.Err)
}

func (e *FloodError) Unwrap() error { return e.Err }

// UnreachableError reports a permanently unreachable recipient (blocked the
// bot, deactivated account, chat gone).
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("recipient unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// AsFlood extracts a FloodError from err's chain.
func AsFlood(err error) (*FloodError, bool) {
	var fe *FloodError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsUnreachable reports whether err's chain contains an UnreachableError.
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}
