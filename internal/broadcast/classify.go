package broadcast

import (
	"strings"
	"time"

	"heraldbot/internal/transport"
)

// permanentMarkers are the transport error fragments treated as a permanently
// unreachable recipient when no typed error is available. Matching is
// case-insensitive.
var permanentMarkers = []string{
	"blocked",
	"user is deactivated",
	"chat not found",
	"user not found",
}

// Classify maps a delivery error to an outcome.
//
// Typed transport errors win: throttling is always Deferred no matter which
// send path raised it, and UnreachableError is always permanent. The
// substring heuristic over the error text is the last-resort fallback for
// transports that only expose opaque errors; it must stay in this one
// function so a transport message format change is a single-file fix.
func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: Delivered}
	}
	if fe, ok := transport.AsFlood(err); ok {
		delay := fe.RetryAfter
		if delay <= 0 {
			delay = time.Second
		}
		return Outcome{Kind: Deferred, RetryAfter: delay}
	}
	if transport.IsUnreachable(err) {
		return Outcome{Kind: Unreachable}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return Outcome{Kind: Unreachable}
		}
	}
	return Outcome{Kind: Failed}
}
