package broadcast

import (
	"context"

	"heraldbot/pkg/logx"
)

// deliver performs one delivery attempt to one recipient and classifies the
// result. Expected transport failures never surface as errors, only as
// outcomes.
//
// When a copy reference exists it is tried first. A permanent failure on the
// copy path is final: the recipient is gone, a payload would not help. A
// deferral is also final for this attempt, the retry loop owns the wait. Any
// other copy failure falls back to a payload reconstruction in the same call
// when a payload exists; the fallback's outcome is the call's outcome.
func (s *Service) deliver(ctx context.Context, recipient int64, msg Message) Outcome {
	if msg.Ref == nil {
		return Classify(s.client.SendPayload(ctx, recipient, *msg.Payload))
	}

	err := s.client.Copy(ctx, recipient, *msg.Ref)
	out := Classify(err)
	if out.Kind != Failed {
		return out
	}
	if msg.Payload == nil {
		s.log.Warn("copy failed with no payload fallback",
			logx.Int64("recipient", recipient), logx.Err(err))
		return out
	}
	s.log.Debug("copy failed; falling back to payload",
		logx.Int64("recipient", recipient), logx.Err(err))
	return Classify(s.client.SendPayload(ctx, recipient, *msg.Payload))
}
