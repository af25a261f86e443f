package router

import (
	tele "gopkg.in/telebot.v4"

	"heraldbot/pkg/logx"
)

// onPrivateMessage mirrors a user's message into the admin group and records
// the mapping so operator replies can be routed back.
func (r *Router) onPrivateMessage(c tele.Context) error {
	m := c.Message()
	ctx, cancel := r.handlerCtx()
	defer cancel()

	if err := r.store.UpsertUser(ctx, m.Sender.ID, m.Sender.Username, m.Sender.FirstName); err != nil {
		r.log.Error("failed to upsert user", logx.Int64("user", m.Sender.ID), logx.Err(err))
	}

	fwd, err := r.bot.Forward(tele.ChatID(r.adminGroupID), m)
	if err != nil {
		r.log.Error("failed to forward to admin group",
			logx.Int64("user", m.Sender.ID),
			logx.Err(err))
		return nil
	}
	if err := r.store.SaveForward(ctx, r.adminGroupID, fwd.ID, m.Sender.ID); err != nil {
		r.log.Error("failed to save forward mapping",
			logx.Int64("user", m.Sender.ID),
			logx.Int("message", fwd.ID),
			logx.Err(err))
	}
	return nil
}

// replyToForward routes an operator reply back to the original sender if the
// replied-to message is one we forwarded. Reports whether it handled the
// message.
func (r *Router) replyToForward(c tele.Context) (bool, error) {
	m := c.Message()
	if m.ReplyTo == nil {
		return false, nil
	}
	ctx, cancel := r.handlerCtx()
	defer cancel()

	userID, ok, err := r.store.LookupForward(ctx, r.adminGroupID, m.ReplyTo.ID)
	if err != nil {
		r.log.Error("failed to look up forward mapping", logx.Int("message", m.ReplyTo.ID), logx.Err(err))
		return true, nil
	}
	if !ok {
		// Reply to something else in the group, not ours to route.
		return false, nil
	}

	if _, err := r.bot.Copy(tele.ChatID(userID), m); err != nil {
		r.log.Error("failed to deliver reply", logx.Int64("user", userID), logx.Err(err))
		return true, c.Send("⚠️ Could not deliver the reply to the user.")
	}
	return true, nil
}
