package router

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"heraldbot/internal/broadcast"
	"heraldbot/internal/transport"
	"heraldbot/pkg/logx"
)

var (
	panelMenu    = &tele.ReplyMarkup{}
	btnBroadcast = panelMenu.Data("📢 Broadcast", "panel_broadcast")
	btnStats     = panelMenu.Data("📊 Stats", "panel_stats")
	btnWelcome   = panelMenu.Data("✏️ Set welcome", "panel_welcome")
	btnCleanup   = panelMenu.Data("🧹 Cleanup", "panel_cleanup")
)

func registerPanel(r *Router) {
	panelMenu.Inline(
		panelMenu.Row(btnBroadcast, btnStats),
		panelMenu.Row(btnWelcome, btnCleanup),
	)
	r.bot.Handle(&btnBroadcast, r.onArmBroadcast)
	r.bot.Handle(&btnStats, r.onStats)
	r.bot.Handle(&btnWelcome, r.onArmWelcome)
	r.bot.Handle(&btnCleanup, r.onCleanup)
}

func (r *Router) onPanel(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Chat == nil || m.Chat.ID != r.adminGroupID || !r.isAdmin(m.Sender) {
		return nil
	}
	return c.Send("Admin panel", panelMenu)
}

// fromPanel validates a panel callback. Buttons only live in the admin group,
// but the sender allowlist still applies.
func (r *Router) fromPanel(c tele.Context) bool {
	cb := c.Callback()
	if cb == nil || cb.Message == nil || cb.Message.Chat.ID != r.adminGroupID {
		return false
	}
	return r.isAdmin(cb.Sender)
}

func (r *Router) onArmBroadcast(c tele.Context) error {
	if !r.fromPanel(c) {
		return c.Respond(&tele.CallbackResponse{Text: "Not allowed"})
	}
	r.pending.set(c.Callback().Sender.ID, pendingBroadcast)
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		return err
	}
	return c.Send("Send the message to broadcast. It will be copied to every active user.")
}

func (r *Router) onArmWelcome(c tele.Context) error {
	if !r.fromPanel(c) {
		return c.Respond(&tele.CallbackResponse{Text: "Not allowed"})
	}
	r.pending.set(c.Callback().Sender.ID, pendingWelcome)
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		return err
	}
	return c.Send("Send the new welcome text.")
}

func (r *Router) onStats(c tele.Context) error {
	if !r.fromPanel(c) {
		return c.Respond(&tele.CallbackResponse{Text: "Not allowed"})
	}
	ctx, cancel := r.handlerCtx()
	defer cancel()

	stats, err := r.store.Stats(ctx)
	if err != nil {
		r.log.Error("failed to read stats", logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "Stats unavailable"})
	}
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf(
		"📊 Users\nTotal: %d\nActive (7d): %d\nBlocked: %d",
		stats.Total, stats.Active7d, stats.Blocked,
	))
}

func (r *Router) onCleanup(c tele.Context) error {
	if !r.fromPanel(c) {
		return c.Respond(&tele.CallbackResponse{Text: "Not allowed"})
	}
	ctx, cancel := r.handlerCtx()
	defer cancel()

	n, err := r.store.DeleteBlockedUsers(ctx)
	if err != nil {
		r.log.Error("failed to prune blocked users", logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "Cleanup failed"})
	}
	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("🧹 Removed %d blocked users.", n))
}

// onAdminGroupMessage handles plain messages in the admin group: replies to
// forwarded messages are routed back to users, otherwise the message may
// complete a previously armed panel action.
func (r *Router) onAdminGroupMessage(c tele.Context) error {
	m := c.Message()
	if strings.HasPrefix(m.Text, "/") {
		return nil
	}
	if handled, err := r.replyToForward(c); handled {
		return err
	}
	if !r.isAdmin(m.Sender) {
		return nil
	}

	switch r.pending.take(m.Sender.ID) {
	case pendingWelcome:
		return r.saveWelcome(c)
	case pendingBroadcast:
		return r.launchBroadcast(c)
	default:
		return nil
	}
}

func (r *Router) saveWelcome(c tele.Context) error {
	m := c.Message()
	if m.Text == "" {
		return c.Send("Welcome text must be plain text. Open the panel and try again.")
	}
	ctx, cancel := r.handlerCtx()
	defer cancel()

	if err := r.store.SetSetting(ctx, welcomeSettingKey, m.Text); err != nil {
		r.log.Error("failed to save welcome text", logx.Err(err))
		return c.Send("⚠️ Could not save the welcome text.")
	}
	return c.Send("✅ Welcome text updated.")
}

func (r *Router) launchBroadcast(c tele.Context) error {
	m := c.Message()
	msg := broadcast.Message{
		Ref: &transport.MessageRef{
			ChatID:    m.Chat.ID,
			MessageID: m.ID,
		},
		Payload: payloadFromMessage(m),
	}

	ctx, cancel := r.handlerCtx()
	defer cancel()
	recipients, err := r.store.ActiveUserIDs(ctx)
	if err != nil {
		r.log.Error("failed to list recipients", logx.Err(err))
		return c.Send("⚠️ Could not load the recipient list.")
	}
	if len(recipients) == 0 {
		return c.Send("No active users to broadcast to.")
	}

	id, err := r.bcast.Start(r.baseCtx, recipients, msg)
	if err != nil {
		r.log.Error("failed to start broadcast", logx.Err(err))
		return c.Send("⚠️ Could not start the broadcast.")
	}
	return c.Send(fmt.Sprintf("📢 Broadcast #%d started for %d users.", id, len(recipients)))
}
