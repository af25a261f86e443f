package router

import (
	"context"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"heraldbot/internal/broadcast"
	"heraldbot/internal/storage"
	"heraldbot/pkg/logx"
)

const (
	welcomeSettingKey = "welcome_text"
	defaultWelcome    = "Welcome! Send a message and our team will reply here."

	handlerTimeout = 10 * time.Second
)

// pendingAction is what the next admin-group message will be interpreted as.
type pendingAction string

const (
	pendingNone      pendingAction = ""
	pendingBroadcast pendingAction = "broadcast"
	pendingWelcome   pendingAction = "welcome"
)

// Router wires the Telegram command surface: the user-facing welcome and
// support-forwarding flow, and the operator panel in the admin group.
type Router struct {
	bot   *tele.Bot
	store storage.Store
	bcast *broadcast.Service
	log   logx.Logger

	adminGroupID int64
	adminUserIDs map[int64]struct{}

	baseCtx context.Context

	pending *pendingActions
}

func New(bot *tele.Bot, store storage.Store, bcast *broadcast.Service, adminGroupID int64, adminUserIDs []int64, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	admins := make(map[int64]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		admins[id] = struct{}{}
	}
	return &Router{
		bot:          bot,
		store:        store,
		bcast:        bcast,
		log:          log,
		adminGroupID: adminGroupID,
		adminUserIDs: admins,
		pending:      newPendingActions(),
	}
}

// Register installs all handlers. ctx is the process lifetime; broadcasts
// scheduled from the panel inherit it.
func (r *Router) Register(ctx context.Context) {
	r.baseCtx = ctx

	r.bot.Handle("/start", r.onStart)
	r.bot.Handle("/panel", r.onPanel)
	r.bot.Handle(tele.OnText, r.onMessage)
	r.bot.Handle(tele.OnMedia, r.onMessage)

	registerPanel(r)
}

// isAdmin reports whether the sender may use operator actions. An empty
// allowlist means any member of the admin group qualifies.
func (r *Router) isAdmin(u *tele.User) bool {
	if u == nil {
		return false
	}
	if len(r.adminUserIDs) == 0 {
		return true
	}
	_, ok := r.adminUserIDs[u.ID]
	return ok
}

func (r *Router) handlerCtx() (context.Context, context.CancelFunc) {
	base := r.baseCtx
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, handlerTimeout)
}

func (r *Router) onStart(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil || !m.Private() {
		return nil
	}
	ctx, cancel := r.handlerCtx()
	defer cancel()

	if err := r.store.UpsertUser(ctx, m.Sender.ID, m.Sender.Username, m.Sender.FirstName); err != nil {
		r.log.Error("failed to upsert user", logx.Int64("user", m.Sender.ID), logx.Err(err))
	}

	text, ok, err := r.store.GetSetting(ctx, welcomeSettingKey)
	if err != nil {
		r.log.Error("failed to read welcome text", logx.Err(err))
	}
	if !ok || text == "" {
		text = defaultWelcome
	}
	return c.Send(text)
}

// onMessage is the catch-all for text and media. It splits by chat: private
// messages go to the support-forwarding flow, admin-group messages to the
// operator flow.
func (r *Router) onMessage(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil {
		return nil
	}
	switch {
	case m.Private():
		return r.onPrivateMessage(c)
	case m.Chat.ID == r.adminGroupID:
		return r.onAdminGroupMessage(c)
	default:
		return nil
	}
}

// pendingActions tracks which operator armed which panel action. Guarded by
// its own lock since callbacks and messages race.
type pendingActions struct {
	mu sync.Mutex
	m  map[int64]pendingAction
}

func newPendingActions() *pendingActions {
	return &pendingActions{m: map[int64]pendingAction{}}
}

func (p *pendingActions) set(userID int64, a pendingAction) {
	p.mu.Lock()
	p.m[userID] = a
	p.mu.Unlock()
}

// take returns and clears the pending action for the user.
func (p *pendingActions) take(userID int64) pendingAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.m[userID]
	delete(p.m, userID)
	return a
}
