package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"heraldbot/internal/transport"
	"heraldbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Client adapts telebot to transport.Client. It also owns the underlying bot
// so the command router can register handlers on it.
type Client struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{bot: b, log: log}, nil
}

// Bot exposes the underlying telebot instance for handler registration.
func (c *Client) Bot() *tele.Bot { return c.bot }

// Start begins long polling. It blocks until Stop is called.
func (c *Client) Start() {
	c.log.Info("polling started")
	c.bot.Start()
	c.log.Info("polling stopped")
}

func (c *Client) Stop() { c.bot.Stop() }

func (c *Client) Copy(ctx context.Context, chatID int64, ref transport.MessageRef) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	src := tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
	_, err := c.bot.Copy(tele.ChatID(chatID), src)
	return mapError(err)
}

func (c *Client) SendPayload(ctx context.Context, chatID int64, p transport.Payload) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	to := tele.ChatID(chatID)
	file := tele.File{FileID: p.FileID}

	var what any
	switch p.Kind {
	case transport.KindText:
		what = p.Text
	case transport.KindPhoto:
		what = &tele.Photo{File: file, Caption: p.Caption}
	case transport.KindVideo:
		what = &tele.Video{File: file, Caption: p.Caption}
	case transport.KindDocument:
		what = &tele.Document{File: file, Caption: p.Caption}
	case transport.KindAudio:
		what = &tele.Audio{File: file, Caption: p.Caption}
	case transport.KindVoice:
		what = &tele.Voice{File: file, Caption: p.Caption}
	case transport.KindSticker:
		what = &tele.Sticker{File: file}
	case transport.KindVideoNote:
		what = &tele.VideoNote{File: file}
	default:
		// Unknown kind: degrade to a text send rather than dropping the
		// message. Caption is the best body we have.
		text := p.Text
		if text == "" {
			text = p.Caption
		}
		what = text
	}

	_, err := c.bot.Send(to, what)
	return mapError(err)
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	_, err := c.bot.Send(tele.ChatID(chatID), text)
	return mapError(err)
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// mapError translates telebot errors into the typed transport errors so the
// delivery engine never has to know about the Telegram API shape.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	// telebot returns FloodError by value; match both forms since wrapped
	// pointers also occur.
	var fe tele.FloodError
	if errors.As(err, &fe) {
		return &transport.FloodError{
			RetryAfter: time.Duration(fe.RetryAfter) * time.Second,
			Err:        err,
		}
	}
	var fep *tele.FloodError
	if errors.As(err, &fep) {
		return &transport.FloodError{
			RetryAfter: time.Duration(fep.RetryAfter) * time.Second,
			Err:        err,
		}
	}
	if errors.Is(err, tele.ErrBlockedByUser) ||
		errors.Is(err, tele.ErrUserIsDeactivated) ||
		errors.Is(err, tele.ErrChatNotFound) {
		return &transport.UnreachableError{Err: err}
	}
	return err
}
