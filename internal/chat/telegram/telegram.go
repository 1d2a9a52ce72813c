// Package telegram implements chat.Backend with telebot. Telegram has no
// embeds, so messages are rendered as HTML.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"github.com/hamed0406/siteupbot/internal/chat"
)

type Backend struct {
	settings tele.Settings
	log      *zap.Logger

	mu  sync.RWMutex
	bot *tele.Bot
}

var _ chat.Backend = (*Backend)(nil)

// Option tweaks the bot settings; tests point URL at a fake API.
type Option func(*tele.Settings)

func WithAPIURL(u string) Option {
	return func(s *tele.Settings) { s.URL = u }
}

func New(token string, log *zap.Logger, onError func(error), opts ...Option) *Backend {
	log = log.Named("telegram")
	s := tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
		OnError: func(err error, _ tele.Context) {
			log.Error("telegram_error", zap.Error(err))
			if onError != nil {
				onError(err)
			}
		},
	}
	for _, o := range opts {
		o(&s)
	}
	return &Backend{settings: s, log: log}
}

// Open calls getMe, which is where a bad token surfaces. The bot only
// sends, so no update poller is started.
func (b *Backend) Open(ctx context.Context) error {
	type result struct {
		bot *tele.Bot
		err error
	}
	done := make(chan result, 1)
	go func() {
		bot, err := tele.NewBot(b.settings)
		done <- result{bot, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("telegram open: %w", r.err)
		}
		b.mu.Lock()
		b.bot = r.bot
		b.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) Close() error {
	b.mu.Lock()
	b.bot = nil
	b.mu.Unlock()
	return nil
}

func (b *Backend) current() (*tele.Bot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bot == nil {
		return nil, chat.ErrNotReady
	}
	return b.bot, nil
}

func (b *Backend) Identity() string {
	bot, err := b.current()
	if err != nil || bot.Me == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s (ID: %d)", bot.Me.Username, bot.Me.ID)
}

func (b *Backend) ResolveChannel(ctx context.Context, id string) (chat.Destination, error) {
	return b.resolve(ctx, chat.KindChannel, id)
}

// ResolveUser looks up the private chat with the user. Telegram only
// knows it once the user has started the bot.
func (b *Backend) ResolveUser(ctx context.Context, id string) (chat.Destination, error) {
	return b.resolve(ctx, chat.KindUser, id)
}

func (b *Backend) resolve(ctx context.Context, kind chat.Kind, id string) (chat.Destination, error) {
	bot, err := b.current()
	if err != nil {
		return chat.Destination{}, err
	}
	chatID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return chat.Destination{}, fmt.Errorf("resolve %s %q: %w", kind, id, chat.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return chat.Destination{}, err
	}
	c, err := bot.ChatByID(chatID)
	if err != nil {
		return chat.Destination{}, fmt.Errorf("resolve %s %d: %w", kind, chatID, classify(err))
	}
	name := c.Title
	if name == "" {
		name = c.Username
	}
	return chat.Destination{Kind: kind, ID: strconv.FormatInt(c.ID, 10), Name: name}, nil
}

func (b *Backend) Send(ctx context.Context, to chat.Destination, e chat.Embed) error {
	bot, err := b.current()
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(to.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("send to %s %q: %w", to.Kind, to.ID, chat.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = bot.Send(&tele.Chat{ID: chatID}, RenderHTML(e), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("send to %s %d: %w", to.Kind, chatID, classify(err))
	}
	return nil
}

// RenderHTML lays the embed out in Telegram's HTML subset.
func RenderHTML(e chat.Embed) string {
	var b strings.Builder
	title := html.EscapeString(e.Title)
	if e.URL != "" {
		fmt.Fprintf(&b, "<b><a href=\"%s\">%s</a></b>\n", html.EscapeString(e.URL), title)
	} else {
		fmt.Fprintf(&b, "<b>%s</b>\n", title)
	}
	if e.Description != "" {
		b.WriteString(html.EscapeString(e.Description))
		b.WriteString("\n")
	}
	if len(e.Fields) > 0 {
		b.WriteString("\n")
		for _, f := range e.Fields {
			fmt.Fprintf(&b, "<b>%s:</b> %s\n", html.EscapeString(f.Name), html.EscapeString(f.Value))
		}
	}
	footer := html.EscapeString(e.Footer)
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")
		if footer != "" {
			footer += " · "
		}
		footer += ts
	}
	if footer != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>", footer)
	}
	return strings.TrimRight(b.String(), "\n")
}

// classify maps Bot API failures onto the chat sentinels. telebot returns
// *tele.Error for descriptions it knows and a plain error otherwise.
func classify(err error) error {
	var terr *tele.Error
	if errors.As(err, &terr) {
		switch terr.Code {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", chat.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "forbidden"):
		return fmt.Errorf("%w: %w", chat.ErrForbidden, err)
	case strings.Contains(msg, "chat not found"), strings.Contains(msg, "user not found"):
		return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
	}
	return err
}
