// Package discord implements chat.Backend on top of discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/hamed0406/siteupbot/internal/chat"
)

const defaultReadyTimeout = 30 * time.Second

type Backend struct {
	s            *discordgo.Session
	log          *zap.Logger
	onError      func(error)
	readyTimeout time.Duration

	mu    sync.RWMutex
	ready bool
}

var _ chat.Backend = (*Backend)(nil)

// New prepares a session. Nothing touches the network until Open.
// onError, when set, receives errors reported by the gateway goroutines.
func New(token string, log *zap.Logger, onError func(error)) (*Backend, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages
	s.LogLevel = discordgo.LogWarning

	b := &Backend{
		s:            s,
		log:          log.Named("discord"),
		onError:      onError,
		readyTimeout: defaultReadyTimeout,
	}
	discordgo.Logger = b.gatewayLog

	s.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		b.log.Warn("discord_disconnected")
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Resumed) {
		b.log.Info("discord_resumed")
	})
	return b, nil
}

// gatewayLog routes discordgo's internal logging into zap.
func (b *Backend) gatewayLog(msgL, caller int, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	switch msgL {
	case discordgo.LogError:
		b.log.Error("discord_error", zap.String("detail", msg))
		if b.onError != nil {
			b.onError(errors.New(msg))
		}
	case discordgo.LogWarning:
		b.log.Warn("discord_warning", zap.String("detail", msg))
	default:
		b.log.Debug("discord_log", zap.String("detail", msg))
	}
}

func (b *Backend) Open(ctx context.Context) error {
	readyCh := make(chan struct{})
	remove := b.s.AddHandlerOnce(func(_ *discordgo.Session, _ *discordgo.Ready) {
		close(readyCh)
	})

	if err := b.s.Open(); err != nil {
		remove()
		return fmt.Errorf("discord open: %w", err)
	}

	t := time.NewTimer(b.readyTimeout)
	defer t.Stop()
	select {
	case <-readyCh:
	case <-t.C:
		_ = b.s.Close()
		return fmt.Errorf("discord open: no READY after %s: %w", b.readyTimeout, chat.ErrNotReady)
	case <-ctx.Done():
		_ = b.s.Close()
		return ctx.Err()
	}

	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	b.ready = false
	b.mu.Unlock()
	return b.s.Close()
}

func (b *Backend) Identity() string {
	if b.s.State == nil || b.s.State.User == nil {
		return "unknown"
	}
	u := b.s.State.User
	return fmt.Sprintf("%s (ID: %s)", u.Username, u.ID)
}

func (b *Backend) isReady() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// ResolveChannel prefers the gateway cache and falls back to REST.
func (b *Backend) ResolveChannel(ctx context.Context, id string) (chat.Destination, error) {
	if !b.isReady() {
		return chat.Destination{}, chat.ErrNotReady
	}
	ch, err := b.s.State.Channel(id)
	if err != nil {
		ch, err = b.s.Channel(id, discordgo.WithContext(ctx))
		if err != nil {
			return chat.Destination{}, fmt.Errorf("resolve channel %s: %w", id, classify(err))
		}
	}
	return chat.Destination{Kind: chat.KindChannel, ID: ch.ID, Name: ch.Name}, nil
}

func (b *Backend) ResolveUser(ctx context.Context, id string) (chat.Destination, error) {
	if !b.isReady() {
		return chat.Destination{}, chat.ErrNotReady
	}
	u, err := b.s.User(id, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Destination{}, fmt.Errorf("resolve user %s: %w", id, classify(err))
	}
	return chat.Destination{Kind: chat.KindUser, ID: u.ID, Name: u.Username}, nil
}

func (b *Backend) Send(ctx context.Context, to chat.Destination, e chat.Embed) error {
	if !b.isReady() {
		return chat.ErrNotReady
	}
	channelID := to.ID
	if to.Kind == chat.KindUser {
		dm, err := b.s.UserChannelCreate(to.ID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("open dm with %s: %w", to.ID, classify(err))
		}
		channelID = dm.ID
	}
	if _, err := b.s.ChannelMessageSendEmbed(channelID, ToEmbed(e), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to %s %s: %w", to.Kind, to.ID, classify(err))
	}
	return nil
}

// ToEmbed converts the neutral embed into Discord's wire type. Every
// field is rendered inline.
func ToEmbed(e chat.Embed) *discordgo.MessageEmbed {
	me := &discordgo.MessageEmbed{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if !e.Timestamp.IsZero() {
		me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range e.Fields {
		me.Fields = append(me.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	if e.Footer != "" {
		me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return me
}

// classify maps Discord REST failures onto the chat sentinels.
func classify(err error) error {
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
	}
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return err
	}
	if rerr.Message != nil && rerr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
		return fmt.Errorf("%w: %w", chat.ErrForbidden, err)
	}
	if rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", chat.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
		}
	}
	return err
}
