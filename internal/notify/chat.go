package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/siteupbot/internal/chat"
)

// Chat posts the card to the status channel and then as a direct message
// to the configured user.
type Chat struct {
	backend   chat.Backend
	channelID string
	userID    string
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewChat paces platform sends at perSec with a burst of two, enough for
// one channel post and one DM back to back.
func NewChat(b chat.Backend, channelID, userID string, perSec float64, log *zap.Logger) *Chat {
	if perSec <= 0 {
		perSec = 1
	}
	return &Chat{
		backend:   b,
		channelID: channelID,
		userID:    userID,
		limiter:   rate.NewLimiter(rate.Limit(perSec), 2),
		log:       log,
	}
}

// Send fails fast: when the channel cannot be resolved or posted to, no DM
// is attempted. A DM refused by the platform is logged and not returned;
// every other failure is returned for the caller to log.
func (c *Chat) Send(ctx context.Context, e chat.Embed) error {
	ch, err := c.backend.ResolveChannel(ctx, c.channelID)
	if err != nil {
		return fmt.Errorf("resolve status channel %s: %w", c.channelID, err)
	}
	if err := c.send(ctx, ch, e); err != nil {
		return fmt.Errorf("post to status channel %s: %w", c.channelID, err)
	}

	user, err := c.backend.ResolveUser(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("resolve dm user %s: %w", c.userID, err)
	}
	if err := c.send(ctx, user, e); err != nil {
		if errors.Is(err, chat.ErrForbidden) {
			c.log.Warn("notify_dm_forbidden", zap.String("user_id", c.userID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("dm user %s: %w", c.userID, err)
	}
	c.log.Debug("notify_sent", zap.String("channel", ch.Name), zap.String("user", user.Name))
	return nil
}

func (c *Chat) send(ctx context.Context, to chat.Destination, e chat.Embed) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.backend.Send(ctx, to, e)
}
