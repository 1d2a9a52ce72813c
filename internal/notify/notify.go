package notify

import (
	"context"

	"go.uber.org/multierr"

	"github.com/hamed0406/siteupbot/internal/chat"
	"github.com/hamed0406/siteupbot/internal/domain"
)

// Notifier turns a status record into outbound messages.
type Notifier interface {
	Notify(ctx context.Context, status domain.StatusRecord) error
}

// Sink delivers one rendered status card somewhere.
type Sink interface {
	Send(ctx context.Context, e chat.Embed) error
}

// Multi sends to every sink, even after one fails, and returns the
// combined error.
type Multi []Sink

func (m Multi) Send(ctx context.Context, e chat.Embed) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Send(ctx, e))
	}
	return err
}

// Service formats a record for one site and fans it out to the sinks.
type Service struct {
	site  Site
	sinks Multi
}

func NewService(site Site, sinks ...Sink) *Service {
	return &Service{site: site, sinks: Multi(sinks)}
}

func (s *Service) Notify(ctx context.Context, status domain.StatusRecord) error {
	return s.sinks.Send(ctx, Format(s.site, status))
}
