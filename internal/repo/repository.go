package repo

import (
	"context"

	"github.com/hamed0406/siteupbot/internal/domain"
)

// StatusStore holds the most recent cycle snapshot for readers outside the
// loop. Nothing is kept across restarts.
type StatusStore interface {
	Save(ctx context.Context, s domain.Snapshot) error
	// Latest returns nil, nil before the first cycle has completed.
	Latest(ctx context.Context) (*domain.Snapshot, error)
}
