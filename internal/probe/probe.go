package probe

import (
	"context"
	"net/url"

	"github.com/hamed0406/siteupbot/internal/domain"
)

// Checker performs a single availability check of a target URL.
// Implementations never return an error: every failure is an offline record.
type Checker interface {
	Check(ctx context.Context, target string) domain.StatusRecord
}

// ExtractHost pulls the hostname from a URL string.
func ExtractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
