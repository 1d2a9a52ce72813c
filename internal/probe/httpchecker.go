package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/siteupbot/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// HTTPChecker treats the target as up only when it serves an image:
// status 200 and a Content-Type under image/.
type HTTPChecker struct {
	Client *http.Client
	Name   string // display name used in messages
}

func NewHTTPChecker(name string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Name:   name,
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) domain.StatusRecord {
	start := time.Now()
	rec := domain.StatusRecord{Timestamp: start.UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		rec.Message = h.downMessage(err)
		return rec
	}

	// Do returns once the headers are in; the body is never read.
	resp, err := h.Client.Do(req)
	rec.ResponseTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		rec.Message = h.downMessage(err)
		return rec
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	rec.StatusCode = resp.StatusCode
	rec.ContentType = contentType

	if resp.StatusCode == http.StatusOK && isImage(contentType) {
		rec.Online = true
		rec.Message = fmt.Sprintf("%s is online. Response time: %dms", h.Name, rec.ResponseTimeMS)
		return rec
	}
	rec.Message = fmt.Sprintf("%s returned status %d but invalid content type: %s",
		h.Name, resp.StatusCode, contentType)
	return rec
}

func (h *HTTPChecker) downMessage(err error) string {
	return fmt.Sprintf("%s is down. Error: %s", h.Name, err.Error())
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
