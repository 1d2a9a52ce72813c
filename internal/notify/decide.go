package notify

import "github.com/hamed0406/siteupbot/internal/domain"

// ShouldNotify reports whether the current record is worth a message:
// the first observation, any online/offline flip, and every offline
// cycle once failures has reached threshold.
func ShouldNotify(previous *domain.StatusRecord, current domain.StatusRecord, failures, threshold int) bool {
	if previous == nil {
		return true
	}
	if previous.Online != current.Online {
		return true
	}
	return !current.Online && failures >= threshold
}
