package notify

import (
	"fmt"

	"github.com/hamed0406/siteupbot/internal/chat"
	"github.com/hamed0406/siteupbot/internal/domain"
)

const (
	ColorOnline  = 0x2ecc71
	ColorOffline = 0xe74c3c

	footerText = "Website Monitor Bot"
)

// Site is the monitored website as it appears in messages.
type Site struct {
	Name     string
	HomeURL  string
	CheckURL string
}

// Format builds the status card. It has no side effects.
func Format(site Site, status domain.StatusRecord) chat.Embed {
	color, label := ColorOnline, "✅ Online"
	if !status.Online {
		color, label = ColorOffline, "❌ Offline"
	}
	return chat.Embed{
		Title:       site.Name + " Status Update",
		URL:         site.HomeURL,
		Description: status.Message,
		Color:       color,
		Timestamp:   status.Timestamp,
		Fields: []chat.Field{
			{Name: "Status", Value: label, Inline: true},
			{Name: "Response Time", Value: fmt.Sprintf("%dms", status.ResponseTimeMS), Inline: true},
			{Name: "Checked URL", Value: site.CheckURL, Inline: true},
		},
		Footer: footerText,
	}
}
