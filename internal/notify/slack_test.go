package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/siteupbot/internal/chat"
)

func TestSlack_OK(t *testing.T) {
	var got slackPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	e := chat.Embed{
		Title:       "Example Status Update",
		Description: "Example is down. Error: timeout",
		Color:       ColorOffline,
		Timestamp:   time.Unix(1700000000, 0),
		Fields:      []chat.Field{{Name: "Status", Value: "❌ Offline", Inline: true}},
	}
	if err := s.Send(context.Background(), e); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if !strings.HasPrefix(got.Text, "*Example Status Update*") {
		t.Fatalf("payload not as expected: %q", got.Text)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Color != "#e74c3c" || got.Attachments[0].Ts != 1700000000 {
		t.Fatalf("attachment wrong: %+v", got.Attachments)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if err := s.Send(context.Background(), chat.Embed{Title: "X"}); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestNewSlack_EmptyWebhookDisabled(t *testing.T) {
	if NewSlack("") != nil {
		t.Fatalf("empty webhook should give nil")
	}
}
