// Package chat is the boundary to the messaging platform. Backends live in
// the discord and telegram subpackages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound means the channel or user id does not resolve.
	ErrNotFound = errors.New("chat: destination not found")
	// ErrForbidden means the platform refused delivery, e.g. the user
	// has direct messages disabled or blocked the bot.
	ErrForbidden = errors.New("chat: forbidden")
	// ErrNotReady is returned when the session has not finished connecting.
	ErrNotReady = errors.New("chat: session not ready")
)

type Kind int

const (
	KindChannel Kind = iota
	KindUser
)

func (k Kind) String() string {
	if k == KindUser {
		return "user"
	}
	return "channel"
}

// Destination is a resolved place to deliver a message.
type Destination struct {
	Kind Kind
	ID   string
	Name string
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rich message.
type Embed struct {
	Title       string
	URL         string
	Description string
	Color       int
	Timestamp   time.Time
	Fields      []Field
	Footer      string
}

// PlainText renders the embed for channels without rich formatting.
func (e Embed) PlainText() string {
	var b strings.Builder
	b.WriteString(e.Title)
	if e.URL != "" {
		fmt.Fprintf(&b, " (%s)", e.URL)
	}
	b.WriteString("\n")
	if e.Description != "" {
		b.WriteString(e.Description)
		b.WriteString("\n")
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	if e.Footer != "" || !e.Timestamp.IsZero() {
		b.WriteString("--\n")
		b.WriteString(e.Footer)
		if !e.Timestamp.IsZero() {
			if e.Footer != "" {
				b.WriteString(" · ")
			}
			b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Backend is a connected bot session.
type Backend interface {
	// Open establishes the session and returns once the platform reports
	// it ready. A bad credential is returned as an error.
	Open(ctx context.Context) error
	Close() error
	// Identity describes the logged-in bot, e.g. "name (ID: 123)".
	Identity() string

	ResolveChannel(ctx context.Context, id string) (Destination, error)
	ResolveUser(ctx context.Context, id string) (Destination, error)
	Send(ctx context.Context, to Destination, e Embed) error
}
