// Package chattest provides an in-memory chat.Backend for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/hamed0406/siteupbot/internal/chat"
)

// Sent is one delivered message.
type Sent struct {
	To    chat.Destination
	Embed chat.Embed
}

// Fake knows a fixed set of channels and users. Errors can be injected
// per destination kind.
type Fake struct {
	Channels map[string]string // id -> name
	Users    map[string]string

	ChannelErr error // returned by Send to a channel
	DMErr      error // returned by Send to a user

	mu     sync.Mutex
	sent   []Sent
	opened bool
}

var _ chat.Backend = (*Fake)(nil)

func New(channelID, userID string) *Fake {
	return &Fake{
		Channels: map[string]string{channelID: "status"},
		Users:    map[string]string{userID: "owner"},
	}
}

func (f *Fake) Open(context.Context) error {
	f.mu.Lock()
	f.opened = true
	f.mu.Unlock()
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.opened = false
	f.mu.Unlock()
	return nil
}

func (f *Fake) Identity() string { return "fakebot (ID: 1)" }

func (f *Fake) ResolveChannel(_ context.Context, id string) (chat.Destination, error) {
	name, ok := f.Channels[id]
	if !ok {
		return chat.Destination{}, fmt.Errorf("channel %s: %w", id, chat.ErrNotFound)
	}
	return chat.Destination{Kind: chat.KindChannel, ID: id, Name: name}, nil
}

func (f *Fake) ResolveUser(_ context.Context, id string) (chat.Destination, error) {
	name, ok := f.Users[id]
	if !ok {
		return chat.Destination{}, fmt.Errorf("user %s: %w", id, chat.ErrNotFound)
	}
	return chat.Destination{Kind: chat.KindUser, ID: id, Name: name}, nil
}

func (f *Fake) Send(_ context.Context, to chat.Destination, e chat.Embed) error {
	if to.Kind == chat.KindUser && f.DMErr != nil {
		return f.DMErr
	}
	if to.Kind == chat.KindChannel && f.ChannelErr != nil {
		return f.ChannelErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, Sent{To: to, Embed: e})
	f.mu.Unlock()
	return nil
}

// Sent returns a copy of everything delivered so far.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// SentTo counts deliveries of the given kind.
func (f *Fake) SentTo(k chat.Kind) int {
	n := 0
	for _, s := range f.Sent() {
		if s.To.Kind == k {
			n++
		}
	}
	return n
}
