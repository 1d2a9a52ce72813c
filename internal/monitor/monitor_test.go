package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/siteupbot/internal/chat"
	"github.com/hamed0406/siteupbot/internal/chat/chattest"
	"github.com/hamed0406/siteupbot/internal/domain"
	"github.com/hamed0406/siteupbot/internal/notify"
	"github.com/hamed0406/siteupbot/internal/probe"
	"github.com/hamed0406/siteupbot/internal/repo/memory"
)

const target = "https://example.com/logo.png"

// scripted returns the queued observations in order.
type scripted struct {
	mu  sync.Mutex
	obs []bool
}

func (s *scripted) Check(_ context.Context, _ string) domain.StatusRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	online := s.obs[0]
	s.obs = s.obs[1:]
	if online {
		return domain.StatusRecord{Online: true, StatusCode: 200, Message: "up"}
	}
	return domain.StatusRecord{Online: false, Message: "down"}
}

type countingNotifier struct {
	calls []domain.StatusRecord
	err   error
}

func (c *countingNotifier) Notify(_ context.Context, r domain.StatusRecord) error {
	c.calls = append(c.calls, r)
	return c.err
}

func runCycles(m *Monitor, n int) (domain.MonitorState, []domain.MonitorState) {
	var st domain.MonitorState
	var all []domain.MonitorState
	for i := 0; i < n; i++ {
		st = m.Cycle(context.Background(), st)
		all = append(all, st)
	}
	return st, all
}

func TestCycle_ThresholdScenario(t *testing.T) {
	obs := []bool{true, false, false, false, false}
	chk := &scripted{obs: append([]bool(nil), obs...)}
	n := &countingNotifier{}
	store := memory.New()
	m := New(zap.NewNop(), chk, n, store, target, 3)

	var notifiedAt []int
	var st domain.MonitorState
	for i := range obs {
		before := len(n.calls)
		st = m.Cycle(context.Background(), st)
		if len(n.calls) > before {
			notifiedAt = append(notifiedAt, i+1)
		}
	}

	assert.Equal(t, []int{1, 2, 4, 5}, notifiedAt)
	assert.Equal(t, 4, st.ConsecutiveFailures)
	require.NotNil(t, st.Previous)
	assert.False(t, st.Previous.Online)

	snap, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, uint64(5), snap.Cycles)
	assert.Equal(t, 4, snap.ConsecutiveFailures)
	assert.True(t, snap.Notified)
	assert.NotNil(t, snap.LastNotifiedAt)
	assert.Equal(t, target, snap.TargetURL)
}

func TestCycle_RecoveryResetsCounter(t *testing.T) {
	chk := &scripted{obs: []bool{false, false, true}}
	n := &countingNotifier{}
	m := New(zap.NewNop(), chk, n, nil, target, 3)

	st, all := runCycles(m, 3)
	assert.Equal(t, 1, all[0].ConsecutiveFailures)
	assert.Equal(t, 2, all[1].ConsecutiveFailures)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	// first, then recovery
	assert.Len(t, n.calls, 2)
}

func TestCycle_NotifyErrorDoesNotChangeState(t *testing.T) {
	failing := &countingNotifier{err: errors.New("gateway down")}
	ok := &countingNotifier{}

	a := New(zap.NewNop(), &scripted{obs: []bool{true, false, false}}, failing, nil, target, 3)
	b := New(zap.NewNop(), &scripted{obs: []bool{true, false, false}}, ok, nil, target, 3)

	_, withErr := runCycles(a, 3)
	_, clean := runCycles(b, 3)
	assert.Equal(t, clean, withErr)
	assert.Len(t, failing.calls, 2)
}

func TestCycle_DMForbiddenStillPostsChannel(t *testing.T) {
	f := chattest.New("10", "20")
	f.DMErr = fmt.Errorf("blocked: %w", chat.ErrForbidden)
	svc := notify.NewService(notify.Site{Name: "Example", CheckURL: target},
		notify.NewChat(f, "10", "20", 1000, zap.NewNop()))

	m := New(zap.NewNop(), &scripted{obs: []bool{true, false}}, svc, nil, target, 3)
	st, _ := runCycles(m, 2)

	assert.Equal(t, 2, f.SentTo(chat.KindChannel))
	assert.Equal(t, 0, f.SentTo(chat.KindUser))
	assert.Equal(t, 1, st.ConsecutiveFailures)
	require.NotNil(t, st.Previous)
	assert.False(t, st.Previous.Online)

	sent := f.Sent()
	assert.Equal(t, "❌ Offline", sent[1].Embed.Fields[0].Value)
}

func TestCycle_DeliveryFailureLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	f := chattest.New("10", "20")
	svc := notify.NewService(notify.Site{Name: "Example", CheckURL: target},
		notify.NewChat(f, "missing", "20", 1000, log))

	m := New(log, &scripted{obs: []bool{true}}, svc, nil, target, 3)
	runCycles(m, 1)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "notify_failed", errs[0].Message)
	assert.Contains(t, errs[0].ContextMap()["error"], "missing")
	assert.Empty(t, f.Sent())
}

func TestCycle_TransportFailureLogsDNS(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var asked string
	m := New(zap.New(core), &scripted{obs: []bool{false}}, &countingNotifier{}, nil, target, 3)
	m.DNS = func(_ context.Context, host string) probe.DNSStatus {
		asked = host
		return probe.DNSStatus{Domain: host, Class: probe.DNSNXDomain}
	}

	m.Cycle(context.Background(), domain.MonitorState{})

	assert.Equal(t, "example.com", asked)
	entries := logs.FilterMessage("probe_dns").All()
	require.Len(t, entries, 1)
	assert.Equal(t, probe.DNSNXDomain, entries[0].ContextMap()["class"])
	assert.NotEmpty(t, entries[0].ContextMap()["cycle_id"])
}

func TestCycle_NoDNSAtInfoLevel(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	m := New(zap.New(core), &scripted{obs: []bool{false}}, &countingNotifier{}, nil, target, 3)
	m.DNS = func(context.Context, string) probe.DNSStatus {
		t.Fatal("dns lookup should be skipped when debug is off")
		return probe.DNSStatus{}
	}
	m.Cycle(context.Background(), domain.MonitorState{})
}
