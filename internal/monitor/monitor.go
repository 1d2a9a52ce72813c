// Package monitor runs one probe-decide-notify cycle against a single URL.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/siteupbot/internal/domain"
	"github.com/hamed0406/siteupbot/internal/notify"
	"github.com/hamed0406/siteupbot/internal/probe"
	"github.com/hamed0406/siteupbot/internal/repo"
)

type Monitor struct {
	Logger    *zap.Logger
	Checker   probe.Checker
	Notifier  notify.Notifier
	Store     repo.StatusStore
	URL       string
	Threshold int

	// DNS explains transport failures in debug logs. Nil uses probe.CheckDNS.
	DNS func(ctx context.Context, host string) probe.DNSStatus

	// read-model counters; Cycle is never called concurrently
	cycles       uint64
	lastNotified *time.Time
}

func New(logger *zap.Logger, c probe.Checker, n notify.Notifier, s repo.StatusStore, url string, threshold int) *Monitor {
	if threshold < 1 {
		threshold = 1
	}
	return &Monitor{
		Logger:    logger,
		Checker:   c,
		Notifier:  n,
		Store:     s,
		URL:       url,
		Threshold: threshold,
	}
}

// Cycle probes once and returns the state for the next cycle. Delivery
// errors are logged and never change the returned state: Previous always
// becomes this cycle's record.
func (m *Monitor) Cycle(ctx context.Context, st domain.MonitorState) domain.MonitorState {
	log := m.Logger.With(zap.String("cycle_id", uuid.NewString()))

	rec := m.Checker.Check(ctx, m.URL)
	st = st.Observe(rec)
	m.cycles++

	log.Info("status_check",
		zap.String("url", m.URL),
		zap.Bool("online", rec.Online),
		zap.Int("status", rec.StatusCode),
		zap.Int64("response_time_ms", rec.ResponseTimeMS),
		zap.Int("consecutive_failures", st.ConsecutiveFailures),
		zap.String("message", rec.Message),
	)
	if !rec.Online && rec.StatusCode == 0 {
		m.diagnose(ctx, log)
	}

	fire := notify.ShouldNotify(st.Previous, rec, st.ConsecutiveFailures, m.Threshold)
	if fire {
		if err := m.Notifier.Notify(ctx, rec); err != nil {
			log.Error("notify_failed", zap.Error(err))
		} else {
			now := time.Now().UTC()
			m.lastNotified = &now
		}
	}

	st = st.Advance(rec)

	if m.Store != nil {
		snap := domain.Snapshot{
			TargetURL:           m.URL,
			Current:             rec,
			ConsecutiveFailures: st.ConsecutiveFailures,
			Threshold:           m.Threshold,
			Cycles:              m.cycles,
			Notified:            fire,
			LastNotifiedAt:      m.lastNotified,
		}
		if err := m.Store.Save(ctx, snap); err != nil {
			log.Warn("snapshot_save_error", zap.Error(err))
		}
	}

	log.Debug("cycle_done", zap.Bool("notified", fire))
	return st
}

func (m *Monitor) diagnose(ctx context.Context, log *zap.Logger) {
	if !log.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	host := probe.ExtractHost(m.URL)
	if host == "" {
		return
	}
	check := m.DNS
	if check == nil {
		check = probe.CheckDNS
	}
	d := check(ctx, host)
	log.Debug("probe_dns",
		zap.String("host", d.Domain),
		zap.String("class", d.Class),
		zap.Strings("nameservers", d.Nameservers),
		zap.String("cname", d.CNAME),
		zap.String("resolver_error", d.ResolverError),
	)
}
