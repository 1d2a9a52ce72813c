package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamed0406/siteupbot/internal/config"
	"github.com/hamed0406/siteupbot/internal/probe"
)

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Validate configuration before starting the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if !preflight(cmd.Context(), cmd.OutOrStdout(), cfg, err, probe.CheckDNS) {
				return fmt.Errorf("preflight failed")
			}
			return nil
		},
	}
}

type dnsFunc func(ctx context.Context, host string) probe.DNSStatus

// preflight prints one ✔/⚠/✖ line per check and reports whether the bot
// can start. Warnings do not fail it.
func preflight(ctx context.Context, w io.Writer, cfg config.Config, loadErr error, dns dnsFunc) bool {
	passed := true
	fail := func(msg string) {
		fmt.Fprintln(w, "✖", msg)
		passed = false
	}
	warn := func(msg string) { fmt.Fprintln(w, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(w, "✔", msg) }

	if loadErr != nil {
		fail(loadErr.Error())
		return false
	}
	ok(fmt.Sprintf("backend=%s channel=%s user=%s", cfg.Backend, cfg.ChannelID, cfg.UserID))
	ok(fmt.Sprintf("CHECK_URL=%s every %s, threshold %d", cfg.TargetURL, cfg.CheckInterval, cfg.FailureThreshold))

	host := probe.ExtractHost(cfg.TargetURL)
	switch d := dns(ctx, host); d.Class {
	case probe.DNSResolves:
		ok("target host " + host + " resolves")
	case probe.DNSNXDomain, probe.DNSInvalidName:
		fail("target host " + host + " does not exist (" + d.Class + ")")
	default:
		warn("target host " + host + " lookup: " + d.Class)
	}

	if cfg.StatusAddr == "" {
		warn("STATUS_ADDR empty; status API disabled.")
	} else {
		ok("STATUS_ADDR=" + cfg.StatusAddr)
		if len(cfg.StatusAPIKeys) == 0 && !isLoopback(cfg.StatusAddr) {
			warn("STATUS_API_KEYS empty while STATUS_ADDR is not loopback; /api/status is public.")
		}
	}

	if cfg.SlackWebhook != "" {
		ok("Slack mirror enabled")
	}
	if cfg.SMTP.Enabled() {
		ok(fmt.Sprintf("email mirror via %s:%d to %s", cfg.SMTP.Host, cfg.SMTP.Port, strings.Join(cfg.SMTP.To, ",")))
	}

	if passed {
		ok("preflight passed")
	}
	return passed
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
