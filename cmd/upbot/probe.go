package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/siteupbot/internal/config"
	"github.com/hamed0406/siteupbot/internal/probe"
)

var errOffline = errors.New("target is offline")

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [url]",
		Short: "Check the target once and print the result",
		Long: `probe runs a single availability check without connecting to chat.
The URL defaults to CHECK_URL. A DNS diagnosis is printed when the
request never reached the server. Exits non-zero when offline.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			target := cfg.TargetURL
			if len(args) == 1 {
				target = args[0]
			}

			rec := probe.NewHTTPChecker(cfg.DisplayName, cfg.ProbeTimeout).Check(cmd.Context(), target)
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rec); err != nil {
				return err
			}

			if !rec.Online && rec.StatusCode == 0 {
				d := probe.CheckDNS(cmd.Context(), probe.ExtractHost(target))
				fmt.Fprintf(out, "dns: %s class=%s", d.Domain, d.Class)
				if d.ResolverError != "" {
					fmt.Fprintf(out, " error=%q", d.ResolverError)
				}
				fmt.Fprintln(out)
			}
			if !rec.Online {
				return errOffline
			}
			return nil
		},
	}
}
