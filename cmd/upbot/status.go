package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/siteupbot/internal/config"
	"github.com/hamed0406/siteupbot/internal/domain"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest result from a running bot",
		Long: `status queries the running bot's /api/status endpoint. The address
comes from API_BASE, or STATUS_ADDR when API_BASE is unset. The first
STATUS_API_KEYS entry is sent as the key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			base := os.Getenv("API_BASE")
			if base == "" {
				if cfg.StatusAddr == "" {
					return fmt.Errorf("status API disabled (STATUS_ADDR is empty) and API_BASE not set")
				}
				base = "http://" + cfg.StatusAddr
			}
			key := ""
			if len(cfg.StatusAPIKeys) > 0 {
				key = cfg.StatusAPIKeys[0]
			}
			return fetchStatus(cmd.Context(), cmd.OutOrStdout(), base, key)
		},
	}
}

func fetchStatus(ctx context.Context, w io.Writer, base, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/status", nil)
	if err != nil {
		return err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	state := "ONLINE"
	if !snap.Current.Online {
		state = "OFFLINE"
	}
	fmt.Fprintf(w, "%s %s\n", state, snap.TargetURL)
	fmt.Fprintf(w, "  %s\n", snap.Current.Message)
	fmt.Fprintf(w, "  checked %s, %dms\n", snap.Current.Timestamp.Local().Format(time.RFC1123), snap.Current.ResponseTimeMS)
	fmt.Fprintf(w, "  failures %d/%d, cycles %d\n", snap.ConsecutiveFailures, snap.Threshold, snap.Cycles)
	if snap.LastNotifiedAt != nil {
		fmt.Fprintf(w, "  last notified %s\n", snap.LastNotifiedAt.Local().Format(time.RFC1123))
	}
	return nil
}
