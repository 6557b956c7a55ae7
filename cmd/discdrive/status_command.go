package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"discdrive/internal/api"
	"discdrive/internal/disc"
)

const daemonRequestTimeout = 5 * time.Second

type trayStatus struct {
	Device string `json:"device"`
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		wait       bool
		asJSON     bool
		fromDaemon bool
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the drive tray status",
		Long: "Query the tray state of the configured drive. With --daemon the\n" +
			"status is fetched from a running daemon instead of the device.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if fromDaemon {
				target := strings.TrimSpace(addr)
				if target == "" {
					target = cfg.Metrics.Bind
				}
				if target == "" {
					return errors.New("daemon status requires metrics.bind or --addr")
				}
				status, err := fetchDaemonStatus(cmd, target)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(cmd, status)
				return nil
			}

			status, err := ctx.driveStatus(cmd.Context(), cfg.Drive.Device, wait)
			if err != nil {
				return err
			}
			result := trayStatus{
				Device: cfg.Drive.Device,
				Status: status.String(),
				Ready:  status == disc.DriveStatusDiscOK,
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Device:  %s\n", result.Device)
			fmt.Fprintf(out, "Status:  %s\n", result.Status)
			fmt.Fprintf(out, "Ready:   %s\n", yesNo(result.Ready))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait up to a minute for a disc to become ready")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&fromDaemon, "daemon", false, "Ask the running daemon instead of the device")
	cmd.Flags().StringVar(&addr, "addr", "", "Daemon HTTP address (defaults to metrics.bind)")
	return cmd
}

func fetchDaemonStatus(cmd *cobra.Command, addr string) (api.DriveStatus, error) {
	url := addr
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/") + "/api/status"

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return api.DriveStatus{}, err
	}
	client := &http.Client{Timeout: daemonRequestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return api.DriveStatus{}, fmt.Errorf("connect to daemon at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return api.DriveStatus{}, fmt.Errorf("daemon status: %s", apiErr.Error)
		}
		return api.DriveStatus{}, fmt.Errorf("daemon status: unexpected response %s", resp.Status)
	}
	var status api.DriveStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return api.DriveStatus{}, fmt.Errorf("decode daemon status: %w", err)
	}
	return status, nil
}

func printDaemonStatus(cmd *cobra.Command, status api.DriveStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Device:       %s\n", status.Device)
	if status.Daemon != nil {
		fmt.Fprintf(out, "Daemon:       %s (pid %d)\n", yesNo(status.Daemon.Running), status.Daemon.PID)
	}
	fmt.Fprintf(out, "Disc present: %s\n", yesNo(status.Present))
	if !status.Present {
		return
	}
	fmt.Fprintf(out, "Media:        %s\n", mediaLabel(disc.ParseMediaType(status.Media)))
	fmt.Fprintf(out, "Sectors:      %d\n", status.SectorCount)
	if status.LayerBreak != 0 {
		fmt.Fprintf(out, "Layer break:  %d\n", status.LayerBreak)
	}
	if len(status.Tracks) > 0 {
		fmt.Fprintf(out, "Tracks:       %d\n", len(status.Tracks))
	}
	if status.Fingerprint != "" {
		fmt.Fprintf(out, "Fingerprint:  %s\n", status.Fingerprint)
	}
	if status.InsertedAt != "" {
		fmt.Fprintf(out, "Inserted:     %s\n", status.InsertedAt)
	}
}
