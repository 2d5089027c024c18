// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

const statusTimeout = 2 * time.Second

// ProbeStatus holds the result of one health probe.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ServerStatus holds the health of a running accountd.
type ServerStatus struct {
	Addr      string      `json:"addr"`
	Liveness  ProbeStatus `json:"liveness"`
	Readiness ProbeStatus `json:"readiness"`
}

// Ready reports whether both probes passed.
func (s ServerStatus) Ready() bool {
	return s.Liveness.OK && s.Readiness.OK
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
	client     *http.Client
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running accountd",
		Long: `Query the liveness and readiness probes on metrics.addr and report the
health of a running server. Exits non-zero when the server is not ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, sc *statusConfig) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "metrics.addr").Errorf("metrics.addr is empty; health probes are disabled")
	}

	client := sc.client
	if client == nil {
		client = &http.Client{Timeout: statusTimeout}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	status := queryServerStatus(ctx, client, cfg.Metrics.Addr)

	if sc.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			return oops.Code("OUTPUT_FAILED").Wrap(err)
		}
	} else {
		formatStatusTable(cmd.OutOrStdout(), status)
	}

	if !status.Ready() {
		return oops.Code("NOT_READY").With("addr", status.Addr).Errorf("accountd is not ready")
	}
	return nil
}

func queryServerStatus(ctx context.Context, client *http.Client, addr string) ServerStatus {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return ServerStatus{
		Addr:      addr,
		Liveness:  probe(ctx, client, "liveness", base+"/healthz/liveness"),
		Readiness: probe(ctx, client, "readiness", base+"/healthz/readiness"),
	}
}

func probe(ctx context.Context, client *http.Client, name, url string) ProbeStatus {
	result := ProbeStatus{Probe: name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("failed to connect: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	result.Status = resp.StatusCode
	result.OK = resp.StatusCode == http.StatusOK
	if !result.OK {
		result.Error = http.StatusText(resp.StatusCode)
	}
	return result
}

// formatStatusTable writes the status as a human-readable table.
func formatStatusTable(out io.Writer, status ServerStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROBE\tSTATE\tDETAIL")
	_, _ = fmt.Fprintln(w, "-----\t-----\t------")
	for _, p := range []ProbeStatus{status.Liveness, status.Readiness} {
		state, detail := "ok", fmt.Sprintf("%d", p.Status)
		if !p.OK {
			state, detail = "failing", p.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.Probe, state, detail)
	}

	_ = w.Flush()
}
