/*
main.go - gatectl, the focusgate client CLI

PURPOSE:
  Talks to a running focusgate daemon over its REST surface. Covers the same
  ground the status-bar and menu clients do: read the snapshot, spend or end
  a work credit, complete requirements, and temporarily disable enforcement.

COMMANDS:
  gatectl info                 Print the current snapshot
  gatectl watch                Poll on the version counter, print on change
  gatectl unlock               Spend a work credit
  gatectl lock                 End the work period, start a break
  gatectl complete <id>        Complete a requirement by id
  gatectl add <name> <HH:MM>   Add a requirement for today
  gatectl deactivate <minutes> Suppress enforcement
  gatectl report               Print today's summary

GLOBAL FLAGS:
  --server   Daemon base URL (default: http://localhost:3000)
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/focusgate/session-engine/api"
	"github.com/focusgate/session-engine/engine"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Server string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gatectl",
		Short:         "Client for the focusgate session daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "http://localhost:3000", "daemon base URL")

	cmd.AddCommand(newInfoCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newUnlockCommand(opts))
	cmd.AddCommand(newLockCommand(opts))
	cmd.AddCommand(newCompleteCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newDeactivateCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	return cmd
}

// =============================================================================
// COMMANDS
// =============================================================================

func newInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the current session snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			var dto api.InfoDTO
			if err := getJSON(opts, "/api/info", &dto); err != nil {
				return err
			}
			printInfo(cmd, dto)
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	interval := time.Second
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the snapshot every time it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := uint64(0) // NoCache: first poll always answers
			for {
				status, body, err := get(opts, fmt.Sprintf("/api/info/changed?version=%d", version))
				if err != nil {
					return err
				}
				if status == http.StatusOK {
					var dto api.InfoDTO
					if err := json.Unmarshal(body, &dto); err != nil {
						return fmt.Errorf("decoding snapshot: %w", err)
					}
					version = dto.Version
					printInfo(cmd, dto)
				}
				time.Sleep(interval)
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}

func newUnlockCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Spend a work credit to unlock the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint(cmd, opts, "/api/timer/unlock", nil)
		},
	}
}

func newLockCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "End the work period and start a break",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint(cmd, opts, "/api/timer/lock", nil)
		},
	}
}

func newCompleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete one of today's requirements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid requirement id %q", args[0])
			}
			return postAndPrint(cmd, opts, fmt.Sprintf("/api/requirements/%d/complete", id), nil)
		},
	}
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <HH:MM>",
		Short: "Add a requirement for today",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var due engine.HourMinute
			if err := due.UnmarshalText([]byte(args[1])); err != nil {
				return err
			}
			body := api.AddRequirementRequest{Name: args[0], Due: due}
			return postAndPrint(cmd, opts, "/api/requirements", body)
		},
	}
}

func newDeactivateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <minutes>",
		Short: "Suppress enforcement for a number of minutes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || minutes <= 0 {
				return fmt.Errorf("invalid minute count %q", args[0])
			}
			body := api.DeactivateRequest{Minutes: minutes}
			return postAndPrint(cmd, opts, "/api/deactivate", body)
		},
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print today's journal summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, body, err := get(opts, "/api/report/today")
			if err != nil {
				return err
			}
			var pretty map[string]any
			if err := json.Unmarshal(body, &pretty); err != nil {
				return fmt.Errorf("decoding report: %w", err)
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			cmd.Println(string(out))
			return nil
		},
	}
}

// =============================================================================
// HTTP + OUTPUT HELPERS
// =============================================================================

func get(opts *rootOptions, path string) (int, []byte, error) {
	resp, err := http.Get(opts.Server + path)
	if err != nil {
		return 0, nil, fmt.Errorf("reaching daemon: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func getJSON(opts *rootOptions, path string, out any) error {
	status, body, err := get(opts, path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return daemonError(status, body)
	}
	return json.Unmarshal(body, out)
}

func postAndPrint(cmd *cobra.Command, opts *rootOptions, path string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("{}")
	}
	resp, err := http.Post(opts.Server+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("reaching daemon: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return daemonError(resp.StatusCode, payload)
	}
	var dto api.InfoDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	printInfo(cmd, dto)
	return nil
}

func daemonError(status int, body []byte) error {
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return fmt.Errorf("daemon: %s", er.Error)
	}
	return fmt.Errorf("daemon returned status %d", status)
}

func printInfo(cmd *cobra.Command, dto api.InfoDTO) {
	info := dto.Info
	cmd.Printf("state: %s (%s", info.State, info.Reason.Kind)
	if info.Reason.ID != 0 {
		cmd.Printf(" %d", info.Reason.ID)
	}
	cmd.Printf("), version %d\n", dto.Version)
	if info.Until != nil {
		cmd.Printf("next change: %s\n", *info.Until)
	}
	if info.DeactivatedUntil != nil {
		cmd.Printf("deactivated until: %s\n", *info.DeactivatedUntil)
	}
	cmd.Printf("enforcing: %v\n", info.Enforcing)
	if len(info.Requirements) > 0 {
		cmd.Println("requirements:")
		for _, req := range info.Requirements {
			mark := " "
			if req.Complete {
				mark = "x"
			}
			cmd.Printf("  [%s] %d  %s (due %s)\n", mark, req.ID, req.Name, req.Due)
		}
	}
}
