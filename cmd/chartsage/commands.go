package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/chartsage/internal/clients/gemini"
	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/models"
)

// readImage loads a chart screenshot as a data URI.
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image %s is empty", path)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s does not look like an image (%s)", path, mime)
	}
	return gemini.EncodeDataURI(mime, data), nil
}

// emit prints raw JSON when --json is set, otherwise the formatted view.
func emit(w io.Writer, opts *cliOptions, raw []byte, format func(io.Writer)) {
	if opts.jsonOut {
		fmt.Fprintln(w, strings.TrimSpace(string(raw)))
		return
	}
	format(w)
}

func printResult(w io.Writer, r *models.AnalysisResult) {
	fmt.Fprintf(w, "%s  %s\n", r.Signal, r.Market)
	fmt.Fprintf(w, "  Mode:   %s\n", r.Mode)
	fmt.Fprintf(w, "  Entry:  %s\n", r.EntrySuggestion)
	if r.Warning != "" {
		fmt.Fprintf(w, "  Alert:  %s\n", r.Warning)
	}
	fmt.Fprintf(w, "  Time:   %s\n", r.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	if r.ContinuationImage != "" {
		fmt.Fprintln(w, "  Projection image included (use --json to save it)")
	}
	for i, link := range r.GroundingLinks {
		if i == 0 {
			fmt.Fprintln(w, "  Sources:")
		}
		fmt.Fprintf(w, "    - %s\n", link)
	}
}

func analyzeCmd(opts *cliOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyse a chart screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readImage(args[0])
			if err != nil {
				return err
			}

			var result models.AnalysisResult
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, "/api/analysis",
				map[string]string{"mode": mode, "image": image}, &result)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) { printResult(w, &result) })
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "trade mode: BINARY or FOREX (default: the desk's current mode)")
	return cmd
}

func scanCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Ask the analyst for a setup without a chart (weekdays only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result models.AnalysisResult
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, "/api/analysis",
				map[string]string{"mode": string(models.ModeScan)}, &result)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) { printResult(w, &result) })
			return nil
		},
	}
}

func modeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <BINARY|FOREX|LIVE|SCAN>",
		Short: "Switch the desk mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := models.ParseTradeMode(args[0])
			if err != nil {
				return err
			}
			var status models.DeskStatus
			raw, err := opts.client().call(cmd.Context(), http.MethodPut, "/api/mode",
				map[string]string{"mode": string(mode)}, &status)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) {
				fmt.Fprintf(w, "Desk mode: %s (%s)\n", status.Mode, status.State)
			})
			return nil
		},
	}
}

func historyCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recent analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Results []models.AnalysisResult `json:"results"`
			}
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, "/api/history", nil, &resp)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) {
				if len(resp.Results) == 0 {
					fmt.Fprintln(w, "No analyses yet.")
					return
				}
				for _, r := range resp.Results {
					fmt.Fprintf(w, "%s  %-6s %-4s %-10s %s\n",
						r.Timestamp.Format("2006-01-02 15:04"), r.Mode, r.Signal, r.Market, r.EntrySuggestion)
				}
			})
			return nil
		},
	}
}

func marketCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show whether the market scanner is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status models.MarketStatus
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, "/api/market/status", nil, &status)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) {
				if status.Open {
					fmt.Fprintln(w, "Scanner available")
					return
				}
				fmt.Fprintf(w, "Scanner unavailable: %s\n", status.Reason)
			})
			return nil
		},
	}
}

func traderCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trader",
		Short: "Register, log in and manage trader access",
	}

	printTrader := func(w io.Writer, t *models.Trader) {
		state := "pending approval"
		if t.Approved {
			state = "approved"
		}
		fmt.Fprintf(w, "%s  %s  %s\n", t.TraderID, t.Email, state)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <email>",
		Short: "Request access; prints the generated trader id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var trader models.Trader
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, "/api/traders/register",
				map[string]string{"email": args[0]}, &trader)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) { printTrader(w, &trader) })
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "login <trader-id>",
		Short: "Log in; prints a bearer token once approved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				TraderID string `json:"trader_id"`
				Approved bool   `json:"approved"`
				Token    string `json:"token"`
			}
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, "/api/traders/login",
				map[string]string{"trader_id": args[0]}, &resp)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) {
				if !resp.Approved {
					fmt.Fprintf(w, "%s is awaiting approval\n", resp.TraderID)
					return
				}
				fmt.Fprintf(w, "export CHARTSAGE_TOKEN=%s\n", resp.Token)
			})
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "approve <trader-id>",
		Short: "Approve a trader (requires --admin-key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.adminKey == "" {
				return fmt.Errorf("--admin-key or CHARTSAGE_AUTH_ADMIN_KEY is required")
			}
			var trader models.Trader
			path := "/api/traders/" + strings.ToUpper(strings.TrimSpace(args[0])) + "/approve"
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, path, nil, &trader, "X-Admin-Key", opts.adminKey)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) { printTrader(w, &trader) })
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the logged-in trader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var trader models.Trader
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, "/api/traders/status", nil, &trader)
			if err != nil {
				return err
			}
			emit(cmd.OutOrStdout(), opts, raw, func(w io.Writer) { printTrader(w, &trader) })
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Delete the logged-in trader's account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/traders/logout", nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	})

	return cmd
}

func versionCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "chartsage %s\n", common.GetFullVersion())

			raw, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/version", nil)
			if err != nil {
				fmt.Fprintf(w, "server: unreachable (%v)\n", err)
				return nil
			}
			var v map[string]string
			if json.Unmarshal(raw, &v) == nil {
				fmt.Fprintf(w, "server %s (build: %s, commit: %s)\n", v["version"], v["build"], v["commit"])
			}
			return nil
		},
	}
}
