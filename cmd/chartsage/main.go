// chartsage is the command-line client for a running chartsage-server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions holds the persistent flags shared by every subcommand.
type cliOptions struct {
	serverURL string
	token     string
	adminKey  string
	jsonOut   bool
}

func (o *cliOptions) client() *apiClient {
	return newAPIClient(o.serverURL, o.token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "chartsage",
		Short: "Institutional chart analysis from the terminal",
		Long: `chartsage sends chart screenshots to a chartsage server and prints the
BUY/SELL signal, entry trigger and the news sources behind it.

Authenticate once with "chartsage trader login <id>" and export the printed
token as CHARTSAGE_TOKEN.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.serverURL, "server", envOr("CHARTSAGE_SERVER_URL", "http://localhost:8080"), "chartsage server URL")
	flags.StringVar(&opts.token, "token", os.Getenv("CHARTSAGE_TOKEN"), "bearer token (defaults to CHARTSAGE_TOKEN)")
	flags.StringVar(&opts.adminKey, "admin-key", os.Getenv("CHARTSAGE_AUTH_ADMIN_KEY"), "admin key for trader approval")
	flags.BoolVar(&opts.jsonOut, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(
		analyzeCmd(opts),
		scanCmd(opts),
		modeCmd(opts),
		historyCmd(opts),
		marketCmd(opts),
		traderCmd(opts),
		mcpCmd(opts),
		versionCmd(opts),
	)
	return rootCmd
}
