// ABOUTME: Command line entry point for the content fetcher
// ABOUTME: Offers fetch, collect and serve commands over the same wired subsystem

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/logger"
	"content-fetch-api/pkg/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "contentfetch",
		Short:   "Fetch web pages politely with escalating strategies",
		Version: version,
		Long: `contentfetch retrieves web pages for downstream processing. Each URL is
tried through the provider search API, then direct HTTP, then a headless
browser, honoring robots.txt and per-domain pacing. Configuration comes from
the environment (see AR_*, BRAVE_API_KEY, SERPER_API_KEY, CACHE_TYPE, LOG_*).`,
		Example: `  # Fetch two pages and print one JSON result per line
  contentfetch fetch https://example.com/about https://example.org/

  # Fetch every URL listed in a file
  contentfetch fetch --file urls.txt

  # Collect five usable pages for a query
  contentfetch collect "espresso grinder reviews" --count 5

  # Run the HTTP API
  PORT=8080 contentfetch serve`,
		SilenceUsage: true,
	}

	root.AddCommand(newFetchCmd(), newCollectCmd(), newServeCmd())
	return root
}

// bootstrap loads configuration and the logger shared by every command
func bootstrap() (*config.Config, interfaces.Logger, func() error, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, closeLog, nil
}

// withApp runs fn against a fully wired app and tears it down afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, log, closeLog, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Startup failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}
