// ABOUTME: fetch and collect commands
// ABOUTME: Write one JSON result per line to stdout

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"content-fetch-api/core/domain"
)

func newFetchCmd() *cobra.Command {
	var (
		file          string
		minBodyLength int
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch [URL...]",
		Short: "Fetch pages and print one JSON result per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if file != "" {
				fromFile, err := readURLs(file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given; pass them as arguments or with --file")
			}

			reqs := make([]domain.FetchRequest, 0, len(urls))
			for _, u := range urls {
				reqs = append(reqs, domain.FetchRequest{URL: u, MinBodyLength: minBodyLength, Timeout: timeout})
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				return a.run(ctx, reqs, func(r domain.FetchResult) error {
					return enc.Encode(r)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one URL per line (# starts a comment)")
	cmd.Flags().IntVar(&minBodyLength, "min-body", 0, "Thin content threshold override in characters")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Per-URL deadline (0 uses the domain policy)")
	return cmd
}

func newCollectCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "collect QUERY",
		Short: "Search the provider and fetch until COUNT pages succeed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.collector == nil {
					return fmt.Errorf("collect needs a search provider credential (BRAVE_API_KEY or SERPER_API_KEY)")
				}
				results, err := a.collector.Collect(ctx, args[0], count)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, r := range results {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of pages wanted")
	return cmd
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open URL file: %w", err)
	}
	defer f.Close()
	return parseURLList(f)
}

// parseURLList reads one URL per line, skipping blanks and # comments
func parseURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read URL file: %w", err)
	}
	return urls, nil
}
