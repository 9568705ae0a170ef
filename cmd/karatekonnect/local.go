package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cuemby/karatekonnect/pkg/cache"
	"github.com/cuemby/karatekonnect/pkg/log"
	"github.com/spf13/cobra"
)

// Token commands
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the write token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set TOKEN",
	Short: "Store the personal access token used for writes",
	Long: `Store the personal access token used for writes.

Pass - to read the token from standard input so it stays out of shell history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		if token == "-" {
			var err error
			token, err = readToken(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}
		if err := app.roster.SetToken(token); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Token stored")
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.roster.ClearToken(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Token cleared")
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := app.roster.HasToken()
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Token configured")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No token configured")
		}
		return nil
	},
}

// Cache commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the local roster cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the age of the cached roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := app.roster.Cache()
		age, err := c.Age()
		writeCacheStatus(cmd.OutOrStdout(), age, c.TTL(), err)
		if err != nil && !errors.Is(err, cache.ErrMiss) && !errors.Is(err, cache.ErrCorrupt) {
			return err
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached roster so the next read goes to the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.roster.Cache().Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cache cleared")
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the roster document",
	Long: `Print the roster document as JSON.

With --watch the roster is re-read every refresh_interval until interrupted,
keeping the local cache warm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireDocument(); err != nil {
			return err
		}
		ctx := cmd.Context()
		watch, _ := cmd.Flags().GetBool("watch")

		doc, err := app.roster.FetchData(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
		if !watch {
			return nil
		}

		ticker := time.NewTicker(app.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				doc, err := app.roster.FetchData(ctx)
				if err != nil {
					log.Logger.Warn().Err(err).Msg("Refresh failed")
					continue
				}
				log.Logger.Info().
					Int("athletes", len(doc.Athletes)).
					Str("last_updated", doc.LastUpdated).
					Msg("Roster refreshed")
			}
		}
	},
}

func init() {
	fetchCmd.Flags().Bool("watch", false, "Keep refreshing every refresh_interval")

	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	tokenCmd.AddCommand(tokenStatusCmd)

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func writeCacheStatus(w io.Writer, age, ttl time.Duration, err error) {
	switch {
	case errors.Is(err, cache.ErrMiss):
		fmt.Fprintln(w, "No cached roster")
	case errors.Is(err, cache.ErrCorrupt):
		fmt.Fprintln(w, "Cached roster is unreadable and will be replaced on the next read")
	case err != nil:
		fmt.Fprintf(w, "Cache status unknown: %v\n", err)
	case age > ttl:
		fmt.Fprintf(w, "Cached roster is %s old (expired, ttl %s)\n", age.Round(time.Second), ttl)
	default:
		fmt.Fprintf(w, "Cached roster is %s old (fresh, ttl %s)\n", age.Round(time.Second), ttl)
	}
}
