/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_tv/internal/lineup"
	"github.com/friendsincode/grimnir_tv/internal/server"
)

var (
	lineupAt    string
	lineupFirst bool
)

var lineupCmd = &cobra.Command{
	Use:   "lineup <channel>",
	Short: "Show what a channel is airing",
	Long: `Resolve the lineup item a channel airs at an instant.

Examples:
  grimnirtv lineup 4
  grimnirtv lineup 4 --at 2026-10-18T20:00:00Z --first
`,
	Args: cobra.ExactArgs(1),
	RunE: runLineup,
}

func init() {
	lineupCmd.Flags().StringVar(&lineupAt, "at", "", "RFC 3339 instant to resolve (default now)")
	lineupCmd.Flags().BoolVar(&lineupFirst, "first", false, "Resolve as a viewer tuning in")
	rootCmd.AddCommand(lineupCmd)
}

func runLineup(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(args[0])
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid channel number %q", args[0])
	}
	now := time.Now()
	if lineupAt != "" {
		now, err = time.Parse(time.RFC3339, lineupAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}

	if err := loadConfig(); err != nil {
		return err
	}
	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	defer srv.Close()

	item, err := srv.Resolver().Resolve(context.Background(), number, now, lineup.Options{First: lineupFirst})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(item)
}
