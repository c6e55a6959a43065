/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_tv/internal/db"
	"github.com/friendsincode/grimnir_tv/internal/models"
)

var (
	resetForce       bool
	resetKeepFillers bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all channels and filler lists",
	Long: `Reset Grimnir TV to a fresh state.

This command will:
- Drop the channel table (and the filler table unless --keep-fillers)
- Re-create empty tables

WARNING: This action is irreversible! All data will be lost.

Examples:
  # Interactive reset (will prompt for confirmation)
  grimnirtv reset

  # Force reset without confirmation
  grimnirtv reset --force

  # Start over on channels but keep filler lists
  grimnirtv reset --force --keep-fillers
`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	resetCmd.Flags().BoolVar(&resetKeepFillers, "keep-fillers", false, "Preserve filler lists")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if !resetForce {
		fmt.Println("This will DELETE from Grimnir TV:")
		fmt.Println("  - All channels and compiled schedules")
		if !resetKeepFillers {
			fmt.Println("  - All filler lists")
		}
		fmt.Println("This action CANNOT be undone!")
		fmt.Println()

		fmt.Print("Type 'yes' to confirm reset: ")
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	logger.Info().Bool("keep_fillers", resetKeepFillers).Msg("Starting database reset")

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	tables := []any{&models.ChannelRecord{}}
	if !resetKeepFillers {
		tables = append(tables, &models.FillerRecord{})
	}

	logger.Info().Msg("Dropping tables")
	for _, table := range tables {
		if err := database.Migrator().DropTable(table); err != nil {
			// table might not exist
			logger.Debug().Err(err).Msg("drop table (may not exist)")
		}
	}

	logger.Info().Msg("Creating fresh database schema")
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	logger.Info().Msg("Reset complete")
	fmt.Println("Grimnir TV has been reset. Start the server with: grimnirtv serve")
	return nil
}
