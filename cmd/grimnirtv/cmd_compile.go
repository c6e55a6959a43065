/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/schedule"
	"github.com/friendsincode/grimnir_tv/internal/server"
)

var compileChannel int

var compileCmd = &cobra.Command{
	Use:   "compile <rule.yaml>",
	Short: "Compile a random-slot or time-slot schedule",
	Long: `Compile a programming rule into a cyclic program list.

The rule file is YAML:

  kind: random        # or "time"
  programs:           # the program pool
    - kind: media
      type: episode
      showTitle: Toons
      title: Toons 1
      key: /toons/1
      duration: 1320000
  schedule:           # a random-slots or time-slots schedule
    pad: 300000
    maxDays: 7
    slots:
      - showId: tv.Toons
        duration: 1800000
        order: next

Without --channel the compiled list is printed as JSON. With --channel the
result replaces that channel's programs in the database.

Examples:
  grimnirtv compile weekday.yaml
  grimnirtv compile weekday.yaml --channel 4
`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().IntVar(&compileChannel, "channel", 0, "Save the result onto this channel")
	rootCmd.AddCommand(compileCmd)
}

// ruleFile is the on-disk form of a programming rule.
type ruleFile struct {
	Kind     string           `yaml:"kind"`
	Programs []models.Program `yaml:"programs"`
	Schedule yaml.Node        `yaml:"schedule"`
}

func readRule(r io.Reader) (ruleFile, error) {
	var rule ruleFile
	if err := yaml.NewDecoder(r).Decode(&rule); err != nil {
		return rule, fmt.Errorf("parse rule: %w", err)
	}
	switch rule.Kind {
	case "random", "time":
	default:
		return rule, fmt.Errorf("rule kind must be \"random\" or \"time\", got %q", rule.Kind)
	}
	return rule, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open rule: %w", err)
	}
	defer f.Close()

	rule, err := readRule(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var out any
	if compileChannel > 0 {
		out, err = compileOntoChannel(ctx, rule)
	} else {
		out, err = compileRule(ctx, schedule.NewCompiler(classify.Default{}, logger), rule)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func compileRule(ctx context.Context, compiler *schedule.Compiler, rule ruleFile) (schedule.Result, error) {
	if rule.Kind == "time" {
		var s schedule.TimeSlotsSchedule
		if err := rule.Schedule.Decode(&s); err != nil {
			return schedule.Result{}, fmt.Errorf("parse time-slots schedule: %w", err)
		}
		return compiler.CompileTimeSlots(ctx, rule.Programs, s)
	}
	var s schedule.RandomSlotsSchedule
	if err := rule.Schedule.Decode(&s); err != nil {
		return schedule.Result{}, fmt.Errorf("parse random-slots schedule: %w", err)
	}
	return compiler.CompileRandomSlots(ctx, rule.Programs, s)
}

func compileOntoChannel(ctx context.Context, rule ruleFile) (*models.Channel, error) {
	srv, err := server.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize server: %w", err)
	}
	defer srv.Close()

	if rule.Kind == "time" {
		var s schedule.TimeSlotsSchedule
		if err := rule.Schedule.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse time-slots schedule: %w", err)
		}
		return srv.Channels().CompileTimeSlots(ctx, compileChannel, rule.Programs, s)
	}
	var s schedule.RandomSlotsSchedule
	if err := rule.Schedule.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse random-slots schedule: %w", err)
	}
	return srv.Channels().CompileRandomSlots(ctx, compileChannel, rule.Programs, s)
}
