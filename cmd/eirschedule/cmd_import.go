/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/eir_schedule/internal/models"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Seed the schedule from a JSON file",
	Long:  "Replace the stored day schedule with the blocks in the given JSON file. Blocks are sorted and conflict-resolved on import.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read schedule file: %w", err)
	}

	var blocks []models.SurgeryBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("parse schedule file: %w", err)
	}

	svc, cleanup, err := newLocalService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, violations, err := svc.Import(ctx, blocks)
	if err != nil {
		return fmt.Errorf("import schedule: %w", err)
	}

	for _, v := range violations {
		logger.Warn().Str("block_id", v.BlockID).Msg(v.Message)
	}
	logger.Info().Int("blocks", len(out)).Msg("schedule imported")
	return nil
}
