/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored schedule",
	Long:  "Remove every block from the stored day schedule. Requires --force.",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "confirm clearing the schedule")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		return fmt.Errorf("refusing to clear the schedule without --force")
	}

	if err := loadConfig(); err != nil {
		return err
	}

	svc, cleanup, err := newLocalService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Reset(ctx); err != nil {
		return fmt.Errorf("reset schedule: %w", err)
	}

	logger.Info().Msg("schedule cleared")
	return nil
}
