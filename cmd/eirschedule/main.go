/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/eir_schedule/internal/config"
	"github.com/friendsincode/eir_schedule/internal/db"
	"github.com/friendsincode/eir_schedule/internal/events"
	"github.com/friendsincode/eir_schedule/internal/logbuffer"
	"github.com/friendsincode/eir_schedule/internal/logging"
	"github.com/friendsincode/eir_schedule/internal/schedule"
	"github.com/friendsincode/eir_schedule/internal/scheduling"
	"github.com/friendsincode/eir_schedule/internal/server"
	"github.com/friendsincode/eir_schedule/internal/store"
	"github.com/friendsincode/eir_schedule/internal/telemetry"
	"github.com/friendsincode/eir_schedule/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "eirschedule",
	Short: "Eir Schedule - Operating room schedule consistency engine",
	Long:  "Eir Schedule keeps an operating room day schedule consistent under delays, resolving conflicts and streaming updates to connected boards.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Eir Schedule server",
	Long:  "Start the HTTP API, websocket hub, and metrics listener",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Recent log entries back the admin log endpoint
	logBuf := logbuffer.New(1000)
	logger = logging.SetupWithWriter(cfg.Environment, logbuffer.NewWriter(logBuf, nil))

	logger.Info().Str("version", version.Version).Msg("Eir Schedule starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "eir-schedule",
		ServiceVersion: version.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logBuf, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpServer := srv.HTTPServer()
	metricsServer := srv.MetricsServer()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := metricsServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("Eir Schedule stopped")
	return nil
}

// newLocalService wires a schedule service against the configured store
// without the full server stack. Used by import and reset commands.
func newLocalService() (*schedule.Service, func(), error) {
	cleanup := func() {}

	var st store.ScheduleStore
	if cfg.DBBackend == config.DatabaseFile {
		fileStore, err := store.NewFileStore(cfg.ScheduleFilePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		st = fileStore
	} else {
		database, err := db.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(database); err != nil {
			return nil, nil, err
		}
		st = store.NewGormStore(database, logger)
		cleanup = func() {
			if err := db.Close(database); err != nil {
				logger.Warn().Err(err).Msg("database close failed")
			}
		}
	}

	engine := scheduling.NewEngine(cfg.BufferMinutes, logger)
	return schedule.New(st, engine, nil, events.NewBus(), nil, logger), cleanup, nil
}
