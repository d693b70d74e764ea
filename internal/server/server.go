/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/eir_schedule/internal/api"
	"github.com/friendsincode/eir_schedule/internal/archive"
	"github.com/friendsincode/eir_schedule/internal/cache"
	"github.com/friendsincode/eir_schedule/internal/config"
	"github.com/friendsincode/eir_schedule/internal/db"
	"github.com/friendsincode/eir_schedule/internal/eventbus"
	"github.com/friendsincode/eir_schedule/internal/events"
	"github.com/friendsincode/eir_schedule/internal/hub"
	"github.com/friendsincode/eir_schedule/internal/logbuffer"
	"github.com/friendsincode/eir_schedule/internal/predictor"
	"github.com/friendsincode/eir_schedule/internal/schedule"
	"github.com/friendsincode/eir_schedule/internal/scheduling"
	"github.com/friendsincode/eir_schedule/internal/store"
	"github.com/friendsincode/eir_schedule/internal/telemetry"
	"github.com/friendsincode/eir_schedule/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       *eventbus.RedisBus
	hub       *hub.Hub
	schedule  *schedule.Service
	api       *api.API
	logBuffer *logbuffer.Buffer
	updates   *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("eir-schedule-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for websocket connections
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 so websocket connections are not cut;
		// the middleware timeout covers plain routes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           telemetry.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	st, err := s.initStore()
	if err != nil {
		return err
	}

	// Redis cache for schedule reads
	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	cacheCfg.ScheduleTTL = s.cfg.CacheTTL
	scheduleCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = scheduleCache
		s.DeferClose(func() error { return s.cache.Close() })
	}

	// Redis-relayed event bus, in-memory fallback when Redis is down
	instanceID := s.cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	busCfg := eventbus.DefaultRedisConfig()
	busCfg.Addr = s.cfg.RedisAddr
	busCfg.Password = s.cfg.RedisPassword
	busCfg.DB = s.cfg.RedisDB
	bus, err := eventbus.NewRedisBus(busCfg, instanceID, s.logger)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	s.bus = bus
	s.DeferClose(bus.Close)

	s.hub = hub.New(s.logger)

	archiver, err := s.initArchiver()
	if err != nil {
		return err
	}

	engine := scheduling.NewEngine(s.cfg.BufferMinutes, s.logger)
	s.schedule = schedule.New(st, engine, s.cache, bus, archiver, s.logger)

	gateway := predictor.NewHTTPGateway(predictor.Config{
		BaseURL:      s.cfg.PredictorURL,
		Timeout:      s.cfg.PredictorTimeout,
		FeaturesPath: s.cfg.PredictorFeaturesPath,
	}, s.logger)

	s.updates = version.NewChecker(s.logger)

	wsHandler := hub.NewWSHandler(s.hub, bus, s.logger)
	s.api = api.New(s.schedule, gateway, wsHandler, s.cache, s.logBuffer, s.updates, s.logger)

	return nil
}

func (s *Server) initStore() (store.ScheduleStore, error) {
	if s.cfg.DBBackend == config.DatabaseFile {
		st, err := store.NewFileStore(s.cfg.ScheduleFilePath, s.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize file store: %w", err)
		}
		s.logger.Info().Str("path", s.cfg.ScheduleFilePath).Msg("file schedule store ready")
		return st, nil
	}

	database, err := db.Connect(s.cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		return nil, err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		s.logger.Warn().Err(err).Msg("telemetry callbacks not registered")
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	return store.NewGormStore(database, s.logger), nil
}

func (s *Server) initArchiver() (*archive.Archiver, error) {
	switch s.cfg.ArchiveBackend {
	case config.ArchiveS3:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		objStore, err := archive.NewS3Store(ctx, archive.S3Config{
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			Region:          s.cfg.S3Region,
			Bucket:          s.cfg.S3Bucket,
			Endpoint:        s.cfg.S3Endpoint,
			UsePathStyle:    s.cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize s3 archive: %w", err)
		}
		s.logger.Info().Str("bucket", s.cfg.S3Bucket).Msg("s3 snapshot archive ready")
		return archive.New(objStore, s.logger), nil
	case config.ArchiveFS:
		objStore, err := archive.NewFSStore(s.cfg.ArchiveDir)
		if err != nil {
			return nil, fmt.Errorf("initialize fs archive: %w", err)
		}
		s.logger.Info().Str("dir", s.cfg.ArchiveDir).Msg("filesystem snapshot archive ready")
		return archive.New(objStore, s.logger), nil
	default:
		return nil, nil
	}
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runHubRelay(ctx)
	}()

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	s.updates.Start(ctx)
}

// runHubRelay forwards bus events to websocket subscribers. Updates
// published locally and updates relayed from another instance over
// Redis both land here.
func (s *Server) runHubRelay(ctx context.Context) {
	updates := s.bus.Subscribe(events.EventScheduleUpdate)
	resets := s.bus.Subscribe(events.EventScheduleReset)
	chatter := s.bus.Subscribe(events.EventClientMessage)

	defer func() {
		s.bus.Unsubscribe(events.EventScheduleUpdate, updates)
		s.bus.Unsubscribe(events.EventScheduleReset, resets)
		s.bus.Unsubscribe(events.EventClientMessage, chatter)
	}()

	s.logger.Info().Msg("hub relay started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("hub relay stopped")
			return
		case payload := <-updates:
			s.hub.Broadcast(hub.Envelope{Message: "schedule_update", Data: payload["blocks"]})
		case payload := <-resets:
			s.hub.Broadcast(hub.Envelope{Message: "schedule_reset", Data: payload["blocks"]})
		case payload := <-chatter:
			s.hub.Broadcast(hub.Envelope{Message: "client_message", Data: payload})
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the metrics listener.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// LogBuffer returns the server's log buffer for attaching to zerolog.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// Schedule exposes the schedule service for CLI commands.
func (s *Server) Schedule() *schedule.Service {
	return s.schedule
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
