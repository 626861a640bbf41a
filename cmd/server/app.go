// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/churnwatch/internal/api"
	"github.com/tomtom215/churnwatch/internal/audit"
	"github.com/tomtom215/churnwatch/internal/auth"
	"github.com/tomtom215/churnwatch/internal/authz"
	"github.com/tomtom215/churnwatch/internal/cache"
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/database"
	"github.com/tomtom215/churnwatch/internal/events"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/metrics"
	"github.com/tomtom215/churnwatch/internal/policy"
	"github.com/tomtom215/churnwatch/internal/predict"
	"github.com/tomtom215/churnwatch/internal/retention"
	"github.com/tomtom215/churnwatch/internal/scoring"
	"github.com/tomtom215/churnwatch/internal/supervisor"
	"github.com/tomtom215/churnwatch/internal/supervisor/services"
	ws "github.com/tomtom215/churnwatch/internal/websocket"
)

// retentionCacheTTL bounds how long retention answers are reused. Entries
// are also keyed by data version, so a rebuild invalidates them at once.
const retentionCacheTTL = 5 * time.Minute

// app holds every component built at startup.
type app struct {
	cfg       *config.Config
	predictor *predict.Predictor
	db        *database.DB
	retention *retention.Service
	cache     *cache.Cache
	audit     *audit.BadgerStore
	auditLog  *audit.Logger
	bus       *events.Bus
	forwarder *events.Forwarder
	hub       *ws.Hub
	handler   http.Handler
	server    *http.Server
}

// newApp builds the component graph. Only configuration and security errors
// are fatal: a missing model or missing retention data leaves the service
// running with the affected endpoints reporting unavailability.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, hub: ws.NewHub()}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg
	schema, mode, err := loadSchema(cfg)
	if err != nil {
		return err
	}
	modelPath, model := loadModel(cfg, schema)

	var observers []predict.Observer
	if cfg.Audit.Enabled {
		a.audit, err = audit.Open(&cfg.Audit)
		if err != nil {
			return fmt.Errorf("failed to open prediction log: %w", err)
		}
		a.auditLog = audit.NewLogger(a.audit, audit.DefaultBufferSize)
		observers = append(observers, a.auditLog)
		logging.Info().Str("path", cfg.Audit.Path).Bool("in_memory", cfg.Audit.InMemory).Msg("Prediction log enabled")
	}

	if cfg.Events.Enabled {
		a.bus, err = events.NewBus(&cfg.Events)
		if err != nil {
			return fmt.Errorf("failed to start event bus: %w", err)
		}
		minTier, err := policy.ParseTier(cfg.Events.MinTier)
		if err != nil {
			return fmt.Errorf("events.min_tier: %w", err)
		}
		observers = append(observers, events.NewNotifier(a.bus, minTier))
		a.forwarder = events.NewForwarder(a.bus, a.hub)
		logging.Info().
			Str("transport", a.bus.Transport()).
			Str("topic", a.bus.Topic()).
			Str("min_tier", string(minTier)).
			Msg("High-risk events enabled")
	}

	a.predictor, err = predict.New(predict.Options{
		Schema:     schema,
		Model:      model,
		Thresholds: cfg.RetentionPolicy.Thresholds(),
		ModelPath:  modelPath,
		Mode:       mode,
		Observers:  observers,
	})
	if err != nil {
		return err
	}

	if err := a.openRetention(ctx); err != nil {
		return err
	}

	a.handler, err = a.buildRouter()
	if err != nil {
		return err
	}
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

func loadSchema(cfg *config.Config) (*scoring.Schema, scoring.Mode, error) {
	names, ok, err := scoring.LoadFeatureNames(cfg.Model.FeaturesPath)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		logging.Warn().
			Str("path", cfg.Model.FeaturesPath).
			Strs("features", names).
			Msg("Feature list not found, using default features")
	}
	schema, err := scoring.NewSchema(names)
	if err != nil {
		return nil, "", err
	}
	mode, err := scoring.ParseMode(cfg.Model.ValidationMode)
	if err != nil {
		return nil, "", err
	}
	return schema, mode, nil
}

// loadModel never fails: without a model the service still starts and
// /predict answers 503.
func loadModel(cfg *config.Config, schema *scoring.Schema) (string, *scoring.Model) {
	path := scoring.ResolveModelPath(cfg.Model.Path, cfg.Model.FallbackPath)
	model, err := scoring.LoadModel(path, schema, scoring.LoadOptions{
		RemoteURL:       cfg.Model.RemoteURL,
		RemoteTimeout:   cfg.Model.RemoteTimeout,
		RemoteRateLimit: cfg.Model.RemoteRateLimit,
		RemoteBurst:     cfg.Model.RemoteBurst,
	})
	if err != nil {
		logging.Error().Err(err).Str("path", path).Msg("Failed to load model, predictions disabled")
		metrics.SetModelLoaded("none", path, false)
		return path, nil
	}

	info := model.Info()
	metrics.SetModelLoaded(string(model.Kind()), path, true)
	logging.Info().
		Str("path", path).
		Str("name", info.Name).
		Str("version", info.Version).
		Str("algorithm", info.Algorithm).
		Str("kind", string(model.Kind())).
		Msg("Model loaded")
	return path, model
}

func (a *app) openRetention(ctx context.Context) error {
	db, err := database.New(&a.cfg.Data)
	if err != nil {
		return fmt.Errorf("failed to open analytics store: %w", err)
	}
	a.db = db

	if err := db.Load(ctx); err != nil {
		// Retention endpoints report "not available" until the next rebuild.
		logging.Warn().Err(err).Str("dir", a.cfg.Data.Dir).Msg("Failed to load retention data")
	} else {
		logging.Info().Str("mode", string(db.Mode())).Str("dir", a.cfg.Data.Dir).Msg("Retention data loaded")
	}

	evaluator, err := policy.NewEvaluator(a.cfg.RetentionPolicy.Thresholds())
	if err != nil {
		return err
	}
	a.cache = cache.New(retentionCacheTTL)
	a.retention = retention.NewService(db, evaluator, retention.OptionsFromConfig(a.cfg), a.cache)
	return nil
}

func (a *app) buildRouter() (http.Handler, error) {
	sec := &a.cfg.Security

	var jwtManager *auth.JWTManager
	if sec.AuthMode == auth.ModeJWT {
		var err error
		jwtManager, err = auth.NewJWTManager(sec)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT manager: %w", err)
		}
		logging.Info().Dur("session_timeout", jwtManager.Timeout()).Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("Authentication is disabled (auth_mode=none): /api/v1 runs with the default role")
	}

	authn, err := auth.NewMiddleware(sec, jwtManager)
	if err != nil {
		return nil, err
	}
	enforcer, err := authz.NewEnforcer(sec.PolicyPath, sec.DefaultRole)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy: %w", err)
	}
	logging.Info().Str("source", enforcer.Source()).Str("default_role", enforcer.DefaultRole()).Msg("Authorization policy loaded")

	if sec.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is disabled")
	}
	if a.cfg.ShouldWarnAboutCORS() {
		logging.Warn().Strs("cors_origins", sec.CORSOrigins).Msg("Wildcard CORS origin combined with authentication")
	}

	deps := api.Dependencies{
		Config:    a.cfg,
		Predictor: a.predictor,
		Retention: a.retention,
		Hub:       a.hub,
	}
	// Keep the interface nil when the log is disabled.
	if a.audit != nil {
		deps.Predictions = a.audit
	}
	handler := api.NewHandler(deps)
	return api.NewRouter(handler, authn, authz.NewMiddleware(enforcer)).Setup(), nil
}

// register adds the long-running components to the supervisor tree.
func (a *app) register(tree *supervisor.SupervisorTree) {
	if a.cache != nil {
		tree.AddDataService(a.cache)
	}
	if a.audit != nil {
		tree.AddDataService(a.audit)
	}
	tree.AddMessagingService(a.hub)
	if a.forwarder != nil {
		tree.AddMessagingService(a.forwarder)
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.server.Addr, tree.Config().ShutdownTimeout))
}

// close releases resources in reverse dependency order. The audit logger is
// flushed before its store closes.
func (a *app) close() {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.auditLog != nil {
		errs = append(errs, a.auditLog.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logging.Error().Err(err).Msg("Error during shutdown")
	}
}
