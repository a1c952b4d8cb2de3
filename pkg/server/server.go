// Package server provides the public entry point for initializing the
// MediGuard analysis plane server.
//
// This package exists in pkg/ (not internal/) so that hosting shells can
// import it and compose the full server with their own middleware.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/analyzer"
	"github.com/mediguard/driftai/internal/api"
	"github.com/mediguard/driftai/internal/api/handlers"
	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/internal/config"
	"github.com/mediguard/driftai/internal/pipeline"
	"github.com/mediguard/driftai/internal/search"
	"github.com/mediguard/driftai/internal/store"
	"github.com/mediguard/driftai/internal/telemetry"
)

// Server holds the initialized MediGuard analysis plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store (in-memory unless a database URL is set).
	Store store.Store

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the analysis plane with an explicit
// configuration. Nothing reads the environment past this point.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var dataStore store.Store
	if cfg.Database.URL != "" {
		dataStore, err = store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	} else {
		dataStore = store.NewMemoryStore()
		log.Info().Msg("✅ In-memory store initialized")
	}

	svc := completion.NewClient(completion.Options{
		APIKey:      cfg.Completion.APIKey,
		BaseURL:     cfg.Completion.BaseURL,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout,
	})

	orch := pipeline.New(svc, dataStore)
	anlz := analyzer.New(dataStore, orch, svc)
	srch := search.New(svc)
	log.Info().Msg("✅ Analysis pipeline initialized")

	h := handlers.New(dataStore, anlz, orch, srch)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
