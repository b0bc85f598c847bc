// Package app wires the configured database, engine and collaborators for
// the CLI and the HTTP server.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"contentplanner/internal/config"
	"contentplanner/internal/db"
	"contentplanner/internal/diagnostic"
	"contentplanner/internal/engine"
	"contentplanner/internal/logging"
	"contentplanner/internal/migrate"
	"contentplanner/internal/planner"
	"contentplanner/internal/repo"
	"contentplanner/internal/suggest"
)

// Runtime holds everything a command needs. Close releases the database.
type Runtime struct {
	Workspace   string
	Config      *config.Config
	DB          *sql.DB
	Engine      engine.Engine
	Logger      *slog.Logger
	Suggester   planner.Suggester
	Diagnostics *diagnostic.Service
}

// Open loads the workspace config (defaults when planner.yml is absent),
// opens the database, applies migrations and builds the engine.
func Open(ctx context.Context, workspace string) (*Runtime, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	return OpenWithConfig(ctx, workspace, cfg)
}

func OpenWithConfig(ctx context.Context, workspace string, cfg *config.Config) (*Runtime, error) {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	dbCfg := DBConfig(workspace, cfg)
	conn, err := db.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MigrateDialect(conn, db.Dialect(dbCfg)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	suggester, err := NewSuggester(cfg.Suggestions)
	if err != nil {
		conn.Close()
		return nil, err
	}
	e := engine.New(conn)
	logger.DebugContext(ctx, "runtime ready", "driver", dbCfg.Driver, "suggestions", cfg.Suggestions.Provider)
	return &Runtime{
		Workspace:   workspace,
		Config:      cfg,
		DB:          conn,
		Engine:      e,
		Logger:      logger,
		Suggester:   suggester,
		Diagnostics: diagnostic.NewService(repo.DiagnosticStore{Repo: e.Repo}),
	}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Planner returns a planner over the engine acting as actorID, with the
// configured suggestion source.
func (r *Runtime) Planner(actorID string, opts ...planner.Option) *planner.Planner {
	base := []planner.Option{
		planner.WithSuggester(r.Suggester),
		planner.WithLogger(r.Logger),
	}
	return planner.New(engine.ItemStore{Engine: r.Engine, ActorID: actorID}, append(base, opts...)...)
}

// DBConfig maps the database section onto db.Config.
func DBConfig(workspace string, cfg *config.Config) db.Config {
	return db.Config{
		Workspace: workspace,
		Driver:    cfg.Database.Driver,
		URL:       cfg.Database.URL,
		AuthToken: cfg.Database.AuthToken,
	}
}

// NewSuggester picks the suggestion source named by the config.
func NewSuggester(cfg config.Suggestions) (planner.Suggester, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "static":
		return suggest.NewStatic(), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("suggestions provider openai needs %s", config.EnvOpenAIKey)
		}
		return suggest.NewOpenAI(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown suggestions provider %q", cfg.Provider)
	}
}
