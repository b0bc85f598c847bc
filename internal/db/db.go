package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	defaultDBName = "planner.db"
	workspaceDir  = ".planner"

	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
)

type Config struct {
	Workspace string
	// Driver is "sqlite" (local file, default) or "libsql" (hosted table).
	Driver    string
	URL       string
	AuthToken string
}

func dbPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, workspaceDir, defaultDBName)
}

// EnsureWorkspace creates workspace directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := filepath.Join(workspace, workspaceDir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the configured database. Local SQLite files get WAL and foreign keys.
func Open(cfg Config) (*sql.DB, error) {
	switch driverOf(cfg) {
	case DriverLibSQL:
		return openLibSQL(cfg)
	default:
		return openSQLite(cfg)
	}
}

func openSQLite(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath(cfg.Workspace))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := enablePragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func openLibSQL(cfg Config) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("libsql driver requires database url")
	}
	dsn := cfg.URL
	if cfg.AuthToken != "" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn = fmt.Sprintf("%s%sauthToken=%s", dsn, sep, cfg.AuthToken)
	}
	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping libsql: %w", err)
	}
	return conn, nil
}

func enablePragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Dialect returns the goose dialect name for the configured driver.
func Dialect(cfg Config) string {
	if driverOf(cfg) == DriverLibSQL {
		return "turso"
	}
	return "sqlite"
}

func driverOf(cfg Config) string {
	if cfg.Driver == DriverLibSQL {
		return DriverLibSQL
	}
	return DriverSQLite
}

// Path returns the db path for the workspace.
func Path(workspace string) string {
	return dbPath(workspace)
}
