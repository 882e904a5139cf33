package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/donovanmchenry/Chatify/internal/formatter"
	"github.com/donovanmchenry/Chatify/internal/repositories"
	"github.com/donovanmchenry/Chatify/internal/shared"
	"github.com/donovanmchenry/Chatify/internal/ui"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// openDatabase opens the configured SQLite database and brings its schema up to date.
func openDatabase(cfg shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if cfg.Path != ":memory:" {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// SessionsList prints stored sessions as a table, CSV or JSON.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	switch format {
	case formatTable, formatCSV, formatJSON:
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repositories.NewSessionRepository(db, config.Server.SessionTTL).List(ctx)
	if err != nil {
		return err
	}
	now := time.Now()

	switch format {
	case formatCSV:
		data, err := formatter.SessionsToCSV(records)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case formatJSON:
		data, err := formatter.SessionsToJSON(records, now)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	default:
		if len(records) == 0 {
			return r.writePlain("%s\n", ui.Styles.Help("No sessions stored."))
		}
		return r.writePlain("%s\n", ui.SessionsTable(records, now))
	}
}

// SessionsPrune deletes expired sessions.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repositories.NewSessionRepository(db, config.Server.SessionTTL).Prune(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("pruned expired sessions", "count", n)
	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("✓ Pruned %d expired session(s)", n)))
}
