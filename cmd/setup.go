package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/donovanmchenry/Chatify/internal/shared"
	"github.com/donovanmchenry/Chatify/internal/ui"
)

// SetupConfig writes the example configuration to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return fmt.Errorf("%w: --config", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("%s\n", ui.Styles.OK("✓ Wrote "+path))
	r.writePlain("%s\n", ui.Styles.Help("Set your Spotify client credentials, a completion API key and a session_secret of at least 32 bytes."))
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := openDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("%s\n", ui.Styles.OK("✓ Database ready at "+config.Database.Path))
	return nil
}
