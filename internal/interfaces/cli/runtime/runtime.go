// Package runtime holds the bootstrap shared by all CLI commands: config
// loading, logger initialization, and API client construction.
package runtime

import (
	"fmt"
	"os"
	"time"

	"github.com/lancache-tools/lancachectl/internal/application/sessions"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/api"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/config"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// Env bundles everything a command needs to run.
type Env struct {
	Config *config.Config
	Log    logger.Interface
	Client *api.Client
}

// Setup loads configuration, initializes logging, and builds the API
// client. Commands call it first in their RunE.
func Setup() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Server.Token == "" {
		return nil, fmt.Errorf("no admin token configured; set LANCACHECTL_SERVER_TOKEN or server.token in the config file")
	}

	client := api.NewClient(cfg.Server.URL, cfg.Server.Token,
		api.WithTimeout(time.Duration(cfg.Server.TimeoutSeconds)*time.Second))

	return &Env{
		Config: cfg,
		Log:    logger.NewLogger(),
		Client: client,
	}, nil
}

// ConsoleNotifier prints toast messages to the terminal, errors to stderr
// and everything else to stdout.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Notify(kind sessions.NotifyKind, message string) {
	switch kind {
	case sessions.NotifyError:
		fmt.Fprintf(os.Stderr, "error: %s\n", message)
	case sessions.NotifyWarning:
		fmt.Printf("warning: %s\n", message)
	default:
		fmt.Println(message)
	}
}
