package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/online-session-kit/internal/adapters/render/roster"
	tomlrepo "github.com/bnema/online-session-kit/internal/adapters/repo/toml"
	"github.com/bnema/online-session-kit/internal/adapters/secrets/file"
	"github.com/bnema/online-session-kit/internal/config"
)

type app struct {
	cfg      config.Config
	worlds   *tomlrepo.WorldStore
	secrets  *file.Store
	renderer func(roster.View) (string, error)
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v, err := config.New(homeDir)
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	worlds, err := tomlrepo.NewWorldStore(cfg.Sandbox.WorldPath)
	if err != nil {
		return nil, fmt.Errorf("wire world store: %w", err)
	}

	return &app{
		cfg:      cfg,
		worlds:   worlds,
		secrets:  file.NewStore(cfg.Token.Dir),
		renderer: roster.Render,
	}, nil
}
