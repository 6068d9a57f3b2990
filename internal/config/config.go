// Package config loads osk settings from ~/.osk/config.toml and OSK_* environment
// variables through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configDirName = ".osk"
	configName    = "config"
	configType    = "toml"
	envPrefix     = "OSK"
)

type Config struct {
	Platform PlatformConfig `mapstructure:"platform"`
	Token    TokenConfig    `mapstructure:"token"`
	Lobby    LobbyConfig    `mapstructure:"lobby"`
	Friends  FriendsConfig  `mapstructure:"friends"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Tick     TickConfig     `mapstructure:"tick"`
	Wait     WaitConfig     `mapstructure:"wait"`
	Log      LogConfig      `mapstructure:"log"`
}

type PlatformConfig struct {
	ProductID    string `mapstructure:"product_id"`
	SandboxID    string `mapstructure:"sandbox_id"`
	DeploymentID string `mapstructure:"deployment_id"`
}

type TokenConfig struct {
	// Dir holds the persisted refresh token.
	Dir string `mapstructure:"dir"`
}

type LobbyConfig struct {
	Bucket           string `mapstructure:"bucket"`
	MaxMembers       int    `mapstructure:"max_members"`
	SearchMaxResults int    `mapstructure:"search_max_results"`
}

type FriendsConfig struct {
	MappingInterval time.Duration `mapstructure:"mapping_interval"`
}

type SandboxConfig struct {
	WorldPath string `mapstructure:"world_path"`
	// PortalAccount is the account an interactive portal login signs in as.
	PortalAccount string `mapstructure:"portal_account"`
}

type TickConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type WaitConfig struct {
	// Timeout bounds how long a CLI command pumps ticks waiting for a result.
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in settings with paths rooted at home.
func Default(home string) Config {
	base := filepath.Join(home, configDirName)
	return Config{
		Platform: PlatformConfig{
			ProductID:    "aeb8289200584683953f2cf71a6cd74b",
			SandboxID:    "p-rd4cwxh3d5gbkuduy34rfc2m4aarbu",
			DeploymentID: "17a6b26729a54ea6bf768948f03aae09",
		},
		Token: TokenConfig{Dir: filepath.Join(base, "saved", "EOS")},
		Lobby: LobbyConfig{
			Bucket:           "default",
			MaxMembers:       4,
			SearchMaxResults: 50,
		},
		Friends: FriendsConfig{MappingInterval: 60 * time.Second},
		Sandbox: SandboxConfig{WorldPath: filepath.Join(base, "world.toml")},
		Tick:    TickConfig{Interval: 16 * time.Millisecond},
		Wait:    WaitConfig{Timeout: 10 * time.Second},
		Log:     LogConfig{Level: "warn", Format: "console"},
	}
}

// SetDefaults registers Default(home) with v.
func SetDefaults(v *viper.Viper, home string) {
	defaults := Default(home)

	v.SetDefault("platform.product_id", defaults.Platform.ProductID)
	v.SetDefault("platform.sandbox_id", defaults.Platform.SandboxID)
	v.SetDefault("platform.deployment_id", defaults.Platform.DeploymentID)

	v.SetDefault("token.dir", defaults.Token.Dir)

	v.SetDefault("lobby.bucket", defaults.Lobby.Bucket)
	v.SetDefault("lobby.max_members", defaults.Lobby.MaxMembers)
	v.SetDefault("lobby.search_max_results", defaults.Lobby.SearchMaxResults)

	v.SetDefault("friends.mapping_interval", defaults.Friends.MappingInterval)

	v.SetDefault("sandbox.world_path", defaults.Sandbox.WorldPath)
	v.SetDefault("sandbox.portal_account", defaults.Sandbox.PortalAccount)

	v.SetDefault("tick.interval", defaults.Tick.Interval)
	v.SetDefault("wait.timeout", defaults.Wait.Timeout)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// New returns a viper instance reading <home>/.osk/config.toml and OSK_*
// variables, with defaults registered. The file is optional.
func New(home string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(home, configDirName))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return v, nil
}

// Load decodes v into a Config, expands ~ in paths and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		cfg.Token.Dir = expandHome(cfg.Token.Dir, home)
		cfg.Sandbox.WorldPath = expandHome(cfg.Sandbox.WorldPath, home)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return Config{}, errs
	}

	return cfg, nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}
