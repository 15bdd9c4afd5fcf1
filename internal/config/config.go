package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the duel server
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Content  ContentConfig  `mapstructure:"content"`
	Match    MatchConfig    `mapstructure:"match"`
}

// ServerConfig groups the listeners.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
}

type WebSocketConfig struct {
	Address   string `mapstructure:"address"`
	ReadLimit int64  `mapstructure:"read_limit"`
}

type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the optional results store. An empty URL disables it.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ContentConfig points at card and deck files. Empty paths select the built-in content.
type ContentConfig struct {
	CardsFile string `mapstructure:"cards_file"`
	DecksFile string `mapstructure:"decks_file"`
}

type MatchConfig struct {
	GameType     string `mapstructure:"game_type"`
	HandSize     int    `mapstructure:"hand_size"`
	StartingMana int    `mapstructure:"starting_mana"`
	MaxMana      int    `mapstructure:"max_mana"`
	MaxTurns     int    `mapstructure:"max_turns"`
	ReplayDir    string `mapstructure:"replay_dir"` // empty disables replay archiving
}

// Load reads the configuration file at path, falling back to defaults when it
// does not exist. DUEL_* environment variables override file values, e.g.
// DUEL_DATABASE_URL or DUEL_SERVER_WEBSOCKET_ADDRESS.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		switch _, err := os.Stat(path); {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.read_limit", 1<<16)
	v.SetDefault("server.grpc.address", ":50051")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Registered so DUEL_DATABASE_URL reaches Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("content.cards_file", "")
	v.SetDefault("content.decks_file", "")

	v.SetDefault("match.game_type", "KILL_HERO")
	v.SetDefault("match.hand_size", 5)
	v.SetDefault("match.starting_mana", 2)
	v.SetDefault("match.max_mana", 9)
	v.SetDefault("match.max_turns", 40)
	v.SetDefault("match.replay_dir", "")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Match.GameType {
	case "KILL_HERO", "TURN_LIMIT":
	default:
		return fmt.Errorf("match.game_type: unknown game type %q", c.Match.GameType)
	}
	if c.Match.HandSize <= 0 {
		return fmt.Errorf("match.hand_size must be positive, got %d", c.Match.HandSize)
	}
	if c.Match.StartingMana < 0 || c.Match.MaxMana < c.Match.StartingMana {
		return fmt.Errorf("match mana: starting %d must be within [0, max %d]", c.Match.StartingMana, c.Match.MaxMana)
	}
	if c.Match.MaxTurns <= 0 {
		return fmt.Errorf("match.max_turns must be positive, got %d", c.Match.MaxTurns)
	}
	if (c.Content.CardsFile == "") != (c.Content.DecksFile == "") {
		return errors.New("content: cards_file and decks_file must be set together")
	}
	if c.Server.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("server.websocket.read_limit must be positive, got %d", c.Server.WebSocket.ReadLimit)
	}
	return nil
}
