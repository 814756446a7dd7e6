package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix   = "THREADCAST_"
	DefaultPath = "config.yaml"

	DefaultMinDelayMs = 1000
	DefaultMaxDelayMs = 5000
)

type Config struct {
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	X       XConfig       `koanf:"x"`
	Bluesky BlueskyConfig `koanf:"bluesky"`
	Thread  ThreadConfig  `koanf:"thread"`
	Content ContentConfig `koanf:"content"`
	Feed    FeedConfig    `koanf:"feed"`
	Queue   QueueConfig   `koanf:"queue"`
	Redis   RedisConfig   `koanf:"redis"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
}

type XConfig struct {
	APIKey   string `koanf:"api_key"`
	Endpoint string `koanf:"endpoint"`
}

type BlueskyConfig struct {
	Host      string `koanf:"host"`
	Handle    string `koanf:"handle"`
	Password  string `koanf:"password"`
	Repo      string `koanf:"repo"`
	ReplyMode string `koanf:"reply_mode"`
}

type ThreadConfig struct {
	MinDelayMs      int    `koanf:"min_delay_ms"`
	MaxDelayMs      int    `koanf:"max_delay_ms"`
	DefaultPlatform string `koanf:"default_platform"`
}

type ContentConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

type FeedConfig struct {
	URLs     []string      `koanf:"urls"`
	Interval time.Duration `koanf:"interval"`
	Platform string        `koanf:"platform"`
}

type QueueConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
}

// Load reads .env (if present), then the YAML file named by
// THREADCAST_CONFIG or config.yaml, then THREADCAST_* environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv(EnvPrefix + "CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile is Load without the .env step. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// THREADCAST_BLUESKY__REPLY_MODE -> bluesky.reply_mode
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	// 0/0 is a valid range, so the delay defaults only fill absent keys.
	if !k.Exists("thread.min_delay_ms") && !k.Exists("thread.max_delay_ms") {
		if err := k.Set("thread.min_delay_ms", DefaultMinDelayMs); err != nil {
			return nil, err
		}
		if err := k.Set("thread.max_delay_ms", DefaultMaxDelayMs); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Bluesky.Host == "" {
		c.Bluesky.Host = "https://bsky.social"
	}
	if c.Bluesky.ReplyMode == "" {
		c.Bluesky.ReplyMode = "disabled"
	}
	if c.Thread.DefaultPlatform == "" {
		c.Thread.DefaultPlatform = "x"
	}
	if c.Content.URL == "" {
		c.Content.URL = "http://localhost:5500/api/chat/"
	}
	if c.Feed.Interval == 0 {
		c.Feed.Interval = time.Hour
	}
	if c.Feed.Platform == "" {
		c.Feed.Platform = c.Thread.DefaultPlatform
	}
	if c.Queue.Topic == "" {
		c.Queue.Topic = "threadcast.jobs"
	}
	if c.Queue.GroupID == "" {
		c.Queue.GroupID = "threadcast-poster"
	}
}

func (c *Config) Validate() error {
	if c.Thread.MinDelayMs < 0 || c.Thread.MaxDelayMs < 0 {
		return fmt.Errorf("thread delays must not be negative")
	}
	if c.Thread.MinDelayMs > c.Thread.MaxDelayMs {
		return fmt.Errorf("thread.min_delay_ms (%d) exceeds thread.max_delay_ms (%d)", c.Thread.MinDelayMs, c.Thread.MaxDelayMs)
	}
	switch c.Bluesky.ReplyMode {
	case "disabled", "collapsed":
	default:
		return fmt.Errorf("bluesky.reply_mode must be disabled or collapsed, got %q", c.Bluesky.ReplyMode)
	}
	if c.Feed.Interval < 0 {
		return fmt.Errorf("feed.interval must not be negative")
	}
	return nil
}
