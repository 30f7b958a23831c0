package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

const defaultPath = "cmd/bot/etc/app.yml"

type Config struct {
	APIBaseURL     string        `yaml:"api_base_url" validate:"required,url"`
	APITimeout     time.Duration `yaml:"api_timeout"`
	SessionBackend string        `yaml:"session_backend" validate:"required,oneof=memory postgres redis"`
	PostgreAddr    string        `yaml:"postgre_addr" validate:"required_if=SessionBackend postgres"`
	RedisAddr      string        `yaml:"redis_addr" validate:"required_if=SessionBackend redis"`
	RedisDB        int           `yaml:"redis_db" validate:"min=0"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	HTTPPort       int           `yaml:"http_port" validate:"required,min=1,max=65535"`
	WorkerCount    int           `yaml:"worker_count" validate:"required,min=1"`
	LogLevel       string        `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	RedirectDelay  time.Duration `yaml:"redirect_delay"`
	SendRate       float64       `yaml:"send_rate" validate:"min=0"`

	BotToken      string `yaml:"-" validate:"required"`
	ChannelID     string `yaml:"-"`
	RedisPassword string `yaml:"-"`
}

// LoadConfig reads the YAML file named by APP_CONFIG (default
// cmd/bot/etc/app.yml) and overlays secrets from the environment and .env.
func LoadConfig() (*Config, error) {
	path := os.Getenv("APP_CONFIG")
	if path == "" {
		path = filepath.Clean(defaultPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New("failed to read config file").Arg("path", path).Wrap(err)
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New("failed to load .env").Wrap(err)
	}

	return Parse(data, os.Getenv)
}

// Parse decodes YAML, applies secrets from getenv, fills defaults and
// validates.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.New("failed to unmarshal YAML").Wrap(err)
	}

	cfg.BotToken = getenv("TG_TOKEN")
	cfg.ChannelID = getenv("TG_CHANNEL_ID")
	cfg.RedisPassword = getenv("REDIS_PASSWORD")
	if dsn := getenv("POSTGRES_DSN"); dsn != "" {
		cfg.PostgreAddr = dsn
	}
	if u := getenv("API_BASE_URL"); u != "" {
		cfg.APIBaseURL = u
	}

	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 15 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = 2 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SendRate == 0 {
		cfg.SendRate = 20
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errs.New("config validation failed").Wrap(err)
	}

	return &cfg, nil
}
