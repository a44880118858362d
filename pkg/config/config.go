package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
)

const envPrefix = "FLASHDECK_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Study    StudyConfig    `koanf:"study"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=postgres sqlite"`
	Host     string `koanf:"host"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	Port     int    `koanf:"port"`
	SSLMode  string `koanf:"sslmode"`
	Path     string `koanf:"path"` // sqlite only
}

type LoggingConfig struct {
	Level     string `koanf:"level"`
	File      string `koanf:"file"`
	GormLevel string `koanf:"gorm_level"`
}

// StudyConfig carries the scheduler and progress tunables. The defaults are
// standard SM-2 constants; none of them is hard-wired anywhere else.
type StudyConfig struct {
	InitialEase         float64 `koanf:"initial_ease" validate:"gtefield=EaseFloor"`
	EaseFloor           float64 `koanf:"ease_floor" validate:"gt=1"`
	AgainPenalty        float64 `koanf:"again_penalty" validate:"gte=0"`
	HardPenalty         float64 `koanf:"hard_penalty" validate:"gte=0"`
	EasyBonus           float64 `koanf:"easy_bonus" validate:"gte=0"`
	FirstIntervalDays   int     `koanf:"first_interval_days" validate:"gte=1"`
	SecondIntervalDays  int     `koanf:"second_interval_days" validate:"gte=1"`
	RelearnIntervalDays int     `koanf:"relearn_interval_days" validate:"gte=1"`
	MasteryThreshold    int     `koanf:"mastery_threshold" validate:"gte=1"`
	SessionLimit        int     `koanf:"session_limit" validate:"gte=0"` // 0 = no limit
	SessionTimeoutMin   int     `koanf:"session_timeout_minutes" validate:"gte=1"`
}

var AppConfig Config

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "flashdeck.db",
			Port:    5432,
			SSLMode: "disable",
		},
		Logging: LoggingConfig{
			Level:     "info",
			GormLevel: "warn",
		},
		Study: StudyConfig{
			InitialEase:         2.5,
			EaseFloor:           1.3,
			AgainPenalty:        0.20,
			HardPenalty:         0.15,
			EasyBonus:           0.15,
			FirstIntervalDays:   1,
			SecondIntervalDays:  6,
			RelearnIntervalDays: 1,
			MasteryThreshold:    2,
			SessionLimit:        0,
			SessionTimeoutMin:   60,
		},
	}
}

// Load merges the YAML file (if any), FLASHDECK_* environment variables and
// command-line flags over the defaults, in that order. Environment keys use
// a double underscore as the section separator: FLASHDECK_DATABASE__DRIVER.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, fmt.Errorf("load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	AppConfig = cfg
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envKey(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}
