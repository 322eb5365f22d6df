package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/steveyegge/taxon/internal/storage"
)

const (
	configName = ".taxon"
	envPrefix  = "TAXON"
)

// AppConfig is the CLI configuration, merged from flags, TAXON_* variables
// and .taxon.yaml
type AppConfig struct {
	Backend  string `mapstructure:"backend" validate:"required,oneof=sqlite memory"`
	DB       string `mapstructure:"db" validate:"required_if=Backend sqlite"`
	Actor    string `mapstructure:"actor" validate:"max=100"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error disabled"`
	// LogJSON switches the logger from the console writer to JSON lines
	LogJSON bool `mapstructure:"log_json"`
}

var (
	cfgFile   string
	appConfig AppConfig
	validate  = validator.New(validator.WithRequiredStructEnabled())
)

// loadConfig reads the config file and environment into appConfig
func loadConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("backend", storage.BackendSQLite)
	viper.SetDefault("db", storage.DefaultConfig().Path)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_json", false)
	viper.SetDefault("actor", defaultActor())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := viper.Unmarshal(&appConfig); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if appConfig.DB == ":memory:" {
		appConfig.Backend = storage.BackendMemory
	}
	if err := validate.Struct(&appConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// newLogger builds the process logger from the loaded config
func newLogger(cfg AppConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}

	var logger zerolog.Logger
	if cfg.LogJSON {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func defaultActor() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "admin"
}
