// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `yaml:"address"`

	// DatabaseDSN selects the Postgres credential store when non-empty.
	// The JSON users file is used otherwise.
	DatabaseDSN string `yaml:"database_dsn"`

	// Config is the path to the Config file.
	Config string `yaml:"-"`

	UsersFile    string `yaml:"users_file"`
	TasksFile    string `yaml:"tasks_file"`
	StatusesFile string `yaml:"statuses_file"`
	// FilesDir holds task attachments as <taskId>.bin.
	FilesDir string `yaml:"files_dir"`

	// JWTKey signs session tokens.
	JWTKey string `yaml:"jwt_key"`
	// TokenTTL is the validity window of a session token.
	TokenTTL time.Duration `yaml:"token_ttl"`

	LogLevel string `yaml:"log_level"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	// UploadRetention is how long a staged upload may linger before the
	// cleaner removes it; CleanupInterval is how often the cleaner runs.
	UploadRetention time.Duration `yaml:"upload_retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "postgres dsn for the user store (empty: users file)")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.UsersFile, "users", "users.json", "users file")
	flag.StringVar(&options.TasksFile, "tasks", "tasks.json", "tasks file")
	flag.StringVar(&options.StatusesFile, "statuses", "taskStatuses.json", "task status labels file")
	flag.StringVar(&options.FilesDir, "files", "Task files", "attachments directory")
	flag.StringVar(&options.JWTKey, "k", "dev-secret-change-in-production", "token signing key")
	flag.DurationVar(&options.TokenTTL, "ttl", 300*time.Second, "session token lifetime")
	flag.StringVar(&options.LogLevel, "l", "info", "log level")
	flag.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	flag.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	flag.DurationVar(&options.UploadRetention, "upload-retention", time.Hour, "max age of staged uploads")
	flag.DurationVar(&options.CleanupInterval, "cleanup-interval", 10*time.Minute, "staged upload cleanup interval")
}

// Parse loads a .env file if present, parses the command-line flags, then
// applies the config file and environment variables on top. It returns a
// pointer to the Options struct containing the parsed configuration values.
func Parse() *Options {
	_ = godotenv.Load()

	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if err := applyFile(options, options.Config); err != nil {
		log.Fatalf("error while loading config file: %v", err)
	}

	if err := applyEnv(options); err != nil {
		log.Fatalf("error while reading environment: %v", err)
	}

	return options
}

// applyFile decodes the config file at path into opts. A missing file is not
// an error. YAML is a superset of JSON so both formats are accepted.
func applyFile(opts *Options, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(opts *Options) error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &opts.Port,
		"DATABASE_DSN":   &opts.DatabaseDSN,
		"USERS_FILE":     &opts.UsersFile,
		"TASKS_FILE":     &opts.TasksFile,
		"STATUSES_FILE":  &opts.StatusesFile,
		"FILES_DIR":      &opts.FilesDir,
		"JWT_KEY":        &opts.JWTKey,
		"LOG_LEVEL":      &opts.LogLevel,
		"TLS_CERT":       &opts.TLSCert,
		"TLS_KEY":        &opts.TLSKey,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL":        &opts.TokenTTL,
		"UPLOAD_RETENTION": &opts.UploadRetention,
		"CLEANUP_INTERVAL": &opts.CleanupInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	return nil
}
