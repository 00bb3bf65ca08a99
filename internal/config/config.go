// Package config содержит логику чтения конфигурации сервиса учёта платежей.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress   = ":5050"
	defaultDatabasePath = "instance/customers.db"
	defaultBackupDir    = "backups"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	Port          string `env:"PORT"`
	DatabasePath  string `env:"DATABASE_PATH"`
	DatabaseURI   string `env:"DATABASE_URI"`
	BackupDir     string `env:"BACKUP_DIR"`
	SessionSecret string `env:"SESSION_SECRET"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	AdminUsername string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string        `env:"ADMIN_PASSWORD" envDefault:"admin123"`
	BackupAuto    bool          `env:"BACKUP_AUTO" envDefault:"false"`
}

// LoadDotEnv подгружает переменные окружения из файла, если он существует.
// Уже заданные переменные не перезаписываются.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabasePath := cfg.DatabasePath
	envDatabaseURI := cfg.DatabaseURI
	envBackupDir := cfg.BackupDir
	envSessionSecret := cfg.SessionSecret

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabasePath, "f", defaultDatabasePath, "sqlite database file")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "postgres database URI")
	flag.StringVar(&cfg.BackupDir, "b", defaultBackupDir, "default backup directory")
	flag.StringVar(&cfg.SessionSecret, "s", "", "session signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabasePath != "" {
		cfg.DatabasePath = envDatabasePath
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envBackupDir != "" {
		cfg.BackupDir = envBackupDir
	}
	if envSessionSecret != "" {
		cfg.SessionSecret = envSessionSecret
	}

	if cfg.Port != "" {
		cfg.RunAddress = ":" + cfg.Port
	}
	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", cfg.SessionTTL)
	}

	return cfg, nil
}
