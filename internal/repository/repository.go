// Package repository содержит реализацию доступа к данным поверх gorm (SQLite или PostgreSQL).
package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

var (
	// ErrUserExists возвращается при попытке занять уже существующее имя пользователя.
	ErrUserExists = errors.New("user already exists")
	// ErrNotFound возвращается, если запись с указанным идентификатором отсутствует.
	ErrNotFound = errors.New("record not found")
	// ErrCustomerNotEnded возвращается при попытке удалить клиента, отношения с которым не завершены.
	ErrCustomerNotEnded = errors.New("customer is not ended")
	// ErrSnapshotUnsupported возвращается, если хранилище не является файлом SQLite.
	ErrSnapshotUnsupported = errors.New("snapshots are supported only for the sqlite store")
	// ErrInvalidSnapshot возвращается, если загруженный файл не удалось открыть как базу SQLite.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Driver определяет тип используемой СУБД.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Repository предоставляет доступ к хранилищу сущностей.
// Мьютекс защищает только подмену соединения при восстановлении из снимка.
type Repository struct {
	mu     sync.RWMutex
	db     *gorm.DB
	driver Driver
	path   string
}

// NewSQLiteRepository открывает файл базы SQLite и применяет миграции.
func NewSQLiteRepository(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	return &Repository{db: db, driver: DriverSQLite, path: path}, nil
}

// NewPostgresRepository создаёт репозиторий поверх PostgreSQL и инициализирует схему через миграции.
func NewPostgresRepository(dsn string) (*Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(ctx, sqlDB, "postgres", "migrations/postgres"); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Repository{db: db, driver: DriverPostgres}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func openSQLite(ctx context.Context, path string) (*gorm.DB, error) {
	dsn := path + "?_busy_timeout=5000&_foreign_keys=on"

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}
	// SQLite допускает только одного писателя.
	sqlDB.SetMaxOpenConns(1)

	if err := runMigrations(ctx, sqlDB, "sqlite3", "migrations/sqlite"); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Driver возвращает тип используемой СУБД.
func (r *Repository) Driver() Driver {
	return r.driver
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db.WithContext(ctx)
}

// transaction выполняет fn в транзакции, повторяя её при временных ошибках PostgreSQL.
func (r *Repository) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.withRetry(ctx, func() error {
		return r.conn(ctx).Transaction(fn)
	})
}

func (r *Repository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Close закрывает соединение с БД.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return closeDB(r.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db.DB(): %w", err)
	}
	return sqlDB.Close()
}
