package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Snapshot сохраняет согласованную копию файла SQLite по пути dest.
func (r *Repository) Snapshot(ctx context.Context, dest string) error {
	if r.driver != DriverSQLite {
		return ErrSnapshotUnsupported
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("snapshot %s already exists", dest)
	}

	if err := r.conn(ctx).Exec("VACUUM INTO ?", dest).Error; err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

// Restore целиком заменяет файл хранилища содержимым src.
// Загруженный файл сначала открывается и мигрируется отдельно, затем атомарно
// переименовывается поверх рабочего файла. Параллельные записи во время замены теряются.
func (r *Repository) Restore(ctx context.Context, src io.Reader) error {
	if r.driver != DriverSQLite {
		return ErrSnapshotUnsupported
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".restore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	candidate, err := openSQLite(ctx, tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := closeDB(candidate); err != nil {
		return fmt.Errorf("close snapshot db: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := closeDB(r.db); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	renameErr := os.Rename(tmpPath, r.path)

	db, err := openSQLite(ctx, r.path)
	if err != nil {
		return fmt.Errorf("reopen store: %w", err)
	}
	r.db = db

	if renameErr != nil {
		return fmt.Errorf("replace store: %w", renameErr)
	}
	return nil
}
