package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mmeshcher/paybook/internal/authz"
	"github.com/mmeshcher/paybook/internal/backup"
	"github.com/mmeshcher/paybook/internal/model"
)

// Backup создаёт снимок хранилища и возвращает путь к файлу.
func (s *Service) Backup(ctx context.Context, actor *model.User) (string, error) {
	if err := allow(actor, authz.Backup); err != nil {
		return "", err
	}
	return s.ScheduledBackup(ctx)
}

// ScheduledBackup создаёт снимок без проверки прав; используется планировщиком.
func (s *Service) ScheduledBackup(ctx context.Context) (string, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return "", err
	}

	dir := settings.BackupPath
	if dir == "" {
		dir = s.backupDir
	}

	path := filepath.Join(dir, backup.SnapshotName(s.now()))
	if err := s.repo.Snapshot(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// Restore заменяет хранилище загруженным снимком.
func (s *Service) Restore(ctx context.Context, actor *model.User, filename string, src io.Reader) error {
	if err := allow(actor, authz.Import); err != nil {
		return err
	}
	if !backup.HasSnapshotExt(filename) {
		return fmt.Errorf("%w: %s", ErrSnapshotFormat, filename)
	}
	return s.repo.Restore(ctx, src)
}

// Export возвращает содержимое всех таблиц для выгрузки.
func (s *Service) Export(ctx context.Context, actor *model.User) (*model.Dump, error) {
	if err := allow(actor, authz.Export); err != nil {
		return nil, err
	}
	return s.repo.Dump(ctx)
}

// GetSettings возвращает настройки резервного копирования.
func (s *Service) GetSettings(ctx context.Context, actor *model.User) (*model.Settings, error) {
	if err := allow(actor, authz.ManageSettings); err != nil {
		return nil, err
	}
	return s.repo.GetSettings(ctx)
}

// SaveSettings сохраняет настройки и перепланирует автоматическое копирование.
func (s *Service) SaveSettings(ctx context.Context, actor *model.User, settings model.Settings) error {
	if err := allow(actor, authz.ManageSettings); err != nil {
		return err
	}
	if settings.BackupInterval == "" {
		settings.BackupInterval = model.BackupDaily
	}
	if _, err := backup.Spec(settings.BackupInterval); err != nil {
		return err
	}

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return err
	}

	if s.scheduler != nil {
		if err := s.scheduler.Reschedule(settings.BackupInterval); err != nil {
			return fmt.Errorf("reschedule backups: %w", err)
		}
	}
	return nil
}

// StartScheduler планирует автоматическое копирование по сохранённым настройкам.
func (s *Service) StartScheduler(ctx context.Context) error {
	if s.scheduler == nil {
		return nil
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	return s.scheduler.Reschedule(settings.BackupInterval)
}
