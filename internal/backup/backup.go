// Package backup содержит правила именования снимков хранилища и планировщик автоматических копий.
package backup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmeshcher/paybook/internal/model"
)

// ErrUnknownInterval возвращается для неподдерживаемой периодичности копирования.
var ErrUnknownInterval = errors.New("unknown backup interval")

const snapshotPrefix = "customers_backup_"

var snapshotExts = []string{".db", ".sqlite", ".sqlite3"}

// SnapshotName возвращает имя файла снимка для момента t.
func SnapshotName(t time.Time) string {
	return snapshotPrefix + t.UTC().Format("20060102_150405") + ".db"
}

// HasSnapshotExt сообщает, похоже ли имя файла на снимок SQLite.
func HasSnapshotExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range snapshotExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Spec переводит периодичность в расписание cron.
func Spec(interval model.BackupInterval) (string, error) {
	switch interval {
	case model.BackupHourly, model.BackupDaily, model.BackupWeekly, model.BackupMonthly:
		return "@" + string(interval), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}
}
