package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mmeshcher/paybook/internal/export"
	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/validation"
)

const maxSnapshotUpload = 256 << 20

type settingsForm struct {
	BackupPath     string `form:"backup_path" validate:"max=1024"`
	BackupInterval string `form:"backup_interval" validate:"omitempty,oneof=hourly daily weekly monthly"`
}

// Reports отдаёт отчёт, объём которого зависит от роли.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	report, err := h.service.GetReports(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, report)
}

// SettingsPage отдаёт настройки резервного копирования.
func (h *Handler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	s, err := h.service.GetSettings(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.writeView(w, r, s)
}

// SaveSettings сохраняет настройки резервного копирования.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	form := settingsForm{
		BackupPath:     formValue(r, "backup_path"),
		BackupInterval: formValue(r, "backup_interval"),
	}
	if err := validation.Struct(form); err != nil {
		h.fail(w, r, err, "/settings")
		return
	}

	err := h.service.SaveSettings(r.Context(), actor, model.Settings{
		BackupPath:     form.BackupPath,
		BackupInterval: model.BackupInterval(form.BackupInterval),
	})
	if err != nil {
		h.fail(w, r, err, "/settings")
		return
	}

	h.redirect(w, r, "/settings", "Settings saved")
}

// Backup создаёт снимок хранилища. С параметром download=1 файл снимка отдаётся клиенту.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	path, err := h.service.Backup(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, "/settings")
		return
	}

	if r.URL.Query().Get("download") != "1" {
		h.redirect(w, r, "/settings", "Backup created: "+filepath.Base(path))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.fail(w, r, fmt.Errorf("open snapshot: %w", err), "/settings")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(w, r, fmt.Errorf("stat snapshot: %w", err), "/settings")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// Export выгружает все таблицы в CSV или, с параметром format=xlsx, в книгу Excel.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	dump, err := h.service.Export(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, "/settings")
		return
	}

	var (
		buf         bytes.Buffer
		filename    = export.CSVFilename
		contentType = "text/csv; charset=utf-8"
	)
	if r.URL.Query().Get("format") == "xlsx" {
		filename = export.XLSXFilename
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, dump)
	} else {
		err = export.WriteCSV(&buf, dump)
	}
	if err != nil {
		h.fail(w, r, err, "/settings")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("write export error", zap.Error(err), zap.Int64("userID", actor.ID))
	}
}

// ImportData заменяет хранилище загруженным снимком.
func (h *Handler) ImportData(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			h.logger.Warn("parse upload error", zap.Error(err), zap.Int64("userID", actor.ID))
		}
		h.redirect(w, r, "/settings", noticeInvalidSnapshot)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirect(w, r, "/settings", noticeInvalidSnapshot)
		return
	}
	defer file.Close()

	if err := h.service.Restore(r.Context(), actor, header.Filename, file); err != nil {
		h.fail(w, r, err, "/settings")
		return
	}

	h.logger.Info("store restored from upload",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
		zap.Int64("userID", actor.ID),
	)
	h.redirect(w, r, "/settings", "Data imported")
}
