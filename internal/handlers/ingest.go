package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/scheduler"
	"portfolio_tracker/internal/services"
)

// maxUploadBytes bounds one multipart upload.
const maxUploadBytes = 32 << 20

// IngestHandler accepts broker exports over HTTP and lists ingest runs.
type IngestHandler struct {
	responder
	deps *Dependencies
	now  func() time.Time
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(deps *Dependencies) *IngestHandler {
	return &IngestHandler{responder: responder{log: deps.Log}, deps: deps, now: time.Now}
}

// Upload stages the files of the "files" form field in a private
// directory under the inbox, ingests them as one batch and archives the
// ones that were stored. Files of failed clients are handed to the inbox
// for the scheduled job to retry.
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.ErrValidation, "invalid multipart upload", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.writeError(w, r, apperrors.ValidationField("files", "at least one file is required"))
		return
	}

	if err := os.MkdirAll(h.deps.InboxDir, 0o755); err != nil {
		h.writeError(w, r, apperrors.Internal("creating inbox", err))
		return
	}
	// The inbox job only lists top-level files, so a subdirectory keeps
	// the batch to itself while staying on the inbox filesystem.
	staging, err := os.MkdirTemp(h.deps.InboxDir, ".upload-")
	if err != nil {
		h.writeError(w, r, apperrors.Internal("creating upload staging dir", err))
		return
	}
	defer os.RemoveAll(staging)

	paths := make([]string, 0, len(headers))
	for _, fh := range headers {
		path, err := h.save(staging, fh)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		paths = append(paths, path)
	}

	summary, err := h.deps.IngestService.IngestBatch(r.Context(), paths)
	if summary == nil {
		h.writeError(w, r, err)
		return
	}
	h.settle(paths, summary)
	h.deps.audit(r, services.AuditIngestRun, "ingest_run", summary.RunID, nil, map[string]any{
		"files":  len(paths),
		"status": summary.Status,
	})

	status := http.StatusOK
	if err != nil {
		status = apperrors.HTTPStatus(err)
	}
	h.writeJSON(w, status, summary)
}

// settle archives the stored files and moves failed ones into the inbox.
// Whatever is left in staging is dropped with it.
func (h *IngestHandler) settle(paths []string, summary *services.BatchSummary) {
	if h.deps.ProcessedDir != "" {
		if _, err := scheduler.ArchiveProcessed(paths, summary, h.deps.ProcessedDir, h.now()); err != nil {
			h.log.Warn().Err(err).Msg("Failed to archive uploaded files")
		}
	}

	failed := make(map[string]bool)
	for _, f := range summary.Files {
		if f.Status == services.FileStatusFailed {
			failed[f.File] = true
		}
	}
	for _, path := range paths {
		name := filepath.Base(path)
		if !failed[name] {
			continue
		}
		target := filepath.Join(h.deps.InboxDir, name)
		if _, err := os.Stat(target); err == nil {
			ext := filepath.Ext(name)
			target = filepath.Join(h.deps.InboxDir, strings.TrimSuffix(name, ext)+"."+h.now().Format("20060102T150405")+ext)
		}
		if err := os.Rename(path, target); err != nil {
			h.log.Warn().Err(err).Str("file", name).Msg("Failed to hand upload to inbox")
		}
	}
}

func (h *IngestHandler) save(dir string, fh *multipart.FileHeader) (string, error) {
	name := filepath.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
	if strings.ToLower(filepath.Ext(name)) != ".xlsx" || strings.HasPrefix(name, "~$") {
		return "", apperrors.ValidationField("files", fmt.Sprintf("%s is not an .xlsx workbook", name))
	}

	src, err := fh.Open()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrValidation, "reading upload "+name, err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", apperrors.Internal("saving upload "+name, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", apperrors.Internal("saving upload "+name, err)
	}
	return path, nil
}

// Runs returns one page of ingest run history, newest first.
func (h *IngestHandler) Runs(w http.ResponseWriter, r *http.Request) {
	p := repository.PageToPagination(intQuery(r, "page", 1), intQuery(r, "per_page", 20))
	runs, err := h.deps.IngestService.Runs(p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}
