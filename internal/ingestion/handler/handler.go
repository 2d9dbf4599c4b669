package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion/catalog"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/logger"
)

const (
	fileField   = "dataset_file"
	nameField   = "dataset_name"
	idFieldAlt  = "dataset_id"
	formMemory  = 32 << 20
	defaultPage = 50
	maxPage     = 500
)

// Ingester runs an upload through the pipeline.
type Ingester interface {
	Run(ctx context.Context, up dataset.Upload) (*pipeline.Result, error)
}

// Announcer records and announces a processed dataset.
type Announcer interface {
	Publish(ctx context.Context, res *pipeline.Result) *ingestion.DatasetRecord
}

type Handler struct {
	ingester       Ingester
	announcer      Announcer
	catalog        catalog.Reader
	maxUploadBytes int64
	logger         *slog.Logger
}

// New creates a Handler. announcer may be nil.
func New(ingester Ingester, announcer Announcer, reader catalog.Reader, maxUploadBytes int64) *Handler {
	return &Handler{
		ingester:       ingester,
		announcer:      announcer,
		catalog:        reader,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default().With("component", "ingestion-handler"),
	}
}

// Upload accepts a multipart upload, runs the pipeline and answers with the
// persisted shapes and class tokens.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		h.writeError(w, r, h.formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	id := r.FormValue(nameField)
	if id == "" {
		id = r.FormValue(idFieldAlt)
	}
	file, header, err := r.FormFile(fileField)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		h.writeError(w, r, apperrors.Failure(apperrors.ErrInvalidFile, "reading %s: %v", fileField, err))
		return
	}
	if file != nil {
		defer file.Close()
	}

	req := validator.Upload{DatasetID: id, HasFile: file != nil}
	if header != nil {
		req.Filename = header.Filename
		req.Size = header.Size
	}
	if err := validator.ValidateUpload(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := logger.WithDatasetID(r.Context(), id)
	res, err := h.ingester.Run(ctx, dataset.Upload{
		DatasetID: id,
		Filename:  header.Filename,
		Body:      file,
		Size:      header.Size,
	})
	if err != nil {
		h.writeError(w, r.WithContext(ctx), err)
		return
	}
	if h.announcer != nil {
		h.announcer.Publish(ctx, res)
	}
	h.writeJSON(w, http.StatusOK, ingestion.NewUploadResponse(res))
}

func (h *Handler) formError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.Newf(apperrors.ErrInvalidFile, http.StatusRequestEntityTooLarge,
			"upload exceeds the %d byte limit", tooLarge.Limit)
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return apperrors.Failure(apperrors.ErrMissingField,
			"%s: request must be multipart/form-data carrying the dataset file", fileField)
	default:
		return apperrors.Failure(apperrors.ErrInvalidFile, "malformed multipart body: %v", err)
	}
}

// GetDataset returns the catalog record of one dataset.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	rec, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// ListDatasets pages through the catalog.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPage)
	if limit <= 0 || limit > maxPage {
		limit = defaultPage
	}
	offset := max(queryInt(r, "offset", 0), 0)

	recs, err := h.catalog.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"datasets": recs,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	kind := apperrors.Kind(err)
	message := apperrors.Message(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err, "status_code", status)
		message = "internal error while processing the request"
	} else {
		log.Warn("request rejected", "error_kind", kind, "error", message, "status_code", status)
	}
	h.writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": message,
	})
}
