package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sid-Veeravalli/trim-pro/internal/storage"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim"
)

// DefaultMaxUploadBytes caps multipart uploads unless overridden.
const DefaultMaxUploadBytes int64 = 100 << 20

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *trim.Service
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes sets the largest accepted upload.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *trim.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// UploadAudio handles POST /upload-audio requests (multipart field "file").
func (h *Handlers) UploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadBytes), "FILE_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "form field \"file\" is required", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err, "failed to upload file")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:  "Audio file uploaded successfully.",
		FileID:   result.AssetID,
		Duration: result.DurationSeconds,
	})
}

// TranscribeAudio handles GET /transcribe-audio/{file_id} requests.
func (h *Handlers) TranscribeAudio(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("file_id")

	segments, err := h.service.Transcribe(r.Context(), fileID)
	if err != nil {
		h.writeServiceError(w, err, "failed to transcribe audio")
		return
	}

	resp := TranscriptionResponse{Transcription: make([]SegmentResponse, len(segments))}
	for i, s := range segments {
		resp.Transcription[i] = SegmentResponse{Text: s.Text, Start: s.Start, End: s.End}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TrimAudio handles POST /trim-audio requests.
func (h *Handlers) TrimAudio(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	op, err := h.service.Trim(r.Context(), req.FileID, req.DeleteTexts)
	if err != nil {
		h.writeServiceError(w, err, "failed to trim audio")
		return
	}

	writeJSON(w, http.StatusOK, TrimResponse{
		Message:          "Audio trimmed successfully.",
		TrimID:           op.ID,
		NewDuration:      op.NewDuration,
		TrimmedAudioPath: op.TrimmedRef,
	})
}

// DownloadAudio handles GET /download-audio/{file_id} requests.
func (h *Handlers) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("file_id")

	body, size, err := h.service.Download(r.Context(), fileID)
	if err != nil {
		h.writeServiceError(w, err, "failed to download file")
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", storage.TrimmedKey(fileID)))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("download interrupted",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// GetTrim handles GET /trims/{id} requests.
func (h *Handlers) GetTrim(w http.ResponseWriter, r *http.Request) {
	op, err := h.service.GetOperation(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to get trim")
		return
	}
	writeJSON(w, http.StatusOK, toOperationResponse(op))
}

// ListTrims handles GET /assets/{file_id}/trims requests.
func (h *Handlers) ListTrims(w http.ResponseWriter, r *http.Request) {
	ops, err := h.service.ListOperations(r.Context(), r.PathValue("file_id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to list trims")
		return
	}

	resp := OperationListResponse{Trims: make([]OperationResponse, len(ops))}
	for i, op := range ops {
		resp.Trims[i] = toOperationResponse(op)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteAsset handles DELETE /assets/{file_id} requests.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("file_id")); err != nil {
		h.writeServiceError(w, err, "failed to delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps a service error to a status code and error body.
// Internal errors are logged and reported with a generic message.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, internalMsg string) {
	var missing *trim.MissingPhrasesError
	if errors.As(err, &missing) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:          missing.Message(),
			Code:           "PHRASES_NOT_FOUND",
			MissingPhrases: missing.Phrases,
		})
		return
	}

	switch {
	case errors.Is(err, trim.ErrNoPhrases):
		writeError(w, http.StatusBadRequest, "No phrases provided to delete.", "NO_PHRASES")
	case errors.Is(err, trim.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, "Uploaded file is empty.", "EMPTY_FILE")
	case errors.Is(err, trim.ErrUnsupportedAudio):
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_AUDIO")
	case errors.Is(err, trim.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, "Audio file not found.", "FILE_NOT_FOUND")
	case errors.Is(err, trim.ErrTrimNotFound):
		writeError(w, http.StatusNotFound, "Trimmed audio file not found.", "TRIMMED_FILE_NOT_FOUND")
	case errors.Is(err, trim.ErrOperationNotFound):
		writeError(w, http.StatusNotFound, "Trim not found.", "TRIM_NOT_FOUND")
	case trim.Classify(err) == trim.KindConflict:
		writeError(w, http.StatusConflict, err.Error(), "INTERVAL_CONFLICT")
	default:
		h.logger.Error(internalMsg, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, internalMsg, "INTERNAL_ERROR")
	}
}

func toOperationResponse(op *trim.Operation) OperationResponse {
	resp := OperationResponse{
		ID:               op.ID,
		FileID:           op.AssetID,
		Status:           string(op.Status),
		Phrases:          op.Phrases,
		Matcher:          op.Matcher,
		MissingPhrases:   op.MissingPhrases,
		OriginalDuration: op.OriginalDuration,
		NewDuration:      op.NewDuration,
		TrimmedAudioPath: op.TrimmedRef,
		Error:            op.Error,
		CreatedAt:        op.CreatedAt,
	}
	if resp.Phrases == nil {
		resp.Phrases = []string{}
	}
	for _, iv := range op.Intervals {
		resp.Intervals = append(resp.Intervals, IntervalResponse{StartMs: iv.StartMs, EndMs: iv.EndMs})
	}
	if !op.CompletedAt.IsZero() {
		completed := op.CompletedAt.UTC().Truncate(time.Millisecond)
		resp.CompletedAt = &completed
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
