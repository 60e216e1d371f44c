package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"chunkrelay/internal/contextutil"
	"chunkrelay/internal/service"
)

// fileField is the multipart form field carrying the upload.
const fileField = "file"

// ConvertHandler handles HTTP requests for document conversion.
type ConvertHandler struct {
	convertService service.ConvertService
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(convertService service.ConvertService) *ConvertHandler {
	return &ConvertHandler{
		convertService: convertService,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for document conversion.
//
// The upload is streamed from the multipart "file" field straight into the
// service. The response is always 200 with a one-element JSON array; failures
// are reported in the element's status and errors.
func (h *ConvertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	upload, err := h.findUpload(r)
	if err != nil {
		// The service reports an empty upload as a failed request.
		logger.WarnContext(ctx, "no file in request", "error", err)
		upload = service.Upload{}
	}
	// A client disconnect must not abort conversion or delivery.
	report := h.convertService.Convert(context.WithoutCancel(ctx), upload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode([]service.Report{report}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// findUpload advances the multipart stream to the file field. The returned
// Content reads from the request body and is valid until the handler returns.
func (h *ConvertHandler) findUpload(r *http.Request) (service.Upload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return service.Upload{}, err
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return service.Upload{}, errors.New("missing form field " + fileField)
		}
		if err != nil {
			return service.Upload{}, err
		}
		if part.FormName() == fileField {
			return service.Upload{Filename: part.FileName(), Content: part}, nil
		}
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}
