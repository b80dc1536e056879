package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"framecloak/internal/api"
	"framecloak/internal/journal"
	"framecloak/internal/logging"
	"framecloak/internal/pipeline"
	"framecloak/internal/services"
)

const (
	healthMessage     = "Server is running"
	outputContentType = "video/x-matroska"
	defaultHistory    = 50
	maxHistory        = 500
	// multipartMemory is how much of a form is buffered in memory before
	// parts spill to temporary files.
	multipartMemory = 32 << 20
	// formOverhead covers multipart boundaries and the text field on top of
	// the video limit.
	formOverhead = 1 << 20
)

// Operations is the service surface the server exposes.
type Operations interface {
	Encode(ctx context.Context, req api.EncodeRequest) (pipeline.EncodeResult, error)
	Decode(ctx context.Context, req api.DecodeRequest) (api.DecodeResponse, error)
}

// HistoryLister lists journal entries.
type HistoryLister interface {
	List(ctx context.Context, limit int, kinds ...journal.Kind) ([]api.HistoryEntry, error)
}

// KeySource reports the public key.
type KeySource interface {
	PublicKey(ctx context.Context) (api.PublicKeyResponse, error)
}

type handlers struct {
	ops      Operations
	history  HistoryLister
	keys     KeySource
	maxBytes int64
	logger   *slog.Logger
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": healthMessage})
}

func (h *handlers) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	video, form, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	text := form.Value["text"]
	req := api.EncodeRequest{Video: video, Source: "http"}
	if len(text) > 0 {
		req.Text = text[0]
	}

	res, err := h.ops.Encode(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	hdr := w.Header()
	hdr.Set("Content-Type", outputContentType)
	hdr.Set("Content-Disposition", `attachment; filename="output.mkv"`)
	hdr.Set("Content-Length", strconv.Itoa(len(res.Video)))
	hdr.Set("X-Framecloak-Chunks", strconv.Itoa(res.ChunkCount))
	hdr.Set("X-Framecloak-Dropped", strconv.Itoa(res.Dropped))
	hdr.Set("X-Framecloak-Metadata-Frame", strconv.Itoa(res.MetadataFrame))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Video); err != nil {
		h.log(r).Warn("write encode response failed", logging.Error(err))
	}
}

func (h *handlers) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	video, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	resp, err := h.ops.Decode(r.Context(), api.DecodeRequest{Video: video, Source: "http"})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	limit := defaultHistory
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			h.writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxHistory)
	}
	kinds, ok := api.ParseKind(strings.TrimSpace(query.Get("kind")))
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "invalid kind")
		return
	}
	if h.history == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"entries": []api.HistoryEntry{}})
		return
	}
	entries, err := h.history.List(r.Context(), limit, kinds...)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []api.HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *handlers) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp, err := h.keys.PublicKey(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// readUpload parses a multipart form and returns the "video" part. On
// failure the error response has already been written.
func (h *handlers) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, *multipart.Form, bool) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxBytes))
			return nil, nil, false
		}
		h.writeError(w, r, http.StatusBadRequest, "expected multipart/form-data body")
		return nil, nil, false
	}
	file, _, err := r.FormFile("video")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "missing video file")
		return nil, nil, false
	}
	defer file.Close()
	video, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "read video: "+err.Error())
		return nil, nil, false
	}
	return video, r.MultipartForm, true
}

func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	requestID, _ := services.RequestIDFromContext(r.Context())
	h.writeJSON(w, status, api.ErrorResponse{
		Error:     err.Error(),
		Kind:      services.Kind(err),
		RequestID: requestID,
	})
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	h.writeJSON(w, status, api.ErrorResponse{Error: message, RequestID: requestID})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *handlers) log(r *http.Request) *slog.Logger {
	return logging.WithContext(r.Context(), h.logger)
}
