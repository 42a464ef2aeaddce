package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zync/zync-go/internal/middleware"
	"github.com/zync/zync-go/internal/model"
	"github.com/zync/zync-go/internal/service"
)

// maxBatchTimestamps caps the number of timestamps in one batch lookup.
const maxBatchTimestamps = 1000

// ClipboardHandler handles HTTP requests for clipboard sync.
type ClipboardHandler struct {
	clips   *service.ClipboardStore
	history *service.HistoryService
	maxBody int64
}

// NewClipboardHandler creates a new ClipboardHandler. maxBody limits the size
// of a submission request body in bytes.
func NewClipboardHandler(clips *service.ClipboardStore, history *service.HistoryService, maxBody int64) *ClipboardHandler {
	return &ClipboardHandler{clips: clips, history: history, maxBody: maxBody}
}

// Routes returns the clipboard routes, to be mounted under /api/v1/clipboard.
func (h *ClipboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleLatest)
	r.Post("/", h.HandleSubmit)
	r.Get("/history", h.HandleHistory)
	r.Get("/{timestamp}", h.HandleByTimestamps)
	r.Get("/{timestamp}/payload", h.HandlePayload)
	return r
}

// HandleSubmit handles POST /api/v1/clipboard requests.
func (h *ClipboardHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req model.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeReason(w, model.ReasonInvalid)
		return
	}

	doc, err := decodeDocument(req.Data)
	if err != nil || doc == nil {
		writeReason(w, model.ReasonInvalid)
		return
	}

	res, err := h.clips.Submit(r.Context(), ownerID, doc)
	if err != nil {
		slog.Error("clip submission failed", "owner_id", ownerID, "error", err)
		writeInternalError(w)
		return
	}

	if !res.Accepted {
		writeRejection(w, &model.APIError{
			Code:    res.Reason,
			Message: res.Reason.Message(),
			Missing: res.Missing,
			Invalid: res.Invalid,
		})
		return
	}

	writeData(w, model.SubmitResponse{
		Timestamp:  res.Record.Timestamp,
		PayloadRef: res.Record.PayloadRef,
	})
}

// HandleLatest handles GET /api/v1/clipboard requests.
func (h *ClipboardHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	rec, reason, err := h.history.Latest(r.Context(), ownerID)
	if err != nil {
		slog.Error("loading latest clip failed", "owner_id", ownerID, "error", err)
		writeInternalError(w)
		return
	}
	if reason != model.ReasonNone {
		writeReason(w, reason)
		return
	}

	writeData(w, rec)
}

// HandleByTimestamps handles GET /api/v1/clipboard/{timestamp} requests.
// A comma in the path segment selects a batch lookup.
func (h *ClipboardHandler) HandleByTimestamps(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	// An owner without any clip gets EMPTY rather than a miss.
	_, reason, err := h.history.Latest(r.Context(), ownerID)
	if err != nil {
		slog.Error("loading latest clip failed", "owner_id", ownerID, "error", err)
		writeInternalError(w)
		return
	}
	if reason == model.ReasonEmpty {
		writeReason(w, reason)
		return
	}

	raw := chi.URLParam(r, "timestamp")
	if strings.Contains(raw, ",") {
		h.byTimestamps(w, r, ownerID, raw)
		return
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeReason(w, model.ReasonNotFound)
		return
	}

	rec, reason, err := h.history.ByTimestamp(r.Context(), ownerID, ts)
	if err != nil {
		slog.Error("loading clip failed", "owner_id", ownerID, "timestamp", ts, "error", err)
		writeInternalError(w)
		return
	}
	if reason != model.ReasonNone {
		writeReason(w, reason)
		return
	}

	writeData(w, rec)
}

func (h *ClipboardHandler) byTimestamps(w http.ResponseWriter, r *http.Request, ownerID int64, raw string) {
	parts := strings.Split(raw, ",")
	if len(parts) > maxBatchTimestamps {
		writeReason(w, model.ReasonInvalid)
		return
	}

	// Unparsable entries can never match and are dropped like any other miss.
	timestamps := make([]int64, 0, len(parts))
	for _, p := range parts {
		if ts, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64); err == nil {
			timestamps = append(timestamps, ts)
		}
	}

	recs, reason, err := h.history.ByTimestamps(r.Context(), ownerID, timestamps)
	if err != nil {
		slog.Error("loading clip batch failed", "owner_id", ownerID, "error", err)
		writeInternalError(w)
		return
	}
	if reason != model.ReasonNone {
		writeReason(w, reason)
		return
	}

	writeData(w, model.BatchResponse{Clipboards: recs})
}

// HandleHistory handles GET /api/v1/clipboard/history requests.
func (h *ClipboardHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	recs, err := h.history.History(r.Context(), ownerID)
	if err != nil {
		slog.Error("loading history failed", "owner_id", ownerID, "error", err)
		writeInternalError(w)
		return
	}

	writeData(w, model.HistoryResponse{History: recs})
}

// HandlePayload handles GET /api/v1/clipboard/{timestamp}/payload requests.
// The stored payload is returned verbatim.
func (h *ClipboardHandler) HandlePayload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		writeReason(w, model.ReasonNotFound)
		return
	}

	payload, reason, err := h.history.Payload(r.Context(), ownerID, ts)
	if err != nil {
		slog.Error("loading payload failed", "owner_id", ownerID, "timestamp", ts, "error", err)
		writeInternalError(w)
		return
	}
	if reason != model.ReasonNone {
		writeReason(w, reason)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// decodeDocument turns the raw submission into a generic tree. Numbers are
// kept as json.Number so integer checks are exact. A missing or null data
// field yields a nil document.
func decodeDocument(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
