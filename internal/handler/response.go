package handler

import (
	"encoding/json"
	"net/http"

	"github.com/zync/zync-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeData writes a successful clipboard envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, model.Envelope{Success: true, Data: data})
}

// writeReason writes the envelope for an expected, non-fault outcome.
func writeReason(w http.ResponseWriter, reason model.Reason) {
	writeRejection(w, &model.APIError{Code: reason, Message: reason.Message()})
}

func writeRejection(w http.ResponseWriter, apiErr *model.APIError) {
	writeJSON(w, reasonStatus(apiErr.Code), model.Envelope{Error: apiErr})
}

// reasonStatus maps an outcome to its HTTP status. EMPTY is not an error.
func reasonStatus(r model.Reason) int {
	switch r {
	case model.ReasonEmpty:
		return http.StatusOK
	case model.ReasonNotFound, model.ReasonNotFoundBatch:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
}
