package model

import "encoding/json"

// SubmitRequest is the body of POST /api/v1/clipboard. Data is kept raw so the
// schema validator can report on the exact shape the device sent.
type SubmitRequest struct {
	Data json.RawMessage `json:"data"`
}

// SubmitResponse describes the clip that was appended to the history.
// Timestamp is the stored timestamp. It is the claimed one except when the
// claim ties the current clip, in which case the clip is stored one
// millisecond later; devices must use this value to address the clip.
type SubmitResponse struct {
	Timestamp  int64  `json:"timestamp"`
	PayloadRef string `json:"payload-ref"`
}

// BatchResponse is returned for multi-timestamp lookups.
type BatchResponse struct {
	Clipboards []ClipRecord `json:"clipboards"`
}

// HistoryResponse is returned for full history reads.
type HistoryResponse struct {
	History []ClipRecord `json:"history"`
}

// Envelope wraps every clipboard API response.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError describes a rejected request. Missing and Invalid hold the
// offending field paths for INVALID submissions.
type APIError struct {
	Code    Reason   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}
