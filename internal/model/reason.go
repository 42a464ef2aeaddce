package model

// Reason is the machine-readable outcome code returned to devices when a clip
// is rejected or a lookup finds nothing. None of these are faults.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonEmpty         Reason = "EMPTY"
	ReasonNotFound      Reason = "NOT_FOUND"
	ReasonNotFoundBatch Reason = "NOT_FOUND_BATCH"
	ReasonInvalid       Reason = "INVALID"
	ReasonLate          Reason = "LATE"
	ReasonTimeTravel    Reason = "TIME_TRAVEL"
	ReasonOutdated      Reason = "OUTDATED"
	ReasonIdentical     Reason = "IDENTICAL"
)

var reasonMessages = map[Reason]string{
	ReasonEmpty:         "clipboard is empty",
	ReasonNotFound:      "clipboard not found",
	ReasonNotFoundBatch: "none of the requested clipboards were found",
	ReasonInvalid:       "clipboard data is invalid",
	ReasonLate:          "clipboard timestamp has expired",
	ReasonTimeTravel:    "clipboard timestamp is in the future",
	ReasonOutdated:      "clipboard is older than the current clipboard",
	ReasonIdentical:     "clipboard is identical to the current clipboard",
}

// Message returns a human-readable description of the reason.
func (r Reason) Message() string {
	return reasonMessages[r]
}
