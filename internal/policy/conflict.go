package policy

import "github.com/zync/zync-go/internal/model"

// Decision is the outcome of Resolve. Reason is set only when Accept is false.
type Decision struct {
	Accept bool
	Reason model.Reason
}

// Resolve decides whether candidate may become the owner's current clip.
// Rules are applied in order and the first match wins:
//
//  1. candidate older than current -> OUTDATED
//  2. candidate hash equals current hash -> IDENTICAL
//  3. otherwise accept
//
// A nil current (first clip for the owner) is always accepted. Equal
// timestamps do not trigger rule 1.
func Resolve(current *model.ClipRecord, candidate model.ClipSubmission) Decision {
	if current == nil {
		return Decision{Accept: true}
	}
	if candidate.Timestamp < current.Timestamp {
		return Decision{Reason: model.ReasonOutdated}
	}
	if candidate.Hash.CRC32 == current.Hash.CRC32 {
		return Decision{Reason: model.ReasonIdentical}
	}
	return Decision{Accept: true}
}
