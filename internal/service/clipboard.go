package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zync/zync-go/internal/content"
	"github.com/zync/zync-go/internal/model"
	"github.com/zync/zync-go/internal/policy"
	"github.com/zync/zync-go/internal/repository"
	"github.com/zync/zync-go/internal/schema"
)

// SubmitResult is the outcome of a clip submission. Rejections are ordinary
// results with Accepted false and Reason set; Missing or Invalid carry the
// field paths for INVALID.
type SubmitResult struct {
	Accepted bool
	Reason   model.Reason
	Missing  []string
	Invalid  []string
	Record   *model.ClipRecord
}

// ClipboardStore owns every owner's clip history and decides which
// submissions become the current clip.
type ClipboardStore struct {
	repo     *repository.ClipRepository
	content  content.Store
	schema   schema.Node
	temporal policy.Temporal
	now      func() time.Time
	locks    *ownerLocks
}

// Option customises a ClipboardStore.
type Option func(*ClipboardStore)

// WithClock overrides the server clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *ClipboardStore) { s.now = now }
}

// NewClipboardStore creates a ClipboardStore. encryptionTypes lists the
// algorithm identifiers accepted in submissions.
func NewClipboardStore(repo *repository.ClipRepository, store content.Store, cfg policy.Config, encryptionTypes []model.EncryptionType, opts ...Option) *ClipboardStore {
	s := &ClipboardStore{
		repo:     repo,
		content:  store,
		schema:   clipSchema(encryptionTypes),
		temporal: policy.NewTemporal(cfg),
		now:      time.Now,
		locks:    newOwnerLocks(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates doc and, if every rule passes, appends it to the owner's
// history as the new current clip. Submissions for the same owner are
// serialized; different owners never wait on each other. The returned error
// is non-nil only for infrastructure faults.
func (s *ClipboardStore) Submit(ctx context.Context, ownerID int64, doc any) (SubmitResult, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	switch res := schema.Validate(s.schema, doc); res.Status {
	case schema.StatusMissing:
		return SubmitResult{Reason: model.ReasonInvalid, Missing: res.Fields}, nil
	case schema.StatusInvalid:
		return SubmitResult{Reason: model.ReasonInvalid, Invalid: res.Fields}, nil
	}

	sub := submissionFromDoc(doc)
	now := s.now()

	switch s.temporal.Check(sub.Size(), sub.Timestamp, now.UnixMilli()) {
	case policy.Late:
		return SubmitResult{Reason: model.ReasonLate}, nil
	case policy.TimeTravel:
		return SubmitResult{Reason: model.ReasonTimeTravel}, nil
	}

	var (
		result SubmitResult
		saved  *model.ClipRecord
	)
	_, transactional := s.content.(content.TxStore)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		current, err := s.repo.CurrentTx(ctx, tx, ownerID)
		if err != nil && !errors.Is(err, repository.ErrClipNotFound) {
			return fmt.Errorf("loading current clip: %w", err)
		}

		d := policy.Resolve(current, sub)
		if !d.Accept {
			result = SubmitResult{Reason: d.Reason}
			return nil
		}

		rec := newRecord(ownerID, sub, current, now)

		store := s.content
		if txs, ok := store.(content.TxStore); ok {
			store = txs.WithTx(tx)
		}
		ref, err := store.Save(ctx, ownerID, rec.Timestamp, []byte(sub.Payload))
		if err != nil {
			return fmt.Errorf("saving payload: %w", err)
		}
		rec.PayloadRef = ref
		saved = rec

		if err := s.repo.AppendTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("appending clip: %w", err)
		}

		result = SubmitResult{Accepted: true, Record: rec}
		return nil
	})
	if err != nil {
		if saved != nil && !transactional {
			if derr := s.content.Discard(context.WithoutCancel(ctx), ownerID, saved.Timestamp); derr != nil {
				slog.Error("discarding orphaned payload failed", "owner_id", ownerID, "timestamp", saved.Timestamp, "error", derr)
			}
		}
		return SubmitResult{}, err
	}

	if result.Accepted {
		slog.Info("clip accepted", "owner_id", ownerID, "timestamp", result.Record.Timestamp, "size", result.Record.PayloadSize)
	} else {
		slog.Info("clip rejected", "owner_id", ownerID, "reason", result.Reason)
	}
	return result, nil
}

// Current returns the owner's current clip, or nil if the owner has none.
func (s *ClipboardStore) Current(ctx context.Context, ownerID int64) (*model.ClipRecord, error) {
	rec, err := s.repo.Current(ctx, ownerID)
	if errors.Is(err, repository.ErrClipNotFound) {
		return nil, nil
	}
	return rec, err
}

// newRecord builds the metadata for an accepted submission. A candidate that
// ties the current timestamp is stored one millisecond after it so the
// history stays strictly increasing. The stored timestamp may then run 1ms
// ahead of the server clock; it is returned in SubmitResult.Record and a
// later claim at or before it is OUTDATED or a tie like any other.
func newRecord(ownerID int64, sub model.ClipSubmission, current *model.ClipRecord, now time.Time) *model.ClipRecord {
	ts := sub.Timestamp
	if current != nil && ts <= current.Timestamp {
		ts = current.Timestamp + 1
	}

	return &model.ClipRecord{
		OwnerID:     ownerID,
		Timestamp:   ts,
		Hash:        sub.Hash,
		Encryption:  sub.Encryption,
		PayloadType: sub.PayloadType,
		PayloadSize: sub.Size(),
		ReceivedAt:  now.UnixMilli(),
	}
}
