package service

import (
	"context"
	"errors"

	"github.com/zync/zync-go/internal/content"
	"github.com/zync/zync-go/internal/model"
	"github.com/zync/zync-go/internal/repository"
)

// HistoryService is the read-only query surface over a ClipboardStore.
// Reads never take the per-owner submit lock.
type HistoryService struct {
	clips *ClipboardStore
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(clips *ClipboardStore) *HistoryService {
	return &HistoryService{clips: clips}
}

// Latest returns the owner's current clip, or ReasonEmpty if there is none.
func (s *HistoryService) Latest(ctx context.Context, ownerID int64) (*model.ClipRecord, model.Reason, error) {
	rec, err := s.clips.Current(ctx, ownerID)
	if err != nil {
		return nil, model.ReasonNone, err
	}
	if rec == nil {
		return nil, model.ReasonEmpty, nil
	}
	return rec, model.ReasonNone, nil
}

// ByTimestamp returns the clip stored at ts, or ReasonNotFound.
func (s *HistoryService) ByTimestamp(ctx context.Context, ownerID, ts int64) (*model.ClipRecord, model.Reason, error) {
	rec, err := s.clips.repo.GetByTimestamp(ctx, ownerID, ts)
	if err != nil {
		if errors.Is(err, repository.ErrClipNotFound) {
			return nil, model.ReasonNotFound, nil
		}
		return nil, model.ReasonNone, err
	}
	return rec, model.ReasonNone, nil
}

// ByTimestamps returns the clips found among timestamps, oldest first.
// Misses are dropped silently; only when nothing matches is
// ReasonNotFoundBatch returned.
func (s *HistoryService) ByTimestamps(ctx context.Context, ownerID int64, timestamps []int64) ([]model.ClipRecord, model.Reason, error) {
	recs, err := s.clips.repo.GetByTimestamps(ctx, ownerID, timestamps)
	if err != nil {
		return nil, model.ReasonNone, err
	}
	if len(recs) == 0 {
		return nil, model.ReasonNotFoundBatch, nil
	}
	return recs, model.ReasonNone, nil
}

// History returns every clip of the owner, oldest first. An owner without
// clips gets an empty, non-nil slice.
func (s *HistoryService) History(ctx context.Context, ownerID int64) ([]model.ClipRecord, error) {
	recs, err := s.clips.repo.History(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []model.ClipRecord{}
	}
	return recs, nil
}

// Payload returns the raw payload stored for the clip at ts.
func (s *HistoryService) Payload(ctx context.Context, ownerID, ts int64) ([]byte, model.Reason, error) {
	payload, err := s.clips.content.Load(ctx, ownerID, ts)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, model.ReasonNotFound, nil
		}
		return nil, model.ReasonNone, err
	}
	return payload, model.ReasonNone, nil
}
