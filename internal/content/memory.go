package content

import (
	"bytes"
	"context"
	"sync"
)

type slot struct {
	owner int64
	ts    int64
}

// MemoryStore keeps payloads in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[slot][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[slot][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, ownerID, timestamp int64, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := slot{ownerID, timestamp}
	if _, ok := s.blobs[k]; ok {
		return "", ErrExists
	}
	s.blobs[k] = bytes.Clone(payload)
	return Ref(ownerID, timestamp), nil
}

func (s *MemoryStore) Load(_ context.Context, ownerID, timestamp int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[slot{ownerID, timestamp}]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(b), nil
}

func (s *MemoryStore) Discard(_ context.Context, ownerID, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, slot{ownerID, timestamp})
	return nil
}
