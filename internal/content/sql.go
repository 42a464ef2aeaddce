package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zync/zync-go/internal/repository"
)

// SQLStore keeps payloads in the clip_contents table next to the metadata.
type SQLStore struct {
	db repository.DBTX
}

// NewSQLStore creates a SQLStore bound to db.
func NewSQLStore(db repository.DBTX) *SQLStore {
	return &SQLStore{db: db}
}

// WithTx returns a store whose writes join tx.
func (s *SQLStore) WithTx(tx repository.DBTX) Store {
	return &SQLStore{db: tx}
}

func (s *SQLStore) Save(ctx context.Context, ownerID, timestamp int64, payload []byte) (string, error) {
	ref := Ref(ownerID, timestamp)
	query := `INSERT INTO clip_contents (owner_id, ts, ref, payload) VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, ownerID, timestamp, ref, payload); err != nil {
		if repository.IsDuplicateKey(err) {
			return "", ErrExists
		}
		return "", fmt.Errorf("insert content: %w", err)
	}
	return ref, nil
}

func (s *SQLStore) Load(ctx context.Context, ownerID, timestamp int64) ([]byte, error) {
	query := `SELECT payload FROM clip_contents WHERE owner_id = ? AND ts = ?`

	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, ownerID, timestamp).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select content: %w", err)
	}
	return payload, nil
}

func (s *SQLStore) Discard(ctx context.Context, ownerID, timestamp int64) error {
	query := `DELETE FROM clip_contents WHERE owner_id = ? AND ts = ?`
	_, err := s.db.ExecContext(ctx, query, ownerID, timestamp)
	return err
}
