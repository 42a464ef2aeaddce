package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/zync/zync-go/internal/model"
)

var (
	ErrClipNotFound  = errors.New("clip not found")
	ErrDuplicateClip = errors.New("clip already exists for timestamp")
)

const clipColumns = `owner_id, ts, crc32, enc_type, enc_iv, enc_salt,
	payload_type, payload_ref, payload_size, received_at`

// ClipRepository persists clip metadata histories. Each owner's history is
// keyed by (owner_id, ts), so timestamps are unique per owner.
type ClipRepository struct {
	db *sql.DB
	// lockCurrent makes CurrentTx lock the owner's newest row (and the gap
	// above it) so submits from separate processes serialize on MySQL.
	// SQLite serializes writers on its database lock instead.
	lockCurrent bool
}

// NewClipRepository creates a new ClipRepository.
func NewClipRepository(db *sql.DB) *ClipRepository {
	_, isMySQL := db.Driver().(*mysql.MySQLDriver)
	return &ClipRepository{db: db, lockCurrent: isMySQL}
}

// WithTx runs fn inside a database transaction.
func (r *ClipRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, r.db, fn)
}

// AppendTx inserts rec within the provided transaction.
func (r *ClipRepository) AppendTx(ctx context.Context, tx DBTX, rec *model.ClipRecord) error {
	query := `INSERT INTO clips (` + clipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		rec.OwnerID,
		rec.Timestamp,
		rec.Hash.CRC32,
		string(rec.Encryption.Type),
		rec.Encryption.IV,
		rec.Encryption.Salt,
		string(rec.PayloadType),
		rec.PayloadRef,
		rec.PayloadSize,
		rec.ReceivedAt,
	)
	if err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicateClip
		}
		return err
	}
	return nil
}

// Current returns the owner's clip with the highest timestamp.
func (r *ClipRepository) Current(ctx context.Context, ownerID int64) (*model.ClipRecord, error) {
	return scanOne(r.db.QueryRowContext(ctx, currentQuery(false), ownerID))
}

// CurrentTx is Current bound to the provided transaction. On MySQL the row
// read is locked until the transaction ends.
func (r *ClipRepository) CurrentTx(ctx context.Context, tx DBTX, ownerID int64) (*model.ClipRecord, error) {
	return scanOne(tx.QueryRowContext(ctx, currentQuery(r.lockCurrent), ownerID))
}

func currentQuery(forUpdate bool) string {
	query := `SELECT ` + clipColumns + ` FROM clips WHERE owner_id = ? ORDER BY ts DESC LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return query
}

// GetByTimestamp retrieves a single clip by owner and timestamp.
func (r *ClipRepository) GetByTimestamp(ctx context.Context, ownerID, ts int64) (*model.ClipRecord, error) {
	query := `SELECT ` + clipColumns + ` FROM clips WHERE owner_id = ? AND ts = ?`
	return scanOne(r.db.QueryRowContext(ctx, query, ownerID, ts))
}

// GetByTimestamps retrieves the clips matching any of timestamps, ordered by
// timestamp. Timestamps with no clip are skipped.
func (r *ClipRepository) GetByTimestamps(ctx context.Context, ownerID int64, timestamps []int64) ([]model.ClipRecord, error) {
	if len(timestamps) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(timestamps)+1)
	args = append(args, ownerID)
	for _, ts := range timestamps {
		args = append(args, ts)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(timestamps)), ", ")

	query := fmt.Sprintf(`SELECT %s FROM clips WHERE owner_id = ? AND ts IN (%s) ORDER BY ts ASC`,
		clipColumns, placeholders)

	return r.list(ctx, query, args...)
}

// History retrieves every clip for the owner, oldest first.
func (r *ClipRepository) History(ctx context.Context, ownerID int64) ([]model.ClipRecord, error) {
	query := `SELECT ` + clipColumns + ` FROM clips WHERE owner_id = ? ORDER BY ts ASC`
	return r.list(ctx, query, ownerID)
}

func (r *ClipRepository) list(ctx context.Context, query string, args ...any) ([]model.ClipRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ClipRecord
	for rows.Next() {
		rec, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*model.ClipRecord, error) {
	rec, err := scanClip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClipNotFound
		}
		return nil, err
	}
	return rec, nil
}

func scanClip(s scanner) (*model.ClipRecord, error) {
	var (
		rec         model.ClipRecord
		encType     string
		payloadType string
	)
	err := s.Scan(
		&rec.OwnerID, &rec.Timestamp, &rec.Hash.CRC32, &encType, &rec.Encryption.IV,
		&rec.Encryption.Salt, &payloadType, &rec.PayloadRef, &rec.PayloadSize, &rec.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Encryption.Type = model.EncryptionType(encType)
	rec.PayloadType = model.PayloadType(payloadType)
	return &rec, nil
}
