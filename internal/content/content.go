// Package content stores raw clip payloads apart from their metadata.
// Payloads are addressed by (owner, timestamp) and are write-once: a slot that
// has been saved can never be overwritten.
package content

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/zync/zync-go/internal/repository"
)

var (
	ErrNotFound = errors.New("content not found")
	ErrExists   = errors.New("content already stored")
)

// Store saves and loads payload bytes.
type Store interface {
	// Save stores payload in the (owner, timestamp) slot and returns its
	// reference. It returns ErrExists if the slot is taken.
	Save(ctx context.Context, ownerID, timestamp int64, payload []byte) (string, error)

	// Load returns the payload in the slot or ErrNotFound.
	Load(ctx context.Context, ownerID, timestamp int64) ([]byte, error)

	// Discard frees a slot whose metadata was never committed. It is not
	// reachable from the public API.
	Discard(ctx context.Context, ownerID, timestamp int64) error
}

// TxStore is implemented by stores that live in the metadata database and
// can join its transaction.
type TxStore interface {
	Store
	WithTx(tx repository.DBTX) Store
}

// Ref derives the opaque reference for an (owner, timestamp) slot.
func Ref(ownerID, timestamp int64) string {
	var key [16]byte
	binary.BigEndian.PutUint64(key[:8], uint64(ownerID))
	binary.BigEndian.PutUint64(key[8:], uint64(timestamp))
	sum := blake2b.Sum256(key[:])
	return hex.EncodeToString(sum[:16])
}
