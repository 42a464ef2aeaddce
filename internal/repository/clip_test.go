package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zync/zync-go/internal/model"
)

func record(owner, ts int64, hash string) *model.ClipRecord {
	return &model.ClipRecord{
		OwnerID:   owner,
		Timestamp: ts,
		Hash:      model.Hash{CRC32: hash},
		Encryption: model.Encryption{
			Type: model.EncryptionAES256GCM,
			IV:   "iv",
			Salt: "salt",
		},
		PayloadType: model.PayloadText,
		PayloadRef:  "ref",
		PayloadSize: 2,
		ReceivedAt:  ts,
	}
}

func appendAll(t *testing.T, repo *ClipRepository, recs ...*model.ClipRecord) {
	t.Helper()
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		for _, rec := range recs {
			if err := repo.AppendTx(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestClipRepository_CurrentEmpty(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))

	rec, err := repo.Current(context.Background(), 1)

	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestClipRepository_AppendAndCurrent(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	appendAll(t, repo, record(1, 1000, "a"), record(1, 3000, "c"), record(1, 2000, "b"), record(2, 9000, "z"))

	rec, err := repo.Current(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, int64(3000), rec.Timestamp)
	assert.Equal(t, "c", rec.Hash.CRC32)
	assert.Equal(t, model.EncryptionAES256GCM, rec.Encryption.Type)
	assert.Equal(t, model.PayloadText, rec.PayloadType)
	assert.Equal(t, int64(1), rec.OwnerID)
}

func TestClipRepository_DuplicateTimestamp(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	appendAll(t, repo, record(1, 1000, "a"))

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		return repo.AppendTx(ctx, tx, record(1, 1000, "b"))
	})

	assert.ErrorIs(t, err, ErrDuplicateClip)

	// Same timestamp for another owner does not collide.
	appendAll(t, repo, record(2, 1000, "a"))
}

func TestClipRepository_RollbackLeavesNoRecord(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	boom := errors.New("boom")

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		require.NoError(t, repo.AppendTx(ctx, tx, record(1, 1000, "a")))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	history, err := repo.History(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestClipRepository_GetByTimestamp(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	appendAll(t, repo, record(1, 1000, "a"))

	rec, err := repo.GetByTimestamp(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Hash.CRC32)

	_, err = repo.GetByTimestamp(context.Background(), 1, 1001)
	assert.ErrorIs(t, err, ErrClipNotFound)

	_, err = repo.GetByTimestamp(context.Background(), 2, 1000)
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestClipRepository_GetByTimestamps(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	appendAll(t, repo, record(1, 1000, "a"), record(1, 2000, "b"), record(1, 3000, "c"))

	recs, err := repo.GetByTimestamps(context.Background(), 1, []int64{3000, 42, 1000})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1000), recs[0].Timestamp)
	assert.Equal(t, int64(3000), recs[1].Timestamp)

	recs, err = repo.GetByTimestamps(context.Background(), 1, []int64{4, 5})
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = repo.GetByTimestamps(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClipRepository_HistoryOrdered(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	appendAll(t, repo, record(1, 3000, "c"), record(1, 1000, "a"), record(1, 2000, "b"))

	history, err := repo.History(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].Timestamp, history[i].Timestamp)
	}
}

func TestClipRepository_LongTextFields(t *testing.T) {
	repo := NewClipRepository(OpenMemory(t))
	rec := record(1, 100, strings.Repeat("c", 100))
	rec.Encryption.IV = strings.Repeat("i", 300)
	rec.Encryption.Salt = strings.Repeat("s", 300)
	appendAll(t, repo, rec)

	got, err := repo.GetByTimestamp(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestClipRepository_LocksCurrentOnMySQL(t *testing.T) {
	// sql.Open does not dial, so no server is needed.
	myDB, err := sql.Open(DriverMySQL, "zync@tcp(127.0.0.1:1)/zync")
	require.NoError(t, err)
	defer myDB.Close()

	assert.True(t, NewClipRepository(myDB).lockCurrent)
	assert.False(t, NewClipRepository(OpenMemory(t)).lockCurrent)

	assert.True(t, strings.HasSuffix(currentQuery(true), " FOR UPDATE"))
	assert.NotContains(t, currentQuery(false), "FOR UPDATE")
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(ErrClipNotFound))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB("oracle", "whatever")
	assert.Error(t, err)
}

func TestMigrate_UnknownDriver(t *testing.T) {
	err := Migrate(context.Background(), nil, "oracle")
	assert.Error(t, err)
}
