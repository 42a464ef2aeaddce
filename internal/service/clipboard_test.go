package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zync/zync-go/internal/content"
	"github.com/zync/zync-go/internal/model"
	"github.com/zync/zync-go/internal/policy"
	"github.com/zync/zync-go/internal/repository"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms)
}

type testEnv struct {
	store   *ClipboardStore
	history *HistoryService
	repo    *repository.ClipRepository
	content content.Store
	clock   *fixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := repository.OpenMemory(t)
	return newTestEnvWith(t, repository.NewClipRepository(db), content.NewSQLStore(db))
}

func newTestEnvWith(t *testing.T, repo *repository.ClipRepository, cs content.Store) *testEnv {
	t.Helper()
	clock := &fixedClock{now: time.UnixMilli(1000)}
	cfg := policy.Config{
		SizeThreshold: 10,
		ExpiryMin:     time.Second,
		ExpiryMax:     time.Minute,
	}
	store := NewClipboardStore(repo, cs, cfg, []model.EncryptionType{model.EncryptionAES256GCM}, WithClock(clock.Now))
	return &testEnv{
		store:   store,
		history: NewHistoryService(store),
		repo:    repo,
		content: cs,
		clock:   clock,
	}
}

func clipDoc(ts int64, hash, payload string) map[string]any {
	return map[string]any{
		"timestamp": ts,
		"hash":      map[string]any{"crc32": hash},
		"encryption": map[string]any{
			"type": "AES256-GCM-NOPADDING",
			"iv":   "iv",
			"salt": "salt",
		},
		"payload":      payload,
		"payload-type": "TEXT",
	}
}

func (e *testEnv) submit(t *testing.T, doc any) SubmitResult {
	t.Helper()
	res, err := e.store.Submit(context.Background(), 1, doc)
	require.NoError(t, err)
	return res
}

func TestSubmit_EndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.submit(t, clipDoc(1000, "abc", "hi"))
	require.True(t, res.Accepted)
	current, err := env.store.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), current.Timestamp)
	assert.Equal(t, "abc", current.Hash.CRC32)

	res = env.submit(t, clipDoc(900, "def", "hi"))
	assert.False(t, res.Accepted)
	assert.Equal(t, model.ReasonOutdated, res.Reason)

	env.clock.Set(1100)
	res = env.submit(t, clipDoc(1100, "abc", "hi"))
	assert.False(t, res.Accepted)
	assert.Equal(t, model.ReasonIdentical, res.Reason)

	res = env.submit(t, clipDoc(1100, "xyz", "hi again"))
	require.True(t, res.Accepted)
	assert.Equal(t, int64(1100), res.Record.Timestamp)

	current, err = env.store.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), current.Timestamp)
	assert.Equal(t, "xyz", current.Hash.CRC32)

	history, err := env.history.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSubmit_MissingFieldHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	doc := clipDoc(1000, "abc", "hi")
	delete(doc["encryption"].(map[string]any), "iv")

	res := env.submit(t, doc)

	assert.False(t, res.Accepted)
	assert.Equal(t, model.ReasonInvalid, res.Reason)
	assert.Equal(t, []string{"encryption.iv"}, res.Missing)
	assert.Empty(t, res.Invalid)

	history, err := env.history.History(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, history)
	_, err = env.content.Load(context.Background(), 1, 1000)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestSubmit_InvalidValues(t *testing.T) {
	env := newTestEnv(t)
	doc := clipDoc(1000, "abc", "hi")
	doc["payload-type"] = "AUDIO"
	doc["encryption"].(map[string]any)["type"] = "ROT13"

	res := env.submit(t, doc)

	assert.Equal(t, model.ReasonInvalid, res.Reason)
	assert.Equal(t, []string{"encryption.type", "payload-type"}, res.Invalid)
	assert.Empty(t, res.Missing)
}

func TestSubmit_Late(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(10_000)

	res := env.submit(t, clipDoc(10_000-1001, "abc", "small"))
	assert.Equal(t, model.ReasonLate, res.Reason)

	// Payloads larger than the threshold get the long window.
	res = env.submit(t, clipDoc(10_000-1001, "abc", strings.Repeat("x", 11)))
	assert.True(t, res.Accepted)
}

func TestSubmit_SizeAtThresholdUsesShortWindow(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(10_000)

	res := env.submit(t, clipDoc(10_000-1001, "abc", strings.Repeat("x", 10)))

	assert.Equal(t, model.ReasonLate, res.Reason)
}

func TestSubmit_SizeCountsCharacters(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(10_000)

	// Ten runes, more than ten bytes: still the short window.
	res := env.submit(t, clipDoc(10_000-1001, "abc", strings.Repeat("é", 10)))

	assert.Equal(t, model.ReasonLate, res.Reason)
}

func TestSubmit_TimeTravel(t *testing.T) {
	env := newTestEnv(t)

	res := env.submit(t, clipDoc(1001, "abc", "hi"))

	assert.Equal(t, model.ReasonTimeTravel, res.Reason)
}

func TestSubmit_FirstSubmissionBootstrap(t *testing.T) {
	env := newTestEnv(t)

	res := env.submit(t, clipDoc(1, "", "hi"))

	require.True(t, res.Accepted)
	assert.Equal(t, int64(1), res.Record.Timestamp)
}

func TestSubmit_EqualTimestampBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.True(t, env.submit(t, clipDoc(1000, "abc", "one")).Accepted)

	res := env.submit(t, clipDoc(1000, "abc", "one"))
	assert.Equal(t, model.ReasonIdentical, res.Reason)

	res = env.submit(t, clipDoc(1000, "def", "two"))
	require.True(t, res.Accepted, "equal timestamp with a new hash must be accepted")
	assert.Equal(t, int64(1001), res.Record.Timestamp)

	history, err := env.history.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Less(t, history[0].Timestamp, history[1].Timestamp)

	payload, reason, err := env.history.Payload(ctx, 1, 1001)
	require.NoError(t, err)
	assert.Equal(t, model.ReasonNone, reason)
	assert.Equal(t, "two", string(payload))
}

func TestSubmit_IdenticalForEqualOrNewerTimestamp(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.submit(t, clipDoc(500, "abc", "hi")).Accepted)

	for _, ts := range []int64{500, 600, 999, 1000} {
		res := env.submit(t, clipDoc(ts, "abc", "hi"))
		assert.Equal(t, model.ReasonIdentical, res.Reason, "timestamp %d", ts)
	}
}

func TestSubmit_OwnersAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Submit(ctx, 1, clipDoc(1000, "abc", "hi"))
	require.NoError(t, err)
	res, err := env.store.Submit(ctx, 2, clipDoc(900, "abc", "hi"))
	require.NoError(t, err)

	assert.True(t, res.Accepted, "another owner's current clip must not affect this owner")
}

func TestSubmit_ConcurrentSameOwnerKeepsHistoryOrdered(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(2000)
	ctx := context.Background()

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.store.Submit(ctx, 1, clipDoc(int64(1000+i%5), fmt.Sprintf("h%d", i), "p"))
			assert.NoError(t, err)
			if res.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.Contains(t, []model.Reason{model.ReasonOutdated, model.ReasonIdentical}, res.Reason)
			}
		}(i)
	}
	wg.Wait()

	history, err := env.history.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, accepted)
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].Timestamp, history[i].Timestamp)
	}
	assert.Zero(t, env.store.locks.len(), "locks must be released on every path")
}

func TestSubmit_ExternalContentStore(t *testing.T) {
	db := repository.OpenMemory(t)
	mem := content.NewMemoryStore()
	env := newTestEnvWith(t, repository.NewClipRepository(db), mem)

	res := env.submit(t, clipDoc(1000, "abc", "secret"))
	require.True(t, res.Accepted)
	assert.Equal(t, content.Ref(1, 1000), res.Record.PayloadRef)

	payload, err := mem.Load(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(payload))
}

// failingStore accepts payloads but fails every save after the first.
type failingStore struct {
	*content.MemoryStore
	saves int
}

func (f *failingStore) Save(ctx context.Context, ownerID, ts int64, payload []byte) (string, error) {
	f.saves++
	if f.saves > 1 {
		return "", assert.AnError
	}
	return f.MemoryStore.Save(ctx, ownerID, ts, payload)
}

func TestSubmit_ContentFailureIsFault(t *testing.T) {
	db := repository.OpenMemory(t)
	fs := &failingStore{MemoryStore: content.NewMemoryStore()}
	env := newTestEnvWith(t, repository.NewClipRepository(db), fs)
	ctx := context.Background()

	require.True(t, env.submit(t, clipDoc(900, "abc", "hi")).Accepted)

	_, err := env.store.Submit(ctx, 1, clipDoc(1000, "def", "hi"))
	require.ErrorIs(t, err, assert.AnError)

	current, err := env.store.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(900), current.Timestamp, "failed submission must not advance current")
}

func TestSubmit_AppendFailureDiscardsExternalPayload(t *testing.T) {
	db := repository.OpenMemory(t)
	mem := content.NewMemoryStore()
	env := newTestEnvWith(t, repository.NewClipRepository(db), mem)
	ctx := context.Background()

	require.True(t, env.submit(t, clipDoc(900, "abc", "kept")).Accepted)

	_, err := db.ExecContext(ctx, `CREATE TRIGGER clips_offline BEFORE INSERT ON clips
		BEGIN SELECT RAISE(ABORT, 'clips offline'); END`)
	require.NoError(t, err)

	_, err = env.store.Submit(ctx, 1, clipDoc(1000, "def", "orphan"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicateClip)

	_, err = mem.Load(ctx, 1, 1000)
	assert.ErrorIs(t, err, content.ErrNotFound, "payload saved before the failed append must be discarded")

	payload, err := mem.Load(ctx, 1, 900)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(payload))

	current, err := env.store.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(900), current.Timestamp, "failed submission must not advance current")
	assert.Zero(t, env.store.locks.len())
}

func TestCurrent_Empty(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.store.Current(context.Background(), 1)

	assert.NoError(t, err)
	assert.Nil(t, rec)
}
