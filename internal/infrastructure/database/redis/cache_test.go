package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

type runStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func newMockCache(t *testing.T) (Cache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	cache := NewCache(client, logging.NewNopLogger(), WithPrefix("test:"), WithDefaultTTL(time.Minute))
	return cache, mock
}

func TestCacheGetHit(t *testing.T) {
	cache, mock := newMockCache(t)
	want := runStatus{ID: "r1", Status: "running"}
	data, _ := json.Marshal(want)
	mock.ExpectGet("test:run:r1:status").SetVal(string(data))

	var got runStatus
	require.NoError(t, cache.Get(context.Background(), RunStatusKey("r1"), &got))
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetMiss(t *testing.T) {
	cache, mock := newMockCache(t)
	mock.ExpectGet("test:missing").RedisNil()

	var got runStatus
	err := cache.Get(context.Background(), "missing", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheDelete(t *testing.T) {
	cache, mock := newMockCache(t)
	mock.ExpectDel("test:a", "test:b").SetVal(2)

	require.NoError(t, cache.Delete(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheExists(t *testing.T) {
	cache, mock := newMockCache(t)
	mock.ExpectExists("test:a").SetVal(1)

	ok, err := cache.Exists(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheIncr(t *testing.T) {
	cache, mock := newMockCache(t)
	mock.ExpectIncr("test:counter").SetVal(3)

	n, err := cache.Incr(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetOnClosedClient(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	require.NoError(t, client.Close())

	cache := NewCache(client, logging.NewNopLogger())
	var got runStatus
	err := cache.Get(context.Background(), "k", &got)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestMutexTryLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	m := NewMutex(client, logging.NewNopLogger(), "migrate:target.csv", time.Second)

	mock.ExpectSetNX("datamigrate:lock:migrate:target.csv", m.token, time.Second).SetVal(true)
	ok, err := m.TryLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectSetNX("datamigrate:lock:migrate:target.csv", m.token, time.Second).SetVal(false)
	ok, err = m.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutexUnlockNotHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	m := NewMutex(client, logging.NewNopLogger(), "x", time.Second)

	mock.ExpectEval(releaseScript, []string{"datamigrate:lock:x"}, m.token).SetVal(int64(0))
	err := m.Unlock(context.Background())
	assert.ErrorIs(t, err, ErrLockNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyClaim(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	idem := NewIdempotency(client, time.Hour)

	mock.Regexp().ExpectSetNX("datamigrate:idem:job-1", `.*`, time.Hour).SetVal(true)
	ok, err := idem.Claim(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.Regexp().ExpectSetNX("datamigrate:idem:job-1", `.*`, time.Hour).SetVal(false)
	ok, err = idem.Claim(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
