package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(Key("T1"), `.+`, 30*time.Second).SetVal(true)

	release, err := NewLocker(db, 30*time.Second).Acquire(context.Background(), "T1")
	require.NoError(t, err)
	assert.NotNil(t, release)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(Key("T1"), `.+`, 30*time.Second).SetVal(false)

	_, err := NewLocker(db, 30*time.Second).Acquire(context.Background(), "T1")
	assert.ErrorIs(t, err, ErrHeld)
}

func TestAcquireRedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX(Key("T1"), `.+`, 30*time.Second).SetErr(errors.New("connection refused"))

	_, err := NewLocker(db, 30*time.Second).Acquire(context.Background(), "T1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}

func TestRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewLocker(db, 30*time.Second)
	key := Key("T1")

	mock.ExpectEvalSha(releaseScript.Hash(), []string{key}, "tok").SetVal(int64(1))
	assert.NoError(t, l.release(context.Background(), key, "tok"))

	mock.ExpectEvalSha(releaseScript.Hash(), []string{key}, "tok").SetVal(int64(0))
	assert.ErrorIs(t, l.release(context.Background(), key, "tok"), ErrLost)

	mock.ExpectEvalSha(releaseScript.Hash(), []string{key}, "tok").SetErr(errors.New("connection refused"))
	err := l.release(context.Background(), key, "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}
