package progress

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "langsheet:progress"

func TestProgress_JSON(t *testing.T) {
	data, err := json.Marshal(Progress{Total: 10, Completed: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":10,"completed":5,"filename":"","finished":false}`, string(data))
}

func TestProgress_Done(t *testing.T) {
	assert.False(t, Progress{}.Done())
	assert.True(t, Progress{Finished: true}.Done())
	assert.True(t, Progress{Error: "boom"}.Done())
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Progress{}, p)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Reset(ctx, Progress{JobID: "job-1", Target: "app", StartedAt: &started}))
	require.NoError(t, s.SetTotal(ctx, "job-1", 34))
	require.NoError(t, s.Add(ctx, "job-1", 2))
	require.NoError(t, s.Add(ctx, "job-1", 2))

	p, _ = s.Get(ctx)
	assert.Equal(t, 34, p.Total)
	assert.Equal(t, 4, p.Completed)
	assert.False(t, p.Finished)

	finished := started.Add(time.Minute)
	require.NoError(t, s.Finish(ctx, "job-1", "update_language_202405011001.csv", finished))

	p, _ = s.Get(ctx)
	assert.True(t, p.Finished)
	assert.Equal(t, "update_language_202405011001.csv", p.Filename)
	assert.Equal(t, finished, *p.FinishedAt)
	assert.Equal(t, "job-1", p.JobID)
}

func TestMemoryStore_Fail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Reset(ctx, Progress{JobID: "job-1"}))
	require.NoError(t, s.Fail(ctx, "job-1", "input has no en column", time.Now()))

	p, _ := s.Get(ctx)
	assert.Equal(t, "input has no en column", p.Error)
	assert.False(t, p.Finished)
	assert.NotNil(t, p.FinishedAt)
	assert.True(t, p.Done())
}

func TestMemoryStore_RejectsSupersededJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)

	require.NoError(t, s.Reset(ctx, Progress{JobID: "job-a"}))
	require.NoError(t, s.SetTotal(ctx, "job-a", 34))
	require.NoError(t, s.Reset(ctx, Progress{JobID: "job-b"}))
	require.NoError(t, s.SetTotal(ctx, "job-b", 10))

	assert.ErrorIs(t, s.SetTotal(ctx, "job-a", 34), ErrSuperseded)
	assert.ErrorIs(t, s.Add(ctx, "job-a", 5), ErrSuperseded)
	assert.ErrorIs(t, s.Finish(ctx, "job-a", "a.csv", at), ErrSuperseded)
	assert.ErrorIs(t, s.Fail(ctx, "job-a", "boom", at), ErrSuperseded)

	p, _ := s.Get(ctx)
	assert.Equal(t, Progress{JobID: "job-b", Total: 10}, p)
}

func TestMemoryStore_ConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Reset(ctx, Progress{JobID: "job-1"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Add(ctx, "job-1", 1)
			_, _ = s.Get(ctx)
		}()
	}
	wg.Wait()

	p, _ := s.Get(ctx)
	assert.Equal(t, 50, p.Completed)
}

func TestRedisStore_Reset(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, testKey)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectHSet(testKey,
		"total", "0",
		"completed", "0",
		"filename", "",
		"finished", "0",
		"job_id", "job-1",
		"target", "backend",
		"error", "",
		"started_at", "2024-05-01T10:00:00Z",
		"finished_at", "",
	).SetVal(9)

	err := s.Reset(context.Background(), Progress{JobID: "job-1", Target: "backend", StartedAt: &started})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Updates(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, testKey)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)
	keys := []string{testKey}

	mock.ExpectEvalSha(ownedHSet.Hash(), keys, "job-1", "total", "38").SetVal(int64(1))
	mock.ExpectEvalSha(ownedHIncrBy.Hash(), keys, "job-1", "completed", "2").SetVal(int64(1))
	mock.ExpectEvalSha(ownedHSet.Hash(), keys, "job-1", "filename", "out.csv", "finished", "1", "finished_at", "2024-05-01T10:01:00Z").SetVal(int64(1))
	mock.ExpectEvalSha(ownedHSet.Hash(), keys, "job-1", "error", "boom", "finished_at", "2024-05-01T10:01:00Z").SetVal(int64(1))

	require.NoError(t, s.SetTotal(ctx, "job-1", 38))
	require.NoError(t, s.Add(ctx, "job-1", 2))
	require.NoError(t, s.Finish(ctx, "job-1", "out.csv", at))
	require.NoError(t, s.Fail(ctx, "job-1", "boom", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_RejectsSupersededJob(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, testKey)
	ctx := context.Background()
	keys := []string{testKey}

	mock.ExpectEvalSha(ownedHIncrBy.Hash(), keys, "job-a", "completed", "5").SetVal(int64(0))
	mock.ExpectEvalSha(ownedHSet.Hash(), keys, "job-a", "filename", "a.csv", "finished", "1", "finished_at", "2024-05-01T10:01:00Z").SetVal(int64(0))

	assert.ErrorIs(t, s.Add(ctx, "job-a", 5), ErrSuperseded)
	assert.ErrorIs(t, s.Finish(ctx, "job-a", "a.csv", time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)), ErrSuperseded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, testKey)

	mock.ExpectHGetAll(testKey).SetVal(map[string]string{
		"total":       "38",
		"completed":   "12",
		"filename":    "",
		"finished":    "0",
		"job_id":      "job-1",
		"target":      "backend",
		"error":       "",
		"started_at":  "2024-05-01T10:00:00Z",
		"finished_at": "",
	})

	p, err := s.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 38, p.Total)
	assert.Equal(t, 12, p.Completed)
	assert.False(t, p.Finished)
	assert.Equal(t, "job-1", p.JobID)
	require.NotNil(t, p.StartedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *p.StartedAt)
	assert.Nil(t, p.FinishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, testKey)

	mock.ExpectHGetAll(testKey).SetVal(map[string]string{})

	p, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Progress{}, p)
}

func TestRedisStore_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, testKey)
	ctx := context.Background()

	mock.ExpectEvalSha(ownedHIncrBy.Hash(), []string{testKey}, "job-1", "completed", "1").SetErr(errors.New("connection refused"))
	mock.ExpectHGetAll(testKey).SetErr(errors.New("connection refused"))

	err := s.Add(ctx, "job-1", 1)
	assert.ErrorContains(t, err, "progress: add")
	assert.NotErrorIs(t, err, ErrSuperseded)
	_, err = s.Get(ctx)
	assert.ErrorContains(t, err, "progress: get")
}
