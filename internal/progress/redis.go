package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldTotal      = "total"
	fieldCompleted  = "completed"
	fieldFilename   = "filename"
	fieldFinished   = "finished"
	fieldJobID      = "job_id"
	fieldTarget     = "target"
	fieldError      = "error"
	fieldStartedAt  = "started_at"
	fieldFinishedAt = "finished_at"
)

// RedisStore keeps the record in a Redis hash so it survives restarts and is
// shared by every replica.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore stores the record under key.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *RedisStore) Reset(ctx context.Context, p Progress) error {
	err := s.client.HSet(ctx, s.key,
		fieldTotal, strconv.Itoa(p.Total),
		fieldCompleted, strconv.Itoa(p.Completed),
		fieldFilename, p.Filename,
		fieldFinished, formatBool(p.Finished),
		fieldJobID, p.JobID,
		fieldTarget, p.Target,
		fieldError, p.Error,
		fieldStartedAt, formatTime(p.StartedAt),
		fieldFinishedAt, formatTime(p.FinishedAt),
	).Err()
	if err != nil {
		return fmt.Errorf("progress: reset: %w", err)
	}
	return nil
}

// The scripts compare job_id and write in one step, so a worker on another
// replica cannot touch a record that was reset under it.
var (
	ownedHSet = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'job_id') ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
return 1
`)

	ownedHIncrBy = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'job_id') ~= ARGV[1] then
	return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[2], ARGV[3])
return 1
`)
)

func (s *RedisStore) runOwned(ctx context.Context, op string, script *redis.Script, args ...interface{}) error {
	applied, err := script.Run(ctx, s.client, []string{s.key}, args...).Int64()
	if err != nil {
		return fmt.Errorf("progress: %s: %w", op, err)
	}
	if applied == 0 {
		return ErrSuperseded
	}
	return nil
}

func (s *RedisStore) SetTotal(ctx context.Context, jobID string, total int) error {
	return s.runOwned(ctx, "set total", ownedHSet, jobID, fieldTotal, strconv.Itoa(total))
}

func (s *RedisStore) Add(ctx context.Context, jobID string, n int) error {
	return s.runOwned(ctx, "add", ownedHIncrBy, jobID, fieldCompleted, strconv.Itoa(n))
}

func (s *RedisStore) Finish(ctx context.Context, jobID, filename string, at time.Time) error {
	return s.runOwned(ctx, "finish", ownedHSet, jobID,
		fieldFilename, filename,
		fieldFinished, formatBool(true),
		fieldFinishedAt, formatTime(&at),
	)
}

func (s *RedisStore) Fail(ctx context.Context, jobID, message string, at time.Time) error {
	return s.runOwned(ctx, "fail", ownedHSet, jobID,
		fieldError, message,
		fieldFinishedAt, formatTime(&at),
	)
}

func (s *RedisStore) Get(ctx context.Context) (Progress, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Progress{}, fmt.Errorf("progress: get: %w", err)
	}

	var p Progress
	p.Total, _ = strconv.Atoi(fields[fieldTotal])
	p.Completed, _ = strconv.Atoi(fields[fieldCompleted])
	p.Filename = fields[fieldFilename]
	p.Finished = fields[fieldFinished] == "1"
	p.JobID = fields[fieldJobID]
	p.Target = fields[fieldTarget]
	p.Error = fields[fieldError]
	p.StartedAt = parseTime(fields[fieldStartedAt])
	p.FinishedAt = parseTime(fields[fieldFinishedAt])
	return p, nil
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil
	}
	return &t
}
