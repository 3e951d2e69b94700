package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"watchlearn/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPendingKey = "outbox:pending"
	DefaultDeadKey    = "outbox:dead"
)

// head operations compare job ids inside Redis so a concurrent requeue can
// never be acknowledged by mistake
var (
	ackScript = redis.NewScript(`
local head = redis.call('LINDEX', KEYS[1], 0)
if not head or cjson.decode(head)['id'] ~= ARGV[1] then return 0 end
redis.call('LPOP', KEYS[1])
return 1`)

	retryScript = redis.NewScript(`
local head = redis.call('LINDEX', KEYS[1], 0)
if not head or cjson.decode(head)['id'] ~= ARGV[1] then return 0 end
redis.call('LSET', KEYS[1], 0, ARGV[2])
return 1`)

	buryScript = redis.NewScript(`
local head = redis.call('LINDEX', KEYS[1], 0)
if not head or cjson.decode(head)['id'] ~= ARGV[1] then return 0 end
redis.call('LPOP', KEYS[1])
redis.call('RPUSH', KEYS[2], ARGV[2])
return 1`)

	// quarantineScript dead-letters a raw head that no longer decodes
	quarantineScript = redis.NewScript(`
if redis.call('LINDEX', KEYS[1], 0) ~= ARGV[1] then return 0 end
redis.call('LPOP', KEYS[1])
redis.call('RPUSH', KEYS[2], ARGV[2])
return 1`)

	// requeueScript moves dead entries to the pending tail as long as the
	// dead list still starts with the entries read by the caller. ARGV holds
	// (old, new) pairs.
	requeueScript = redis.NewScript(`
local moved = 0
for i = 1, #ARGV, 2 do
  if redis.call('LINDEX', KEYS[1], 0) ~= ARGV[i] then break end
  redis.call('LPOP', KEYS[1])
  redis.call('RPUSH', KEYS[2], ARGV[i + 1])
  moved = moved + 1
end
return moved`)
)

// RedisJournal keeps the journal in two Redis lists so pending writes
// survive a restart of the service.
type RedisJournal struct {
	Client     *redis.Client
	PendingKey string
	DeadKey    string
}

func NewRedisJournal(rdb *redis.Client) *RedisJournal {
	return &RedisJournal{Client: rdb, PendingKey: DefaultPendingKey, DeadKey: DefaultDeadKey}
}

func (r *RedisJournal) Append(ctx context.Context, jobs ...Job) error {
	if len(jobs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(jobs))
	for _, j := range jobs {
		raw, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("encode job %s: %w", j.ID, err)
		}
		values = append(values, raw)
	}
	return r.Client.RPush(ctx, r.PendingKey, values...).Err()
}

// Peek returns the head job. A head that cannot be decoded is moved to the
// dead list, wrapped as a KindCorrupt job, so it cannot stall the entries
// behind it.
func (r *RedisJournal) Peek(ctx context.Context) (*Job, error) {
	for {
		raw, err := r.Client.LIndex(ctx, r.PendingKey, 0).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var j Job
		derr := json.Unmarshal(raw, &j)
		if derr == nil {
			return &j, nil
		}
		if err := r.quarantine(ctx, raw, derr); err != nil {
			return nil, err
		}
	}
}

func (r *RedisJournal) quarantine(ctx context.Context, raw []byte, cause error) error {
	wrapped, err := corruptJob(raw, cause)
	if err != nil {
		return err
	}
	body, err := json.Marshal(wrapped)
	if err != nil {
		return err
	}
	moved, err := quarantineScript.Run(ctx, r.Client, []string{r.PendingKey, r.DeadKey}, raw, body).Int()
	if err != nil {
		return fmt.Errorf("quarantine journal head: %w", err)
	}
	if moved == 1 {
		logger.Log.Error("undecodable journal entry dead-lettered",
			zap.String("job_id", wrapped.ID),
			zap.Int("bytes", len(raw)),
			zap.Error(cause),
		)
	}
	return nil
}

// corruptJob keeps the raw entry as a JSON string payload.
func corruptJob(raw []byte, cause error) (Job, error) {
	payload, err := json.Marshal(string(raw))
	if err != nil {
		return Job{}, err
	}
	return Job{
		ID:         uuid.NewString(),
		Kind:       KindCorrupt,
		Payload:    payload,
		LastError:  cause.Error(),
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func (r *RedisJournal) runHead(ctx context.Context, script *redis.Script, keys []string, job Job, withBody bool) error {
	args := []interface{}{job.ID}
	if withBody {
		raw, err := json.Marshal(job)
		if err != nil {
			return err
		}
		args = append(args, raw)
	}
	ok, err := script.Run(ctx, r.Client, keys, args...).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrHeadMoved
	}
	return nil
}

func (r *RedisJournal) Ack(ctx context.Context, job Job) error {
	return r.runHead(ctx, ackScript, []string{r.PendingKey}, job, false)
}

func (r *RedisJournal) Retry(ctx context.Context, job Job) error {
	return r.runHead(ctx, retryScript, []string{r.PendingKey}, job, true)
}

func (r *RedisJournal) Bury(ctx context.Context, job Job) error {
	return r.runHead(ctx, buryScript, []string{r.PendingKey, r.DeadKey}, job, true)
}

func (r *RedisJournal) Len(ctx context.Context) (int64, error) {
	return r.Client.LLen(ctx, r.PendingKey).Result()
}

func (r *RedisJournal) Dead(ctx context.Context, limit int64) ([]Job, error) {
	stop := limit - 1
	if limit <= 0 {
		stop = -1
	}
	raws, err := r.Client.LRange(ctx, r.DeadKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var j Job
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			return nil, fmt.Errorf("decode dead job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Requeue moves the dead list back to pending in one script call, so an
// entry is never popped without being pushed.
func (r *RedisJournal) Requeue(ctx context.Context) (int, error) {
	raws, err := r.Client.LRange(ctx, r.DeadKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	if len(raws) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(raws)*2)
	for _, raw := range raws {
		fresh := raw
		var j Job
		if err := json.Unmarshal([]byte(raw), &j); err == nil {
			j.Attempts = 0
			j.LastError = ""
			body, err := json.Marshal(j)
			if err != nil {
				return 0, fmt.Errorf("encode dead job %s: %w", j.ID, err)
			}
			fresh = string(body)
		}
		args = append(args, raw, fresh)
	}
	return requeueScript.Run(ctx, r.Client, []string{r.DeadKey, r.PendingKey}, args...).Int()
}
