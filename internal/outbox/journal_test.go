package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJob(t *testing.T, kind Kind, payload interface{}) Job {
	t.Helper()
	j, err := NewJob(kind, payload)
	require.NoError(t, err)
	return j
}

// journalContract runs the behaviour every Journal must share.
func journalContract(t *testing.T, j Journal) {
	ctx := context.Background()

	head, err := j.Peek(ctx)
	require.NoError(t, err)
	assert.Nil(t, head)

	a := mustJob(t, KindAttempt, map[string]string{"id": "a"})
	b := mustJob(t, KindAnswer, map[string]string{"id": "b"})
	c := mustJob(t, KindXP, map[string]string{"id": "c"})
	require.NoError(t, j.Append(ctx, a, b, c))

	n, err := j.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	head, err = j.Peek(ctx)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, a.ID, head.ID)

	// only the head can be acknowledged
	require.ErrorIs(t, j.Ack(ctx, b), ErrHeadMoved)
	require.NoError(t, j.Ack(ctx, a))

	b.Attempts = 2
	b.LastError = "db down"
	require.NoError(t, j.Retry(ctx, b))
	head, err = j.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, head.Attempts)
	assert.Equal(t, "db down", head.LastError)

	require.NoError(t, j.Bury(ctx, b))
	dead, err := j.Dead(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, b.ID, dead[0].ID)

	moved, err := j.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	// c first, then the requeued b with a fresh counter
	head, err = j.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, head.ID)
	require.NoError(t, j.Ack(ctx, c))

	head, err = j.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, head.ID)
	assert.Equal(t, 0, head.Attempts)
	require.NoError(t, j.Ack(ctx, *head))

	n, err = j.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryJournal(t *testing.T) {
	journalContract(t, NewMemoryJournal())
}

func TestRedisJournal(t *testing.T) {
	journalContract(t, redisJournal(t))
}

func redisJournal(t *testing.T) *RedisJournal {
	t.Helper()
	addr := os.Getenv("WATCHLEARN_TEST_REDIS")
	if addr == "" {
		t.Skip("WATCHLEARN_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	prefix := "test:" + uuid.NewString()
	j := &RedisJournal{Client: rdb, PendingKey: prefix + ":pending", DeadKey: prefix + ":dead"}
	t.Cleanup(func() { rdb.Del(context.Background(), j.PendingKey, j.DeadKey) })
	return j
}

func TestRedisJournal_UndecodableHeadIsDeadLettered(t *testing.T) {
	j := redisJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Client.RPush(ctx, j.PendingKey, "{broken").Err())
	good := mustJob(t, KindXP, map[string]int{"amount": 3})
	require.NoError(t, j.Append(ctx, good))

	head, err := j.Peek(ctx)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, good.ID, head.ID)

	dead, err := j.Dead(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, KindCorrupt, dead[0].Kind)
	assert.NotEmpty(t, dead[0].LastError)
	var raw string
	require.NoError(t, json.Unmarshal(dead[0].Payload, &raw))
	assert.Equal(t, "{broken", raw)

	moved, err := j.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	n, err := j.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	dead, err = j.Dead(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestRedisJournal_RequeueResetsCounters(t *testing.T) {
	j := redisJournal(t)
	ctx := context.Background()

	a := mustJob(t, KindAttempt, map[string]string{"id": "a"})
	a.Attempts = 4
	a.LastError = "db down"
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	require.NoError(t, j.Client.RPush(ctx, j.DeadKey, raw).Err())

	moved, err := j.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	head, err := j.Peek(ctx)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, a.ID, head.ID)
	assert.Zero(t, head.Attempts)
	assert.Empty(t, head.LastError)

	moved, err = j.Requeue(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestCorruptJobKeepsRawEntry(t *testing.T) {
	j, err := corruptJob([]byte(`{"id":`), errors.New("unexpected end of JSON input"))
	require.NoError(t, err)
	assert.Equal(t, KindCorrupt, j.Kind)
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, "unexpected end of JSON input", j.LastError)

	var raw string
	require.NoError(t, j.Decode(&raw))
	assert.Equal(t, `{"id":`, raw)

	// the wrapper itself always round-trips through the journal encoding
	body, err := json.Marshal(j)
	require.NoError(t, err)
	var back Job
	require.NoError(t, json.Unmarshal(body, &back))
	assert.Equal(t, j.ID, back.ID)
}

func TestDrainer_BuriesCorruptJobs(t *testing.T) {
	journal := NewMemoryJournal()
	d := NewDrainer(journal, Policy{MaxAttempts: 5}, WithSleep(func(context.Context, time.Duration) error { return nil }))

	j, err := corruptJob([]byte("{broken"), errors.New("bad json"))
	require.NoError(t, err)
	require.NoError(t, d.Enqueue(context.Background(), j))

	_, err = d.DrainOnce(context.Background())
	require.NoError(t, err)
	dead, err := journal.Dead(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 1, dead[0].Attempts)
}

func TestJobDecode(t *testing.T) {
	j := mustJob(t, KindXP, map[string]int{"amount": 5})
	var out struct{ Amount int }
	require.NoError(t, j.Decode(&out))
	assert.Equal(t, 5, out.Amount)

	j.Payload = []byte("{broken")
	err := j.Decode(&out)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}
