package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	seen  []string
	waits []time.Duration
}

func (r *recorder) handler(fail map[string]int) Handler {
	return func(_ context.Context, job Job) error {
		var p struct{ ID string }
		if err := job.Decode(&p); err != nil {
			return err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seen = append(r.seen, p.ID)
		if fail[p.ID] > 0 {
			fail[p.ID]--
			return errors.New("transient failure")
		}
		return nil
	}
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func policy() Policy {
	return Policy{BaseBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, MaxAttempts: 4}
}

func TestPolicyBackoff(t *testing.T) {
	p := policy()
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(10))
}

func TestDrainer_RetriesHeadBeforeLaterJobs(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	d := NewDrainer(NewMemoryJournal(), policy(), WithSleep(rec.sleep))
	d.Register(KindAttempt, rec.handler(map[string]int{"attempt": 2}))
	d.Register(KindAnswer, rec.handler(nil))

	require.NoError(t, d.Enqueue(ctx,
		mustJob(t, KindAttempt, map[string]string{"id": "attempt"}),
		mustJob(t, KindAnswer, map[string]string{"id": "answer-1"}),
		mustJob(t, KindAnswer, map[string]string{"id": "answer-2"}),
	))

	n, err := d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// the answers never run before their attempt row exists
	assert.Equal(t, []string{"attempt", "attempt", "attempt", "answer-1", "answer-2"}, rec.seen)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.waits)

	left, err := d.Journal().Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestDrainer_DeadLettersExhaustedJob(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	d := NewDrainer(NewMemoryJournal(), policy(), WithSleep(rec.sleep))
	d.Register(KindXP, rec.handler(map[string]int{"xp": 100}))
	d.Register(KindStreak, rec.handler(nil))

	require.NoError(t, d.Enqueue(ctx,
		mustJob(t, KindXP, map[string]string{"id": "xp"}),
		mustJob(t, KindStreak, map[string]string{"id": "streak"}),
	))

	n, err := d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"xp", "xp", "xp", "xp", "streak"}, rec.seen)
	assert.Len(t, rec.waits, 3)

	dead, err := d.Journal().Dead(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 4, dead[0].Attempts)
	assert.Equal(t, "transient failure", dead[0].LastError)
}

func TestDrainer_PermanentErrorsSkipRetry(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	d := NewDrainer(NewMemoryJournal(), policy(), WithSleep(rec.sleep))
	d.Register(KindAnswer, func(context.Context, Job) error {
		return Permanent(errors.New("bad payload"))
	})
	d.Register(KindAttempt, func(context.Context, Job) error {
		panic("boom")
	})

	require.NoError(t, d.Enqueue(ctx,
		mustJob(t, KindAnswer, map[string]string{"id": "a"}),
		mustJob(t, Kind("unknown"), map[string]string{"id": "b"}),
	))
	_, err := d.DrainOnce(ctx)
	require.NoError(t, err)

	dead, err := d.Journal().Dead(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, dead, 2)
	assert.Empty(t, rec.waits)

	// a panicking handler is an ordinary failure
	require.NoError(t, d.Enqueue(ctx, mustJob(t, KindAttempt, map[string]string{"id": "c"})))
	_, err = d.DrainOnce(ctx)
	require.NoError(t, err)
	dead, err = d.Journal().Dead(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dead, 3)
	assert.Contains(t, dead[2].LastError, "boom")
	assert.Len(t, rec.waits, 3)
}

func TestDrainer_SetPolicy(t *testing.T) {
	d := NewDrainer(NewMemoryJournal(), policy())
	d.SetPolicy(Policy{BaseBackoff: time.Second, MaxBackoff: time.Minute, MaxAttempts: 2})
	assert.Equal(t, 2, d.Policy().MaxAttempts)
}

func TestDrainer_RunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDrainer(NewMemoryJournal(), policy(), WithPollInterval(5*time.Millisecond))

	var mu sync.Mutex
	applied := 0
	d.Register(KindStreak, func(context.Context, Job) error {
		mu.Lock()
		applied++
		mu.Unlock()
		return nil
	})

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.Enqueue(ctx, mustJob(t, KindStreak, map[string]string{"id": "s"})))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return applied == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
