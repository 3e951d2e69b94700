package attempt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcq(id string, correct string, options ...string) Question {
	q := Question{ID: id, Type: ImageMCQ, Text: "question " + id}
	for _, o := range options {
		q.Options = append(q.Options, Option{ID: o, QuestionID: id, IsCorrect: o == correct, IsActive: true})
	}
	return q
}

func answerFor(q Question, selected string) AnswerRecord {
	rec := newRecord(q)
	rec.SelectedOption = selected
	c, _ := q.CorrectOption()
	rec.CorrectOption = c.ID
	rec.IsCorrect = selected == c.ID
	return rec
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func assertInvariant(t *testing.T, s Snapshot) {
	t.Helper()
	if len(s.Questions) == 0 {
		return
	}
	assert.LessOrEqual(t, len(s.Answers), s.CurrentIndex+1)
	assert.LessOrEqual(t, s.CurrentIndex+1, len(s.Questions))
}

func TestStore_ThreeQuestionScenario(t *testing.T) {
	clock := newClock()
	s := NewStore(clock.Now)
	qs := []Question{mcq("q1", "a", "a", "b"), mcq("q2", "c", "c", "d"), mcq("q3", "e", "e", "f")}

	require.NoError(t, s.LoadQuestions(qs))
	s.SetStartTimestamp(clock.Now())
	assert.Equal(t, InProgress, s.Phase())

	picks := []string{"a", "d", "e"}
	for i, q := range qs {
		require.NoError(t, s.AnswerQuestion(answerFor(q, picks[i])))
		assertInvariant(t, s.Snapshot())
		clock.Advance(10 * time.Second)
		require.NoError(t, s.NextQuestion())
		assertInvariant(t, s.Snapshot())
	}

	snap := s.Snapshot()
	assert.Equal(t, Completed, snap.Phase())
	assert.Equal(t, 2, snap.CurrentIndex)
	assert.Len(t, snap.Answers, 3)
	assert.Equal(t, 2, snap.CorrectCount())
	assert.Equal(t, 30*time.Second, snap.Elapsed())
}

func TestStore_NextQuestionAfterCompletionIsRejected(t *testing.T) {
	clock := newClock()
	s := NewStore(clock.Now)
	q := mcq("q1", "a", "a", "b")
	require.NoError(t, s.LoadQuestions([]Question{q}))
	require.NoError(t, s.AnswerQuestion(answerFor(q, "a")))
	require.NoError(t, s.NextQuestion())
	completedAt := s.Snapshot().CompletedAt

	clock.Advance(time.Minute)
	require.ErrorIs(t, s.NextQuestion(), ErrAttemptCompleted)

	snap := s.Snapshot()
	assert.Equal(t, completedAt, snap.CompletedAt)
	assert.Equal(t, 0, snap.CurrentIndex)
}

func TestStore_RejectsSecondAnswerForSameQuestion(t *testing.T) {
	s := NewStore(nil)
	q := mcq("q1", "a", "a", "b")
	require.NoError(t, s.LoadQuestions([]Question{q, mcq("q2", "c", "c", "d")}))

	require.NoError(t, s.AnswerQuestion(answerFor(q, "a")))
	require.ErrorIs(t, s.AnswerQuestion(answerFor(q, "b")), ErrAlreadyAnswered)
	assert.Len(t, s.Snapshot().Answers, 1)
}

func TestStore_ResolveQuestionChecksCurrentQuestion(t *testing.T) {
	s := NewStore(nil)
	q1, q2 := mcq("q1", "a", "a", "b"), mcq("q2", "c", "c", "d")
	require.NoError(t, s.LoadQuestions([]Question{q1, q2}))

	require.ErrorIs(t, s.ResolveQuestion(answerFor(q2, "c")), ErrQuestionMismatch)
	require.NoError(t, s.ResolveQuestion(answerFor(q1, "a")))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Len(t, snap.Answers, 1)
}

func TestStore_IdleRejectsProgress(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, Idle, s.Phase())
	require.ErrorIs(t, s.NextQuestion(), ErrNotInProgress)
	require.ErrorIs(t, s.AnswerQuestion(AnswerRecord{QuestionID: "q1"}), ErrNotInProgress)
	_, ok := s.CurrentQuestion()
	assert.False(t, ok)
}

func TestStore_ResetIsIdempotent(t *testing.T) {
	s := NewStore(nil)
	q := mcq("q1", "a", "a", "b")
	require.NoError(t, s.LoadQuestions([]Question{q}))
	s.SetQuiz(Quiz{ID: "quiz-1", Name: "Cells"})
	s.SetStartTimestamp(time.Now())
	require.NoError(t, s.AnswerQuestion(answerFor(q, "a")))

	s.ResetQuiz()
	first := s.Snapshot()
	s.ResetQuiz()
	second := s.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, Idle, second.Phase())
	assert.Empty(t, second.Questions)
	assert.Empty(t, second.Answers)
	assert.Nil(t, second.Quiz)
	assert.True(t, second.StartedAt.IsZero())
	assert.True(t, second.CompletedAt.IsZero())
}

func TestStore_LoadQuestions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.ErrorIs(t, NewStore(nil).LoadQuestions(nil), ErrNoQuestions)
	})
	t.Run("duplicate ids", func(t *testing.T) {
		q := mcq("q1", "a", "a", "b")
		require.ErrorIs(t, NewStore(nil).LoadQuestions([]Question{q, q}), ErrDuplicateQuestion)
	})
	t.Run("two correct options", func(t *testing.T) {
		q := mcq("q1", "a", "a", "b")
		q.Options[1].IsCorrect = true
		require.ErrorIs(t, NewStore(nil).LoadQuestions([]Question{q}), ErrInvalidQuestion)
	})
	t.Run("refused while in progress", func(t *testing.T) {
		s := NewStore(nil)
		require.NoError(t, s.LoadQuestions([]Question{mcq("q1", "a", "a", "b")}))
		require.ErrorIs(t, s.LoadQuestions([]Question{mcq("q2", "c", "c", "d")}), ErrAttemptInProgress)
		assert.Equal(t, "q1", s.Snapshot().Questions[0].ID)
	})
	t.Run("allowed after completion", func(t *testing.T) {
		s := NewStore(nil)
		q := mcq("q1", "a", "a", "b")
		require.NoError(t, s.LoadQuestions([]Question{q}))
		require.NoError(t, s.ResolveQuestion(answerFor(q, "a")))
		require.Equal(t, Completed, s.Phase())

		require.NoError(t, s.LoadQuestions([]Question{mcq("q2", "c", "c", "d")}))
		snap := s.Snapshot()
		assert.Equal(t, InProgress, snap.Phase())
		assert.Empty(t, snap.Answers)
	})
}

func TestStore_OnCompleteFiresOnce(t *testing.T) {
	s := NewStore(nil)
	calls := 0
	s.OnComplete(func(snap Snapshot) {
		calls++
		assert.Equal(t, Completed, snap.Phase())
		// hooks run outside the lock
		_ = s.Phase()
	})

	q := mcq("q1", "a", "a", "b")
	require.NoError(t, s.LoadQuestions([]Question{q}))
	require.NoError(t, s.ResolveQuestion(answerFor(q, "b")))
	require.ErrorIs(t, s.NextQuestion(), ErrAttemptCompleted)

	assert.Equal(t, 1, calls)
}

func TestStore_ConcurrentResolveKeepsInvariant(t *testing.T) {
	s := NewStore(nil)
	q := mcq("q1", "a", "a", "b")
	require.NoError(t, s.LoadQuestions([]Question{q, mcq("q2", "c", "c", "d")}))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.ResolveQuestion(answerFor(q, "a"))
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	snap := s.Snapshot()
	assert.Len(t, snap.Answers, 1)
	assertInvariant(t, snap)
}
