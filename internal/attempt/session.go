package attempt

import (
	"sync"
	"time"

	"watchlearn/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// View is what the learner sees of a running session.
type View struct {
	AttemptID    string         `json:"attemptId"`
	Phase        string         `json:"phase"`
	Quiz         *Quiz          `json:"quiz,omitempty"`
	Question     *QuestionView  `json:"question,omitempty"`
	Index        int            `json:"index"`
	Total        int            `json:"total"`
	Answers      []AnswerRecord `json:"answers"`
	Pending      bool           `json:"pending"`
	CorrectCount int            `json:"correctCount"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  time.Time      `json:"completedAt"`
}

// Session drives one learner through one attempt. It owns the Store and the
// controller of the current question, and commits resolved questions after
// the feedback delay.
type Session struct {
	ID     string
	UserID uint

	store *Store
	delay time.Duration
	now   func() time.Time

	mu         sync.Mutex
	ctrl       Controller
	current    *QuestionView
	timer      *time.Timer
	generation int
	submitted  bool
	closed     bool
	finished   *Snapshot
	completed  []func(*Session, Snapshot)
}

type SessionOption func(*Session)

// WithFeedbackDelay keeps the resolved question on screen for d before
// advancing. Zero advances synchronously.
func WithFeedbackDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.delay = d }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithCompletionHook runs fn once the last question is resolved.
func WithCompletionHook(fn func(*Session, Snapshot)) SessionOption {
	return func(s *Session) { s.completed = append(s.completed, fn) }
}

// StartSession loads qs into a fresh store and opens the first question.
func StartSession(userID uint, quiz Quiz, qs []Question, opts ...SessionOption) (*Session, error) {
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewStore(s.now)
	// the store reports completion while s.mu is held by the committing call
	s.store.OnComplete(func(snap Snapshot) { s.finished = &snap })

	if err := s.store.LoadQuestions(qs); err != nil {
		return nil, err
	}
	s.store.SetQuiz(quiz)
	s.store.SetStartTimestamp(s.now())

	if err := s.openCurrentLocked(); err != nil {
		s.store.ResetQuiz()
		return nil, err
	}
	return s, nil
}

func (s *Session) openCurrentLocked() error {
	q, ok := s.store.CurrentQuestion()
	if !ok {
		s.ctrl, s.current = nil, nil
		return nil
	}
	ctrl, err := NewController(q)
	if err != nil {
		return err
	}
	v := ProjectQuestion(q, shuffleColumns)
	s.ctrl, s.current = ctrl, &v
	return nil
}

// Interact routes in to the controller of the current question.
func (s *Session) Interact(in Interaction) (Outcome, error) {
	s.mu.Lock()
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	out, err := s.ctrl.Handle(in)
	if err != nil || out.Record == nil {
		s.mu.Unlock()
		return out, err
	}

	rec := *out.Record
	if s.delay <= 0 {
		snap, done, err := s.commitLocked(rec)
		hooks := s.completed
		s.mu.Unlock()
		if done {
			s.fire(hooks, snap)
		}
		return out, err
	}

	s.generation++
	gen := s.generation
	s.timer = time.AfterFunc(s.delay, func() { s.commitDelayed(gen, rec) })
	s.mu.Unlock()
	return out, nil
}

func (s *Session) checkLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.timer != nil {
		return ErrAdvancePending
	}
	switch s.store.Phase() {
	case Idle:
		return ErrNotInProgress
	case Completed:
		return ErrAttemptCompleted
	}
	if s.ctrl == nil {
		return ErrNotInProgress
	}
	return nil
}

func (s *Session) commitDelayed(gen int, rec AnswerRecord) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	snap, done, err := s.commitLocked(rec)
	hooks := s.completed
	s.mu.Unlock()
	if err != nil {
		logger.Log.Error("Delayed advance failed",
			zap.String("attemptId", s.ID),
			zap.Uint("userId", s.UserID),
			zap.String("questionId", rec.QuestionID),
			zap.Error(err))
	}
	if done {
		s.fire(hooks, snap)
	}
}

func (s *Session) commitLocked(rec AnswerRecord) (Snapshot, bool, error) {
	if err := s.store.ResolveQuestion(rec); err != nil {
		return Snapshot{}, false, err
	}
	if s.finished != nil {
		snap := *s.finished
		s.finished = nil
		s.ctrl, s.current = nil, nil
		return snap, true, nil
	}
	return Snapshot{}, false, s.openCurrentLocked()
}

func (s *Session) fire(hooks []func(*Session, Snapshot), snap Snapshot) {
	for _, fn := range hooks {
		fn(s, snap)
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.store.Snapshot()
	v := View{
		AttemptID:    s.ID,
		Phase:        snap.Phase().String(),
		Quiz:         snap.Quiz,
		Index:        snap.CurrentIndex,
		Total:        len(snap.Questions),
		Answers:      snap.Answers,
		Pending:      s.timer != nil,
		CorrectCount: snap.CorrectCount(),
		StartedAt:    snap.StartedAt,
		CompletedAt:  snap.CompletedAt,
	}
	if s.current != nil {
		q := *s.current
		v.Question = &q
	}
	return v
}

func (s *Session) Snapshot() Snapshot {
	return s.store.Snapshot()
}

func (s *Session) Phase() Phase {
	return s.store.Phase()
}

// MarkSubmitted hands the completed snapshot to persist and flips the
// session into its submitted state once persist succeeds. It succeeds at
// most once and only after completion; a failed persist leaves the session
// submittable. persist runs under the session lock and must not call back
// into the session.
func (s *Session) MarkSubmitted(persist func(Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return Snapshot{}, ErrAlreadySubmitted
	}
	snap := s.store.Snapshot()
	if snap.Phase() != Completed {
		return Snapshot{}, ErrNotCompleted
	}
	if persist != nil {
		if err := persist(snap); err != nil {
			return Snapshot{}, err
		}
	}
	s.submitted = true
	return snap, nil
}

// Exit abandons the session: a pending advance is cancelled and the store
// goes back to Idle. Nothing is persisted.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.closed = true
	s.ctrl, s.current = nil, nil
	s.finished = nil
	s.store.ResetQuiz()
}
