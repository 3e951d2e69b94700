package attempt

import (
	"fmt"
	"sync"
	"time"
)

type Phase int

const (
	Idle Phase = iota
	InProgress
	Completed
)

func (p Phase) String() string {
	switch p {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	}
	return "idle"
}

// Snapshot is a copy of the attempt state at one point in time.
type Snapshot struct {
	Quiz         *Quiz          `json:"quiz,omitempty"`
	Questions    []Question     `json:"questions"`
	CurrentIndex int            `json:"currentIndex"`
	Answers      []AnswerRecord `json:"answers"`
	Ongoing      bool           `json:"quizOngoing"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  time.Time      `json:"completedAt"`
}

func (s Snapshot) Phase() Phase {
	switch {
	case !s.CompletedAt.IsZero():
		return Completed
	case s.Ongoing:
		return InProgress
	}
	return Idle
}

func (s Snapshot) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// Elapsed is the attempt duration; zero until the attempt completes.
func (s Snapshot) Elapsed() time.Duration {
	if s.CompletedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// Store holds the progression of one learner through a fixed, ordered
// question list. All mutations go through its methods; it is safe for
// concurrent use.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	quiz         *Quiz
	questions    []Question
	currentIndex int
	answers      []AnswerRecord
	ongoing      bool
	startedAt    time.Time
	completedAt  time.Time

	onComplete []func(Snapshot)
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// OnComplete registers fn to run once each time the attempt becomes terminal.
func (s *Store) OnComplete(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

func (s *Store) phaseLocked() Phase {
	switch {
	case !s.completedAt.IsZero():
		return Completed
	case s.ongoing:
		return InProgress
	}
	return Idle
}

func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

// LoadQuestions seeds a fresh attempt. It is refused while another attempt
// is still in progress.
func (s *Store) LoadQuestions(qs []Question) error {
	if len(qs) == 0 {
		return ErrNoQuestions
	}
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if seen[q.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = true
		if err := q.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phaseLocked() == InProgress {
		return ErrAttemptInProgress
	}

	s.questions = append([]Question(nil), qs...)
	s.currentIndex = 0
	s.answers = nil
	s.ongoing = true
	s.completedAt = time.Time{}
	return nil
}

func (s *Store) SetQuiz(q Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = &q
}

func (s *Store) SetStartTimestamp(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = t
}

// AnswerQuestion appends rec for the current question. Each question takes
// at most one answer.
func (s *Store) AnswerQuestion(rec AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(rec)
}

func (s *Store) appendLocked(rec AnswerRecord) error {
	switch s.phaseLocked() {
	case Idle:
		return ErrNotInProgress
	case Completed:
		return ErrAttemptCompleted
	}
	if len(s.answers) != s.currentIndex {
		return ErrAlreadyAnswered
	}
	if rec.QuestionID != s.questions[s.currentIndex].ID {
		return ErrQuestionMismatch
	}
	s.answers = append(s.answers, rec)
	return nil
}

// NextQuestion moves the cursor forward, or marks the attempt complete when
// the cursor is already on the last question.
func (s *Store) NextQuestion() error {
	s.mu.Lock()
	snap, done, err := s.advanceLocked()
	hooks := s.onComplete
	s.mu.Unlock()

	if done {
		for _, fn := range hooks {
			fn(snap)
		}
	}
	return err
}

func (s *Store) advanceLocked() (Snapshot, bool, error) {
	switch s.phaseLocked() {
	case Idle:
		return Snapshot{}, false, ErrNotInProgress
	case Completed:
		return Snapshot{}, false, ErrAttemptCompleted
	}
	if s.currentIndex == len(s.questions)-1 {
		s.completedAt = s.now()
		return s.snapshotLocked(), true, nil
	}
	s.currentIndex++
	return Snapshot{}, false, nil
}

// ResolveQuestion records rec and advances in one step. It is rejected
// unless the current question is still unanswered.
func (s *Store) ResolveQuestion(rec AnswerRecord) error {
	s.mu.Lock()
	if err := s.appendLocked(rec); err != nil {
		s.mu.Unlock()
		return err
	}
	snap, done, err := s.advanceLocked()
	hooks := s.onComplete
	s.mu.Unlock()

	if done {
		for _, fn := range hooks {
			fn(snap)
		}
	}
	return err
}

// ResetQuiz returns the store to Idle.
func (s *Store) ResetQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = nil
	s.questions = nil
	s.currentIndex = 0
	s.answers = nil
	s.ongoing = false
	s.startedAt = time.Time{}
	s.completedAt = time.Time{}
}

// CurrentQuestion returns the question under the cursor while in progress.
func (s *Store) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phaseLocked() != InProgress {
		return Question{}, false
	}
	return s.questions[s.currentIndex], true
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Questions:    append([]Question{}, s.questions...),
		CurrentIndex: s.currentIndex,
		Answers:      append([]AnswerRecord{}, s.answers...),
		Ongoing:      s.ongoing,
		StartedAt:    s.startedAt,
		CompletedAt:  s.completedAt,
	}
	if s.quiz != nil {
		q := *s.quiz
		snap.Quiz = &q
	}
	return snap
}
