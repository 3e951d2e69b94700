package service

import (
	"errors"
	"sync"
	"time"

	"watchlearn/internal/attempt"
	"watchlearn/internal/config"
	"watchlearn/internal/model"
	"watchlearn/internal/repository"
	"watchlearn/internal/util"
	"watchlearn/pkg/logger"
	"watchlearn/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sessionEntry struct {
	session *attempt.Session
	touched time.Time
}

// AttemptService keeps the running attempt of every learner in memory, at
// most one per user.
type AttemptService struct {
	QuizRepo *repository.QuizRepository
	Cfg      *config.AttemptConfig

	mu       sync.Mutex
	sessions map[uint]*sessionEntry
	now      func() time.Time

	// called once an attempt reaches its last question
	completion []func(*attempt.Session, attempt.Snapshot)
}

func NewAttemptService(quizRepo *repository.QuizRepository, cfg *config.AttemptConfig) *AttemptService {
	return &AttemptService{
		QuizRepo: quizRepo,
		Cfg:      cfg,
		sessions: make(map[uint]*sessionEntry),
		now:      time.Now,
	}
}

// OnCompletion registers fn to run when any session completes.
func (s *AttemptService) OnCompletion(fn func(*attempt.Session, attempt.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completion = append(s.completion, fn)
}

func (s *AttemptService) completed(sess *attempt.Session, snap attempt.Snapshot) {
	monitoring.AttemptEvents.WithLabelValues("completed").Inc()
	logger.Log.Info("Attempt completed",
		zap.String("attemptId", sess.ID),
		zap.Uint("userId", sess.UserID),
		zap.Int("correct", snap.CorrectCount()),
		zap.Int("total", len(snap.Questions)),
		zap.Duration("elapsed", snap.Elapsed()),
	)

	s.mu.Lock()
	hooks := append([]func(*attempt.Session, attempt.Snapshot){}, s.completion...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(sess, snap)
	}
}

// Start opens an attempt of quizID for the user. An unfinished attempt of
// the same quiz is resumed; any other running attempt is abandoned.
func (s *AttemptService) Start(actor Actor, quizID string) (attempt.View, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attempt.View{}, util.ErrQuizNotFound
	}
	if err != nil {
		return attempt.View{}, err
	}
	if !quiz.PublicVisibility && quiz.OwnerID != actor.UserID && actor.Role != model.Admin {
		return attempt.View{}, util.ErrQuizNotAccessible
	}

	if cur, ok := s.lookup(actor.UserID); ok {
		v := cur.View()
		if v.Quiz != nil && v.Quiz.ID == quizID && cur.Phase() == attempt.InProgress {
			return v, nil
		}
	}

	meta, questions, err := s.QuizRepo.LoadForAttempt(quizID)
	if err != nil {
		return attempt.View{}, err
	}

	sess, err := attempt.StartSession(actor.UserID, meta, questions,
		attempt.WithFeedbackDelay(s.Cfg.FeedbackDelay),
		attempt.WithClock(s.now),
		attempt.WithCompletionHook(s.completed),
	)
	if err != nil {
		return attempt.View{}, err
	}

	s.mu.Lock()
	if prev, ok := s.sessions[actor.UserID]; ok {
		prev.session.Exit()
		monitoring.AttemptEvents.WithLabelValues("abandoned").Inc()
	}
	s.sessions[actor.UserID] = &sessionEntry{session: sess, touched: s.now()}
	monitoring.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	monitoring.AttemptEvents.WithLabelValues("started").Inc()
	return sess.View(), nil
}

func (s *AttemptService) lookup(userID uint) (*attempt.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	e.touched = s.now()
	return e.session, true
}

// Session returns the user's running session.
func (s *AttemptService) Session(userID uint) (*attempt.Session, error) {
	sess, ok := s.lookup(userID)
	if !ok {
		return nil, util.ErrNoActiveAttempt
	}
	return sess, nil
}

func (s *AttemptService) Current(userID uint) (attempt.View, error) {
	sess, err := s.Session(userID)
	if err != nil {
		return attempt.View{}, err
	}
	return sess.View(), nil
}

// Interact forwards one learner action and returns its outcome together
// with the updated view.
func (s *AttemptService) Interact(userID uint, in attempt.Interaction) (attempt.Outcome, attempt.View, error) {
	sess, err := s.Session(userID)
	if err != nil {
		return attempt.Outcome{}, attempt.View{}, err
	}
	out, err := sess.Interact(in)
	if err != nil {
		return out, sess.View(), err
	}
	return out, sess.View(), nil
}

// Exit abandons the user's attempt without persisting anything.
func (s *AttemptService) Exit(userID uint) error {
	s.mu.Lock()
	e, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
		monitoring.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()
	if !ok {
		return util.ErrNoActiveAttempt
	}
	e.session.Exit()
	monitoring.AttemptEvents.WithLabelValues("exited").Inc()
	return nil
}

// release drops sess from the registry if it is still the user's session.
func (s *AttemptService) release(sess *attempt.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sess.UserID]; ok && e.session == sess {
		delete(s.sessions, sess.UserID)
		monitoring.ActiveSessions.Set(float64(len(s.sessions)))
	}
}

// Sweep drops sessions idle for longer than the configured TTL and
// returns how many were removed.
func (s *AttemptService) Sweep() int {
	if s.Cfg.SessionTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.Cfg.SessionTTL)

	var expired []*attempt.Session
	s.mu.Lock()
	for userID, e := range s.sessions {
		if e.touched.Before(cutoff) {
			expired = append(expired, e.session)
			delete(s.sessions, userID)
		}
	}
	monitoring.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Exit()
		monitoring.AttemptEvents.WithLabelValues("expired").Inc()
	}
	if len(expired) > 0 {
		logger.Log.Info("Expired idle attempts", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Shutdown exits every session, cancelling pending advances.
func (s *AttemptService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uint]*sessionEntry)
	s.mu.Unlock()
	for _, e := range sessions {
		e.session.Exit()
	}
	monitoring.ActiveSessions.Set(0)
}
