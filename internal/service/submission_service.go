package service

import (
	"context"
	"fmt"
	"time"

	"watchlearn/internal/attempt"
	"watchlearn/internal/config"
	"watchlearn/internal/model"
	"watchlearn/internal/outbox"
	"watchlearn/internal/repository"
	"watchlearn/internal/util"
	"watchlearn/pkg/logger"
	"watchlearn/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type attemptJob struct {
	AttemptID   string    `json:"attemptId"`
	QuizID      string    `json:"quizId"`
	UserID      uint      `json:"userId"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	Rating      int       `json:"rating"`
	XP          int       `json:"xp"`
}

type answerJob struct {
	AttemptID string               `json:"attemptId"`
	Position  int                  `json:"position"`
	Record    attempt.AnswerRecord `json:"record"`
}

type streakJob struct {
	UserID      uint      `json:"userId"`
	AttemptID   string    `json:"attemptId"`
	CompletedAt time.Time `json:"completedAt"`
}

type xpJob struct {
	EntryID   string `json:"entryId"`
	UserID    uint   `json:"userId"`
	Amount    int    `json:"amount"`
	AttemptID string `json:"attemptId"`
}

// SubmitResult is returned to the learner as soon as the writes are journaled.
type SubmitResult struct {
	AttemptID    string `json:"attemptId"`
	CorrectCount int    `json:"correctCount"`
	Total        int    `json:"total"`
	XPEarned     int    `json:"xpEarned"`
	ElapsedMs    int64  `json:"elapsedMs"`
}

// SubmissionService turns a completed session into outbox jobs and owns
// the handlers that apply them.
type SubmissionService struct {
	Attempts     *AttemptService
	AttemptRepo  *repository.AttemptRepository
	Gamification *repository.GamificationRepository
	Leaderboard  *LeaderboardService
	Drainer      *outbox.Drainer
	Cfg          *config.AttemptConfig
}

func NewSubmissionService(
	attempts *AttemptService,
	attemptRepo *repository.AttemptRepository,
	gamification *repository.GamificationRepository,
	leaderboard *LeaderboardService,
	drainer *outbox.Drainer,
	cfg *config.AttemptConfig,
) *SubmissionService {
	s := &SubmissionService{
		Attempts:     attempts,
		AttemptRepo:  attemptRepo,
		Gamification: gamification,
		Leaderboard:  leaderboard,
		Drainer:      drainer,
		Cfg:          cfg,
	}
	drainer.Register(outbox.KindAttempt, s.applyAttempt)
	drainer.Register(outbox.KindAnswer, s.applyAnswer)
	drainer.Register(outbox.KindStreak, s.applyStreak)
	drainer.Register(outbox.KindXP, s.applyXP)

	if !cfg.RequireRating {
		attempts.OnCompletion(s.autoSubmit)
	}
	return s
}

func (s *SubmissionService) validRating(rating int) bool {
	if rating >= 1 && rating <= 5 {
		return true
	}
	return rating == 0 && !s.Cfg.RequireRating
}

// Submit persists the user's completed attempt with the given difficulty
// rating. It succeeds once per attempt.
func (s *SubmissionService) Submit(ctx context.Context, userID uint, rating int) (*SubmitResult, error) {
	if !s.validRating(rating) {
		return nil, util.ErrInvalidRating
	}
	sess, err := s.Attempts.Session(userID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, sess, rating)
}

func (s *SubmissionService) autoSubmit(sess *attempt.Session, _ attempt.Snapshot) {
	if _, err := s.submit(context.Background(), sess, 0); err != nil {
		logger.Log.Error("Automatic submit failed", zap.String("attemptId", sess.ID), zap.Error(err))
	}
}

func (s *SubmissionService) submit(ctx context.Context, sess *attempt.Session, rating int) (*SubmitResult, error) {
	var (
		jobs   []outbox.Job
		result *SubmitResult
	)
	// the session only counts as submitted once its writes are journaled
	_, err := sess.MarkSubmitted(func(snap attempt.Snapshot) error {
		var err error
		jobs, result, err = buildJobs(sess, snap, rating)
		if err != nil {
			return err
		}
		if err := s.Drainer.Enqueue(ctx, jobs...); err != nil {
			logger.Log.Error("Failed to journal attempt",
				zap.String("attemptId", sess.ID),
				zap.Uint("userId", sess.UserID),
				zap.Int("correct", result.CorrectCount),
				zap.Int("xp", result.XPEarned),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Attempts.release(sess)
	sess.Exit()

	monitoring.AttemptEvents.WithLabelValues("submitted").Inc()
	logger.Log.Info("Attempt submitted",
		zap.String("attemptId", sess.ID),
		zap.Uint("userId", sess.UserID),
		zap.Int("jobs", len(jobs)),
	)
	return result, nil
}

// buildJobs orders the writes so the attempt row lands before its answers.
func buildJobs(sess *attempt.Session, snap attempt.Snapshot, rating int) ([]outbox.Job, *SubmitResult, error) {
	correct := snap.CorrectCount()
	elapsed := snap.Elapsed()
	xp := attempt.ComputeXP(correct, elapsed)

	quizID := ""
	if snap.Quiz != nil {
		quizID = snap.Quiz.ID
	}

	var jobs []outbox.Job
	add := func(kind outbox.Kind, payload interface{}) error {
		job, err := outbox.NewJob(kind, payload)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
		return nil
	}

	if err := add(outbox.KindAttempt, attemptJob{
		AttemptID:   sess.ID,
		QuizID:      quizID,
		UserID:      sess.UserID,
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
		Correct:     correct,
		Total:       len(snap.Questions),
		Rating:      rating,
		XP:          xp,
	}); err != nil {
		return nil, nil, err
	}
	for i, rec := range snap.Answers {
		if err := add(outbox.KindAnswer, answerJob{AttemptID: sess.ID, Position: i, Record: rec}); err != nil {
			return nil, nil, err
		}
	}
	if err := add(outbox.KindStreak, streakJob{UserID: sess.UserID, AttemptID: sess.ID, CompletedAt: snap.CompletedAt}); err != nil {
		return nil, nil, err
	}
	if xp > 0 {
		// the ledger id is derived from the attempt so a re-journaled
		// attempt cannot pay out twice
		entry := uuid.NewSHA1(uuid.NameSpaceOID, []byte("xp:"+sess.ID)).String()
		if err := add(outbox.KindXP, xpJob{EntryID: entry, UserID: sess.UserID, Amount: xp, AttemptID: sess.ID}); err != nil {
			return nil, nil, err
		}
	}

	return jobs, &SubmitResult{
		AttemptID:    sess.ID,
		CorrectCount: correct,
		Total:        len(snap.Questions),
		XPEarned:     xp,
		ElapsedMs:    elapsed.Milliseconds(),
	}, nil
}

func (s *SubmissionService) applyAttempt(ctx context.Context, job outbox.Job) error {
	var p attemptJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	_, err := s.AttemptRepo.SaveAttempt(&model.QuizAttempt{
		ID:               p.AttemptID,
		QuizID:           p.QuizID,
		UserID:           p.UserID,
		StartedAt:        p.StartedAt,
		CompletedAt:      p.CompletedAt,
		CorrectQuestions: p.Correct,
		TotalQuestions:   p.Total,
		DifficultyRating: p.Rating,
		XPEarned:         p.XP,
	})
	return err
}

func (s *SubmissionService) applyAnswer(ctx context.Context, job outbox.Job) error {
	var p answerJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	if p.Record.QuestionID == "" {
		return outbox.Permanent(fmt.Errorf("answer job %s has no question id", job.ID))
	}
	_, err := s.AttemptRepo.SaveAnswer(&model.QuestionAttempt{
		AttemptID:        p.AttemptID,
		QuestionID:       p.Record.QuestionID,
		Position:         p.Position,
		SelectedOptionID: p.Record.SelectedOption,
		CorrectOptionID:  p.Record.CorrectOption,
		IsCorrect:        p.Record.IsCorrect,
		MistakeCount:     p.Record.MistakeCount,
	})
	return err
}

func (s *SubmissionService) applyStreak(ctx context.Context, job outbox.Job) error {
	var p streakJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	_, err := s.Gamification.ApplyStreak(p.UserID, p.AttemptID, p.CompletedAt)
	return err
}

func (s *SubmissionService) applyXP(ctx context.Context, job outbox.Job) error {
	var p xpJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	award, err := s.Gamification.AwardXP(p.EntryID, p.UserID, p.Amount, "quiz_attempt", p.AttemptID)
	if err != nil {
		return err
	}
	if !award.Applied {
		return nil
	}

	monitoring.XPAwarded.Add(float64(p.Amount))
	for _, b := range award.NewBadges {
		logger.Log.Info("Badge awarded",
			zap.Uint("userId", p.UserID),
			zap.Uint("badgeId", b.ID),
			zap.String("badge", b.Name),
		)
	}
	if s.Leaderboard != nil {
		s.Leaderboard.Invalidate(ctx)
	}
	return nil
}
