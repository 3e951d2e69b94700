package service

import (
	"errors"
	"time"

	"watchlearn/internal/attempt"
	"watchlearn/internal/model"
	"watchlearn/internal/repository"
	"watchlearn/internal/util"

	"gorm.io/gorm"
)

type DashboardService struct {
	AttemptRepo  *repository.AttemptRepository
	Gamification *repository.GamificationRepository
	UserRepo     *repository.UserRepository
	now          func() time.Time
}

func NewDashboardService(
	attemptRepo *repository.AttemptRepository,
	gamification *repository.GamificationRepository,
	userRepo *repository.UserRepository,
) *DashboardService {
	return &DashboardService{
		AttemptRepo:  attemptRepo,
		Gamification: gamification,
		UserRepo:     userRepo,
		now:          time.Now,
	}
}

type DayXP struct {
	Date string `json:"date"`
	XP   int    `json:"xp"`
}

type Dashboard struct {
	CurrentStreak  int                 `json:"currentStreak"`
	LongestStreak  int                 `json:"longestStreak"`
	TotalXP        int                 `json:"totalXp"`
	AttemptCount   int64               `json:"attemptCount"`
	AverageScore   float64             `json:"averageScore"`
	Badges         []model.UserBadge   `json:"badges"`
	Month          string              `json:"month"`
	XPByDay        []DayXP             `json:"xpByDay"`
	RecentAttempts []model.QuizAttempt `json:"recentAttempts"`
}

// StudentDashboard gathers the learner's progress. month is "2006-01";
// empty means the current month.
func (s *DashboardService) StudentDashboard(userID uint, month string) (*Dashboard, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if month != "" {
		parsed, err := time.Parse(util.MonthFormat, month)
		if err != nil {
			return nil, err
		}
		start = parsed
	}
	end := start.AddDate(0, 1, 0)

	streak, err := s.Gamification.CurrentStreak(userID, now)
	if err != nil {
		return nil, err
	}
	total, err := s.Gamification.TotalXP(userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Gamification.UserBadges(userID)
	if err != nil {
		return nil, err
	}
	scores, err := s.AttemptRepo.Scores(userID)
	if err != nil {
		return nil, err
	}
	days, err := s.Gamification.XPByDay(userID, start, end)
	if err != nil {
		return nil, err
	}
	recent, err := s.AttemptRepo.ListByUser(userID, 5)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		CurrentStreak:  streak.CurrentStreak,
		LongestStreak:  streak.LongestStreak,
		TotalXP:        total,
		AttemptCount:   int64(len(scores)),
		AverageScore:   averageScore(scores),
		Badges:         badges,
		Month:          start.Format(util.MonthFormat),
		RecentAttempts: recent,
	}
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(util.DateFormat)
		d.XPByDay = append(d.XPByDay, DayXP{Date: key, XP: days[key]})
	}
	return d, nil
}

// averageScore is the mean fraction of correct answers per attempt.
func averageScore(scores []repository.AttemptScore) float64 {
	sum, n := 0.0, 0
	for _, sc := range scores {
		if sc.TotalQuestions == 0 {
			continue
		}
		sum += float64(sc.CorrectQuestions) / float64(sc.TotalQuestions)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

type AttemptSummary struct {
	Attempt       *model.QuizAttempt      `json:"attempt"`
	Answers       []model.QuestionAttempt `json:"answers"`
	XPEarned      int                     `json:"xpEarned"`
	Creator       string                  `json:"creator"`
	AverageRating *float64                `json:"averageRating"`
}

// Summary shows one stored attempt to its owner. XP is recomputed from the
// stored timestamps so the figure matches what was awarded.
func (s *DashboardService) Summary(userID uint, attemptID string) (*AttemptSummary, error) {
	a, err := s.AttemptRepo.FindByID(attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, util.ErrAttemptNotFound
	}

	answers, err := s.AttemptRepo.Answers(attemptID)
	if err != nil {
		return nil, err
	}
	summary := &AttemptSummary{
		Attempt:  a,
		Answers:  answers,
		XPEarned: attempt.ComputeXP(a.CorrectQuestions, a.CompletedAt.Sub(a.StartedAt)),
	}
	if owner, err := s.UserRepo.FindByID(a.Quiz.OwnerID); err == nil {
		summary.Creator = owner.Name
	}
	if avg, ok, err := s.AttemptRepo.AverageRating(a.QuizID); err != nil {
		return nil, err
	} else if ok {
		summary.AverageRating = &avg
	}
	return summary, nil
}

// LecturerStats summarises attempts on the lecturer's quizzes.
func (s *DashboardService) LecturerStats(ownerID uint) ([]repository.QuizStats, error) {
	return s.AttemptRepo.StatsByOwner(ownerID)
}
