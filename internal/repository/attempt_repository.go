package repository

import (
	"database/sql"
	"time"

	"watchlearn/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// SaveAttempt inserts the attempt row. Replaying the same attempt id is a
// no-op; the return value reports whether a row was written.
func (r *AttemptRepository) SaveAttempt(a *model.QuizAttempt) (bool, error) {
	res := r.DB.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a)
	return res.RowsAffected > 0, res.Error
}

// SaveAnswer inserts one answer row, keyed by (attempt, question).
func (r *AttemptRepository) SaveAnswer(a *model.QuestionAttempt) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoNothing: true,
	}).Create(a)
	return res.RowsAffected > 0, res.Error
}

func (r *AttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.Preload("Quiz").First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) Answers(attemptID string) ([]model.QuestionAttempt, error) {
	var answers []model.QuestionAttempt
	err := r.DB.Where("attempt_id = ?", attemptID).Order("position ASC").Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) ListByUser(userID uint, limit int) ([]model.QuizAttempt, error) {
	query := r.DB.Preload("Quiz").Where("user_id = ?", userID).Order("completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var attempts []model.QuizAttempt
	err := query.Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountByUser(userID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.QuizAttempt{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// AverageRating is the mean difficulty rating of a quiz, ignoring unrated
// attempts. ok is false when nobody rated it yet.
func (r *AttemptRepository) AverageRating(quizID string) (avg float64, ok bool, err error) {
	var v sql.NullFloat64
	err = r.DB.Model(&model.QuizAttempt{}).
		Select("AVG(difficulty_rating)").
		Where("quiz_id = ? AND difficulty_rating > 0", quizID).
		Row().Scan(&v)
	return v.Float64, v.Valid, err
}

// AttemptScore is the per-attempt score used by dashboards.
type AttemptScore struct {
	CorrectQuestions int
	TotalQuestions   int
	CompletedAt      time.Time
}

func (r *AttemptRepository) Scores(userID uint) ([]AttemptScore, error) {
	var scores []AttemptScore
	err := r.DB.Model(&model.QuizAttempt{}).
		Select("correct_questions, total_questions, completed_at").
		Where("user_id = ?", userID).
		Order("completed_at ASC").
		Scan(&scores).Error
	return scores, err
}

// QuizStats summarises the attempts made on the quizzes of one owner.
type QuizStats struct {
	QuizID       string  `json:"quizId"`
	Name         string  `json:"name"`
	Attempts     int64   `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
}

func (r *AttemptRepository) StatsByOwner(ownerID uint) ([]QuizStats, error) {
	var stats []QuizStats
	err := r.DB.Table("quizzes").
		Select(`quizzes.id AS quiz_id, quizzes.name AS name,
			COUNT(quiz_attempts.id) AS attempts,
			COALESCE(AVG(CASE WHEN quiz_attempts.total_questions > 0
				THEN quiz_attempts.correct_questions * 1.0 / quiz_attempts.total_questions END), 0) AS average_score`).
		Joins("LEFT JOIN quiz_attempts ON quiz_attempts.quiz_id = quizzes.id").
		Where("quizzes.owner_id = ? AND quizzes.deleted_at IS NULL", ownerID).
		Group("quizzes.id, quizzes.name").
		Order("attempts DESC").
		Scan(&stats).Error
	return stats, err
}
