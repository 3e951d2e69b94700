package model

import "time"

// QuizAttempt is a finished, submitted attempt. The id is minted when the
// attempt starts so replays of the same write are no-ops.
type QuizAttempt struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	QuizID           string    `gorm:"type:varchar(36);index;not null" json:"quizId"`
	UserID           uint      `gorm:"index;not null" json:"userId"`
	StartedAt        time.Time `json:"startedAt"`
	CompletedAt      time.Time `json:"completedAt"`
	CorrectQuestions int       `json:"correctQuestions"`
	TotalQuestions   int       `json:"totalQuestions"`
	DifficultyRating int       `json:"difficultyRating"`
	XPEarned         int       `json:"xpEarned"`
	CreatedAt        time.Time `json:"createdAt"`
	Quiz             Quiz      `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

type QuestionAttempt struct {
	BaseModel
	AttemptID        string `gorm:"type:varchar(36);not null;uniqueIndex:idx_attempt_question" json:"attemptId"`
	QuestionID       string `gorm:"type:varchar(36);not null;uniqueIndex:idx_attempt_question" json:"questionId"`
	Position         int    `json:"position"`
	SelectedOptionID string `gorm:"type:varchar(36)" json:"selectedOptionId"`
	CorrectOptionID  string `gorm:"type:varchar(36)" json:"correctOptionId"`
	IsCorrect        bool   `json:"isCorrect"`
	MistakeCount     *int   `json:"mistakeCount"`
}

func (QuestionAttempt) TableName() string {
	return "question_attempts"
}
