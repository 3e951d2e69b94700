package repository

import (
	"testing"
	"time"

	"watchlearn/internal/attempt"
	"watchlearn/internal/config"
	"watchlearn/internal/model"
	"watchlearn/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "release")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Password: "x", Role: model.Student}
	require.NoError(t, NewUserRepository(db).Create(u))
	return u
}

func createQuiz(t *testing.T, db *gorm.DB, owner uint) (*model.Quiz, *QuizRepository) {
	t.Helper()
	repo := NewQuizRepository(db)
	quiz := &model.Quiz{OwnerID: owner, Name: "Cells", PublicVisibility: true}
	require.NoError(t, repo.Create(quiz))
	return quiz, repo
}

func TestQuizRepository_LoadForAttempt(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "lecturer")
	quiz, repo := createQuiz(t, db, owner.ID)

	mcq := &model.QuizQuestion{
		QuizID:   quiz.ID,
		Type:     "image-hotspot",
		Text:     "Where is the nucleus?",
		IsActive: true,
		Options: []model.QuestionOption{
			{Text: "here", IsCorrect: true, IsActive: true},
			{Text: "there", IsActive: true},
		},
	}
	require.NoError(t, repo.AddQuestion(mcq))

	pairs := &model.QuizQuestion{
		QuizID:   quiz.ID,
		Type:     string(attempt.PictureToPicture),
		Text:     "Match",
		IsActive: true,
		Options: []model.QuestionOption{
			{URL: "a.png", IsActive: true},
			{URL: "b.png", IsActive: true},
		},
		Matches: []model.QuestionMatch{{LeftOptionID: "#0", RightOptionID: "#1"}},
	}
	require.NoError(t, repo.AddQuestion(pairs))
	assert.Equal(t, 1, pairs.Position)

	hidden := &model.QuizQuestion{QuizID: quiz.ID, Type: string(attempt.Slideshow), Text: "draft", IsActive: true,
		Options: []model.QuestionOption{{Text: "ok", IsCorrect: true, IsActive: true}}}
	require.NoError(t, repo.AddQuestion(hidden))
	require.NoError(t, repo.SetQuestionActive(hidden.ID, false))

	meta, questions, err := repo.LoadForAttempt(quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cells", meta.Name)
	require.Len(t, questions, 2)

	assert.Equal(t, attempt.HotspotMCQ, questions[0].Type)
	require.NoError(t, questions[0].Validate())

	assert.Equal(t, attempt.PictureToPicture, questions[1].Type)
	require.Len(t, questions[1].Matches, 1)
	assert.Equal(t, pairs.Options[0].ID, questions[1].Matches[0].Left)
	assert.Equal(t, pairs.Options[1].ID, questions[1].Matches[0].Right)
	require.NoError(t, questions[1].Validate())
}

func TestQuizRepository_AddQuestionRejectsBadMatchRef(t *testing.T) {
	db := newTestDB(t)
	quiz, repo := createQuiz(t, db, createUser(t, db, "owner").ID)

	q := &model.QuizQuestion{
		QuizID:  quiz.ID,
		Type:    string(attempt.PictureToPicture),
		Options: []model.QuestionOption{{URL: "a.png", IsActive: true}},
		Matches: []model.QuestionMatch{{LeftOptionID: "#0", RightOptionID: "#5"}},
	}
	require.ErrorIs(t, repo.AddQuestion(q), attempt.ErrInvalidQuestion)

	var count int64
	db.Model(&model.QuizQuestion{}).Count(&count)
	assert.Zero(t, count)
}

func TestQuizRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	quiz, repo := createQuiz(t, db, createUser(t, db, "owner").ID)
	require.NoError(t, repo.AddQuestion(&model.QuizQuestion{QuizID: quiz.ID, Type: "video", IsActive: true,
		Options: []model.QuestionOption{{Text: "a", IsCorrect: true, IsActive: true}}}))

	require.NoError(t, repo.Delete(quiz.ID))

	_, err := repo.FindByID(quiz.ID)
	assert.True(t, IsNotFound(err))
	var options int64
	db.Model(&model.QuestionOption{}).Count(&options)
	assert.Zero(t, options)
}

func TestAttemptRepository_IdempotentWrites(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "learner")
	quiz, _ := createQuiz(t, db, user.ID)
	repo := NewAttemptRepository(db)

	now := time.Now()
	a := &model.QuizAttempt{
		ID:               model.GenerateUUID(),
		QuizID:           quiz.ID,
		UserID:           user.ID,
		StartedAt:        now.Add(-time.Minute),
		CompletedAt:      now,
		CorrectQuestions: 2,
		TotalQuestions:   3,
		DifficultyRating: 4,
	}
	written, err := repo.SaveAttempt(a)
	require.NoError(t, err)
	assert.True(t, written)

	replay := *a
	written, err = repo.SaveAttempt(&replay)
	require.NoError(t, err)
	assert.False(t, written)

	answer := func() *model.QuestionAttempt {
		return &model.QuestionAttempt{AttemptID: a.ID, QuestionID: "q1", IsCorrect: true}
	}
	written, err = repo.SaveAnswer(answer())
	require.NoError(t, err)
	assert.True(t, written)
	written, err = repo.SaveAnswer(answer())
	require.NoError(t, err)
	assert.False(t, written)

	answers, err := repo.Answers(a.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 1)

	avg, ok, err := repo.AverageRating(quiz.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, avg, 0.001)

	_, ok, err = repo.AverageRating("unrated")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := repo.StatsByOwner(user.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Attempts)
	assert.InDelta(t, 2.0/3.0, stats[0].AverageScore, 0.001)
}

func TestGamificationRepository_ApplyStreak(t *testing.T) {
	db := newTestDB(t)
	repo := NewGamificationRepository(db)
	user := createUser(t, db, "streaker")
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	s, err := repo.ApplyStreak(user.ID, "a1", day)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)

	// replay of the same attempt
	s, err = repo.ApplyStreak(user.ID, "a1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)

	s, err = repo.ApplyStreak(user.ID, "a2", day.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)

	s, err = repo.ApplyStreak(user.ID, "a3", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)

	s, err = repo.ApplyStreak(user.ID, "a4", day.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)

	current, err := repo.CurrentStreak(user.ID, day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, current.CurrentStreak)
	current, err = repo.CurrentStreak(user.ID, day.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 0, current.CurrentStreak)
}

func TestGamificationRepository_AwardXP(t *testing.T) {
	db := newTestDB(t)
	repo := NewGamificationRepository(db)
	badges := NewBadgeRepository(db)
	user := createUser(t, db, "earner")

	require.NoError(t, badges.Create(&model.Badge{Name: "Starter", XPThreshold: 10, IsActive: true}))
	require.NoError(t, badges.Create(&model.Badge{Name: "Expert", XPThreshold: 100, IsActive: true}))
	require.NoError(t, badges.Create(&model.Badge{Name: "Retired", XPThreshold: 0, IsActive: false}))

	award, err := repo.AwardXP("xp-1", user.ID, 40, "quiz", "a1")
	require.NoError(t, err)
	assert.True(t, award.Applied)
	assert.Equal(t, 40, award.TotalXP)
	require.Len(t, award.NewBadges, 1)
	assert.Equal(t, "Starter", award.NewBadges[0].Name)

	award, err = repo.AwardXP("xp-1", user.ID, 40, "quiz", "a1")
	require.NoError(t, err)
	assert.False(t, award.Applied)
	assert.Equal(t, 40, award.TotalXP)
	assert.Empty(t, award.NewBadges)

	award, err = repo.AwardXP("xp-2", user.ID, 70, "quiz", "a2")
	require.NoError(t, err)
	assert.Equal(t, 110, award.TotalXP)
	require.Len(t, award.NewBadges, 1)
	assert.Equal(t, "Expert", award.NewBadges[0].Name)

	owned, err := repo.UserBadges(user.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	total, err := repo.TotalXP(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 110, total)
}

func TestGamificationRepository_Leaderboard(t *testing.T) {
	db := newTestDB(t)
	repo := NewGamificationRepository(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := repo.AwardXP("x1", alice.ID, 30, "quiz", "")
	require.NoError(t, err)
	_, err = repo.AwardXP("x2", bob.ID, 50, "quiz", "")
	require.NoError(t, err)
	_, err = repo.AwardXP("x3", alice.ID, 40, "quiz", "")
	require.NoError(t, err)

	rows, err := repo.Leaderboard(time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, alice.ID, rows[0].UserID)
	assert.Equal(t, 70, rows[0].XP)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "bob", rows[1].Name)

	rows, err = repo.Leaderboard(time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUserRepository_BanLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	user := createUser(t, db, "troll")

	ban, err := repo.FindBan(user.ID)
	require.NoError(t, err)
	assert.Nil(t, ban)

	require.NoError(t, repo.Ban(&model.Ban{UserID: user.ID, AdminID: 1, Reason: "spam", BannedAt: time.Now()}))
	require.NoError(t, repo.Ban(&model.Ban{UserID: user.ID, AdminID: 1, Reason: "more spam", BannedAt: time.Now()}))

	ban, err = repo.FindBan(user.ID)
	require.NoError(t, err)
	require.NotNil(t, ban)
	assert.Equal(t, "more spam", ban.Reason)

	require.NoError(t, repo.Unban(user.ID))
	ban, err = repo.FindBan(user.ID)
	require.NoError(t, err)
	assert.Nil(t, ban)

	taken, err := repo.UsernameTaken("nobody", 0)
	require.NoError(t, err)
	assert.False(t, taken)

	require.ErrorIs(t, repo.SetApproved(9999, true), gorm.ErrRecordNotFound)
}
