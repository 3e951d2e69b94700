package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"watchlearn/internal/attempt"
	"watchlearn/internal/config"
	"watchlearn/internal/middleware"
	"watchlearn/internal/outbox"
	"watchlearn/internal/repository"
	"watchlearn/internal/service"
	"watchlearn/internal/util"
	"watchlearn/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router  *gin.Engine
	drainer *outbox.Drainer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "release")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		Attempt: config.AttemptConfig{RequireRating: true, SessionTTL: time.Hour},
		Media:   config.MediaConfig{TempDir: t.TempDir()},
	}

	userRepo := repository.NewUserRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	gamification := repository.NewGamificationRepository(db)

	media := service.NewMediaService(service.NewStorageService(cfg), &cfg.Media)
	drainer := outbox.NewDrainer(outbox.NewMemoryJournal(),
		outbox.Policy{BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond, MaxAttempts: 2},
		outbox.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	leaderboard := service.NewLeaderboardService(gamification, nil, time.Minute, 10)
	attempts := service.NewAttemptService(quizRepo, &cfg.Attempt)
	t.Cleanup(attempts.Shutdown)
	submissions := service.NewSubmissionService(attempts, attemptRepo, gamification, leaderboard, drainer, &cfg.Attempt)
	dashboard := service.NewDashboardService(attemptRepo, gamification, userRepo)

	authCtl := NewAuthController(service.NewAuthService(userRepo, cfg))
	quizCtl := NewQuizController(service.NewQuizService(quizRepo, attemptRepo, media))
	attemptCtl := NewAttemptController(attempts, submissions, dashboard)
	leaderboardCtl := NewLeaderboardController(leaderboard)
	outboxCtl := NewOutboxController(drainer)

	r := gin.New()
	r.POST("/api/register", authCtl.Register)
	r.POST("/api/login", authCtl.Login)

	api := r.Group("/api", middleware.AuthMiddleware(testSecret))
	api.GET("/me", authCtl.Me)
	api.GET("/quizzes/:id", quizCtl.Detail)
	api.POST("/lecturer/quizzes", quizCtl.Create)
	api.POST("/lecturer/quizzes/:id/questions", quizCtl.AddQuestion)
	api.PUT("/lecturer/quizzes/:id/visibility", quizCtl.SetVisibility)
	api.POST("/attempts", attemptCtl.Start)
	api.GET("/attempts/current", attemptCtl.Current)
	api.POST("/attempts/current/interactions", attemptCtl.Interact)
	api.POST("/attempts/current/submit", attemptCtl.Submit)
	api.GET("/attempts/:id", attemptCtl.Summary)
	api.GET("/leaderboard", leaderboardCtl.Get)
	api.GET("/admin/outbox", outboxCtl.Status)

	return &testServer{router: r, drainer: drainer}
}

func (s *testServer) call(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) signUp(t *testing.T, name, role string) string {
	t.Helper()
	email := name + "@example.com"
	code, _ := s.call(t, http.MethodPost, "/api/register", "", gin.H{
		"name": name, "email": email, "password": "password123", "role": role,
	})
	require.Equal(t, http.StatusCreated, code)

	code, env := s.call(t, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login.Token
}

func TestAuthController(t *testing.T) {
	s := newTestServer(t)

	code, env := s.call(t, http.MethodPost, "/api/register", "", gin.H{
		"name": "Ann", "email": "ann@example.com", "password": "password123", "role": "lecturer",
	})
	require.Equal(t, http.StatusCreated, code)
	var reg struct {
		Role     string `json:"role"`
		Approved bool   `json:"approved"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, "lecturer", reg.Role)
	assert.False(t, reg.Approved)

	code, _ = s.call(t, http.MethodPost, "/api/register", "", gin.H{
		"name": "Ann", "email": "ANN@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.call(t, http.MethodPost, "/api/register", "", gin.H{
		"name": "Eve", "email": "eve@example.com", "password": "password123", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.call(t, http.MethodPost, "/api/login", "", gin.H{"email": "ann@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.call(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAttemptFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	lecturer := s.signUp(t, "lecturer", "lecturer")
	student := s.signUp(t, "student", "student")

	code, env := s.call(t, http.MethodPost, "/api/lecturer/quizzes", lecturer, gin.H{"name": "Cells"})
	require.Equal(t, http.StatusCreated, code)
	var quiz struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quiz))

	// two correct options
	code, _ = s.call(t, http.MethodPost, "/api/lecturer/quizzes/"+quiz.ID+"/questions", lecturer, gin.H{
		"questionType": "image-mcq",
		"options":      []gin.H{{"optionText": "a", "isCorrect": true}, {"optionText": "b", "isCorrect": true}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = s.call(t, http.MethodPost, "/api/lecturer/quizzes/"+quiz.ID+"/questions", lecturer, gin.H{
		"questionType": "image-mcq",
		"questionText": "Which is the nucleus?",
		"options":      []gin.H{{"optionText": "this", "isCorrect": true}, {"optionText": "that"}},
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.call(t, http.MethodGet, "/api/quizzes/"+quiz.ID, student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.call(t, http.MethodPut, "/api/lecturer/quizzes/"+quiz.ID+"/visibility", lecturer, gin.H{"public": true})
	require.Equal(t, http.StatusOK, code)

	code, env = s.call(t, http.MethodGet, "/api/quizzes/"+quiz.ID, student, nil)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Creator       string `json:"creator"`
		QuestionCount int    `json:"questionCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "lecturer", detail.Creator)
	assert.Equal(t, 1, detail.QuestionCount)

	code, _ = s.call(t, http.MethodGet, "/api/attempts/current", student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.call(t, http.MethodPost, "/api/attempts", student, gin.H{"quizId": quiz.ID})
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "isCorrect")
	var view attempt.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.Question)

	code, _ = s.call(t, http.MethodPost, "/api/attempts/current/submit", student, gin.H{"rating": 3})
	assert.Equal(t, http.StatusConflict, code)

	var correct string
	for _, o := range view.Question.Options {
		if o.Text == "this" {
			correct = o.ID
		}
	}
	code, env = s.call(t, http.MethodPost, "/api/attempts/current/interactions", student, gin.H{
		"action": "select", "optionId": correct,
	})
	require.Equal(t, http.StatusOK, code)
	var step struct {
		Outcome attempt.Outcome `json:"outcome"`
		Attempt attempt.View    `json:"attempt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &step))
	assert.True(t, step.Outcome.Resolved)
	assert.Equal(t, "completed", step.Attempt.Phase)

	code, _ = s.call(t, http.MethodPost, "/api/attempts/current/submit", student, gin.H{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.call(t, http.MethodPost, "/api/attempts/current/submit", student, gin.H{"rating": 4})
	require.Equal(t, http.StatusOK, code)
	var result service.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 1, result.Total)

	code, env = s.call(t, http.MethodGet, "/api/admin/outbox", lecturer, nil)
	require.Equal(t, http.StatusOK, code)
	var status struct {
		Pending int64 `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, int64(4), status.Pending) // attempt, answer, streak, xp

	_, err := s.drainer.DrainOnce(context.Background())
	require.NoError(t, err)

	code, env = s.call(t, http.MethodGet, "/api/attempts/"+result.AttemptID, student, nil)
	require.Equal(t, http.StatusOK, code)
	var summary struct {
		XPEarned int `json:"xpEarned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, result.XPEarned, summary.XPEarned)

	code, _ = s.call(t, http.MethodGet, "/api/attempts/"+result.AttemptID, lecturer, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.call(t, http.MethodGet, "/api/leaderboard?period=daily", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.call(t, http.MethodGet, "/api/leaderboard", student, nil)
	require.Equal(t, http.StatusOK, code)
	var board service.Leaderboard
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "student", board.Entries[0].Name)
}
