package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"watchlearn/internal/model"
	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker map[uint]*service.AccessStatus

func (f fakeChecker) AccessStatus(userID uint) (*service.AccessStatus, error) {
	if s, ok := f[userID]; ok {
		return s, nil
	}
	return nil, util.ErrUserNotFound
}

func token(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func router(checker AccessChecker, roles ...model.UserRole) *gin.Engine {
	r := gin.New()
	r.GET("/", AuthMiddleware(secret), AccessMiddleware(checker), RoleMiddleware(roles...), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	return r
}

func do(r *gin.Engine, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := router(fakeChecker{1: {Role: model.Student, Approved: true}}, model.Student)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)
	assert.Equal(t, http.StatusOK, do(r, token(t, 1, model.Student)).Code)

	// valid token for a deleted user
	assert.Equal(t, http.StatusUnauthorized, do(r, token(t, 2, model.Student)).Code)

	req := httptest.NewRequest(http.MethodGet, "/?token="+token(t, 1, model.Student), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleMiddleware(t *testing.T) {
	checker := fakeChecker{
		1: {Role: model.Student, Approved: true},
		2: {Role: model.Admin, Approved: true},
		3: {Role: model.Lecturer, Approved: true},
	}
	r := router(checker, model.Lecturer)

	assert.Equal(t, http.StatusForbidden, do(r, token(t, 1, model.Student)).Code)
	assert.Equal(t, http.StatusOK, do(r, token(t, 2, model.Admin)).Code)
	assert.Equal(t, http.StatusOK, do(r, token(t, 3, model.Lecturer)).Code)
}

func TestAccessMiddleware(t *testing.T) {
	bannedAt := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	checker := fakeChecker{
		1: {Role: model.Student, Ban: &model.Ban{Reason: "spam", BannedAt: bannedAt}},
		2: {Role: model.Lecturer, Approved: false},
	}
	r := router(checker, model.Student, model.Lecturer)

	w := do(r, token(t, 1, model.Student))
	require.Equal(t, http.StatusForbidden, w.Code)
	var body struct {
		Message string `json:"message"`
		Data    struct {
			Reason   string    `json:"reason"`
			BannedAt time.Time `json:"bannedAt"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, util.ErrUserBanned.Error(), body.Message)
	assert.Equal(t, "spam", body.Data.Reason)
	assert.True(t, bannedAt.Equal(body.Data.BannedAt))

	w = do(r, token(t, 2, model.Lecturer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), util.ErrNotApproved.Error())
}
