package controller

import (
	"errors"
	"net/http"

	"watchlearn/internal/attempt"
	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrQuizNotFound, http.StatusNotFound},
	{util.ErrQuestionNotFound, http.StatusNotFound},
	{util.ErrAttemptNotFound, http.StatusNotFound},
	{util.ErrBadgeNotFound, http.StatusNotFound},
	{util.ErrNoActiveAttempt, http.StatusNotFound},
	{util.ErrEmailRegistered, http.StatusConflict},
	{util.ErrUsernameTaken, http.StatusConflict},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrQuizNotAccessible, http.StatusForbidden},
	{util.ErrUserBanned, http.StatusForbidden},
	{util.ErrNotApproved, http.StatusForbidden},
	{util.ErrInvalidRating, http.StatusBadRequest},
	{util.ErrInvalidFileType, http.StatusBadRequest},
	{util.ErrInvalidPeriod, http.StatusBadRequest},

	{attempt.ErrUnknownQuestionType, http.StatusUnprocessableEntity},
	{attempt.ErrInvalidQuestion, http.StatusUnprocessableEntity},
	{attempt.ErrNoQuestions, http.StatusUnprocessableEntity},
	{attempt.ErrDuplicateQuestion, http.StatusUnprocessableEntity},
	{attempt.ErrUnknownOption, http.StatusBadRequest},
	{attempt.ErrUnsupportedAction, http.StatusBadRequest},
	{attempt.ErrNoLabelSelected, http.StatusBadRequest},
	{attempt.ErrNothingPlaced, http.StatusBadRequest},
	{attempt.ErrAttemptInProgress, http.StatusConflict},
	{attempt.ErrNotInProgress, http.StatusConflict},
	{attempt.ErrAttemptCompleted, http.StatusConflict},
	{attempt.ErrAlreadyAnswered, http.StatusConflict},
	{attempt.ErrQuestionMismatch, http.StatusConflict},
	{attempt.ErrQuestionResolved, http.StatusConflict},
	{attempt.ErrAdvancePending, http.StatusConflict},
	{attempt.ErrNotCompleted, http.StatusConflict},
	{attempt.ErrAlreadySubmitted, http.StatusConflict},
	{attempt.ErrSessionClosed, http.StatusConflict},
}

// respondError maps domain errors onto HTTP statuses; anything unknown is
// logged and reported as 500.
func respondError(ctx *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			util.Error(ctx, e.status, err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}

func currentActor(ctx *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role}, true
}
