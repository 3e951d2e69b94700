package controller

import (
	"watchlearn/internal/attempt"
	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

// AttemptController drives the caller's single live attempt.
type AttemptController struct {
	Attempts    *service.AttemptService
	Submissions *service.SubmissionService
	Dashboard   *service.DashboardService
}

func NewAttemptController(attempts *service.AttemptService, submissions *service.SubmissionService, dashboard *service.DashboardService) *AttemptController {
	return &AttemptController{Attempts: attempts, Submissions: submissions, Dashboard: dashboard}
}

type startRequest struct {
	QuizID string `json:"quizId" binding:"required"`
}

// @Summary Start or resume an attempt
// @Description Starting a different quiz abandons the caller's current attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body startRequest true "quiz"
// @Success 200 {object} util.Response{data=attempt.View}
// @Failure 422 {object} util.Response "quiz has no active questions"
// @Router /api/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req startRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.Attempts.Start(actor, req.QuizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Current attempt
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=attempt.View}
// @Failure 404 {object} util.Response
// @Router /api/attempts/current [get]
func (c *AttemptController) Current(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	view, err := c.Attempts.Current(actor.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Interact with the active question
// @Description action is one of select, click, pick, place, submit, reset, slide
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body attempt.Interaction true "interaction"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/current/interactions [post]
func (c *AttemptController) Interact(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var in attempt.Interaction
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	outcome, view, err := c.Attempts.Interact(actor.UserID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"outcome": outcome, "attempt": view})
}

// @Summary Leave the current attempt
// @Description Nothing is persisted for an attempt that is exited before submit
// @Tags attempts
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/attempts/current [delete]
func (c *AttemptController) Exit(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.Attempts.Exit(actor.UserID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type submitRequest struct {
	Rating int `json:"rating"`
}

// @Summary Submit the completed attempt
// @Description rating is the perceived difficulty, 1 to 5
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body submitRequest true "difficulty rating"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "attempt not completed or already submitted"
// @Router /api/attempts/current/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.Submissions.Submit(ctx.Request.Context(), actor.UserID, req.Rating)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Attempt summary
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "attempt id"
// @Success 200 {object} util.Response{data=service.AttemptSummary}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Summary(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	summary, err := c.Dashboard.Summary(actor.UserID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
