package controller

import (
	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// @Summary List public quizzes
// @Tags quizzes
// @Produce json
// @Security BearerAuth
// @Param search query string false "name filter"
// @Success 200 {object} util.Response
// @Router /api/quizzes [get]
func (c *QuizController) ListPublic(ctx *gin.Context) {
	quizzes, err := c.QuizService.ListPublic(ctx.Query("search"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary Quiz detail
// @Description Creator, question count and the average difficulty rating
// @Tags quizzes
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Success 200 {object} util.Response{data=service.QuizDetail}
// @Failure 403 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) Detail(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	detail, err := c.QuizService.Detail(actor, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// @Summary List my quizzes
// @Tags authoring
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes [get]
func (c *QuizController) ListMine(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	quizzes, err := c.QuizService.ListMine(actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary Create a quiz
// @Tags authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param quiz body service.QuizRequest true "quiz"
// @Success 201 {object} util.Response
// @Router /api/lecturer/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizService.CreateQuiz(actor, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// @Summary Get a quiz for editing
// @Tags authoring
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes/{id} [get]
func (c *QuizController) GetForEdit(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	quiz, err := c.QuizService.GetForEdit(actor, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary Update a quiz
// @Tags authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param quiz body service.QuizRequest true "quiz"
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizService.UpdateQuiz(actor, ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

type visibilityRequest struct {
	Public *bool `json:"public" binding:"required"`
}

// @Summary Publish or hide a quiz
// @Tags authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param body body visibilityRequest true "visibility"
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes/{id}/visibility [put]
func (c *QuizController) SetVisibility(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.QuizService.SetVisibility(actor, ctx.Param("id"), *req.Public); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"public": *req.Public})
}

// @Summary Delete a quiz
// @Tags authoring
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.QuizService.DeleteQuiz(actor, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Add a question
// @Description Matches reference options by their index in the request
// @Tags authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param question body service.QuestionRequest true "question"
// @Success 201 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/lecturer/quizzes/{id}/questions [post]
func (c *QuizController) AddQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.QuizService.AddQuestion(actor, ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// @Summary Enable or disable a question
// @Tags authoring
// @Accept json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param qid path string true "question id"
// @Param body body activeRequest true "state"
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes/{id}/questions/{qid}/active [put]
func (c *QuizController) SetQuestionActive(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req activeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.QuizService.SetQuestionActive(actor, ctx.Param("id"), ctx.Param("qid"), *req.Active); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"active": *req.Active})
}

// @Summary Delete a question
// @Tags authoring
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param qid path string true "question id"
// @Success 200 {object} util.Response
// @Router /api/lecturer/quizzes/{id}/questions/{qid} [delete]
func (c *QuizController) DeleteQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.QuizService.DeleteQuestion(actor, ctx.Param("id"), ctx.Param("qid")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Upload a question image
// @Tags authoring
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param qid path string true "question id"
// @Param file formData file true "image"
// @Success 201 {object} util.Response
// @Router /api/lecturer/quizzes/{id}/questions/{qid}/images [post]
func (c *QuizController) UploadImage(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	media, err := c.QuizService.UploadQuestionImage(ctx.Request.Context(), actor, ctx.Param("id"), ctx.Param("qid"), file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, media)
}

// @Summary Upload a question video
// @Description The poster frame and duration are extracted with ffmpeg when enabled
// @Tags authoring
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "quiz id"
// @Param qid path string true "question id"
// @Param file formData file true "video"
// @Success 201 {object} util.Response
// @Router /api/lecturer/quizzes/{id}/questions/{qid}/video [post]
func (c *QuizController) UploadVideo(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	media, err := c.QuizService.UploadQuestionVideo(ctx.Request.Context(), actor, ctx.Param("id"), ctx.Param("qid"), file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, media)
}
