package controller

import (
	"errors"
	"io"
	"strconv"

	"watchlearn/internal/repository"
	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// @Summary Complete profile
// @Description Sets the display name and a unique username
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ProfileRequest true "profile"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "username taken"
// @Router /api/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.ProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.CompleteProfile(actor.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// @Summary Upload avatar
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "image"
// @Success 200 {object} util.Response
// @Router /api/profile/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	user, err := c.UserService.UpdateAvatar(ctx.Request.Context(), actor.UserID, file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Param role query string false "student, lecturer or admin"
// @Param search query string false "name or email"
// @Param approved query bool false "approval state"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *UserController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	filter := repository.UserFilter{
		Role:   ctx.Query("role"),
		Search: ctx.Query("search"),
	}
	if a := ctx.Query("approved"); a != "" {
		approved, err := strconv.ParseBool(a)
		if err != nil {
			util.BadRequest(ctx, "approved must be a boolean")
			return
		}
		filter.Approved = &approved
	}

	users, total, err := c.UserService.ListUsers(page, limit, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

type approvalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// @Summary Approve or revoke a lecturer
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "user id"
// @Param body body approvalRequest true "approval"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/approval [put]
func (c *UserController) SetApproval(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}
	var req approvalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.UserService.SetApproval(id, *req.Approved); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"approved": *req.Approved})
}

type banRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// @Summary Ban a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "user id"
// @Param body body banRequest false "reason"
// @Success 201 {object} util.Response
// @Router /api/admin/users/{id}/ban [post]
func (c *UserController) Ban(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}
	var req banRequest
	// the reason is optional, so is the body
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return
	}
	ban, err := c.UserService.Ban(actor.UserID, id, req.Reason)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, ban)
}

// @Summary Lift a ban
// @Tags admin
// @Security BearerAuth
// @Param id path int true "user id"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/ban [delete]
func (c *UserController) Unban(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}
	if err := c.UserService.Unban(id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary List bans
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/bans [get]
func (c *UserController) ListBans(ctx *gin.Context) {
	bans, err := c.UserService.ListBans()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, bans)
}
