package controller

import (
	"errors"
	"mime/multipart"
	"net/http"

	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	BadgeService *service.BadgeService
}

func NewBadgeController(badgeService *service.BadgeService) *BadgeController {
	return &BadgeController{BadgeService: badgeService}
}

// optionalFile returns nil when the form carries no file under name.
func optionalFile(ctx *gin.Context, name string) (*multipart.FileHeader, error) {
	fh, err := ctx.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return fh, err
}

func badgeID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid badge id")
		return 0, false
	}
	return id, true
}

// @Summary List all badges
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/badges [get]
func (c *BadgeController) List(ctx *gin.Context) {
	badges, err := c.BadgeService.List()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary Create a badge
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "name"
// @Param description formData string false "description"
// @Param xpThreshold formData int true "XP needed to earn the badge"
// @Param isActive formData bool false "active" default(true)
// @Param image formData file false "badge image"
// @Success 201 {object} util.Response
// @Router /api/admin/badges [post]
func (c *BadgeController) Create(ctx *gin.Context) {
	var req service.BadgeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	image, err := optionalFile(ctx, "image")
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	badge, err := c.BadgeService.Create(ctx.Request.Context(), req, image)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, badge)
}

// @Summary Update a badge
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "badge id"
// @Param name formData string true "name"
// @Param description formData string false "description"
// @Param xpThreshold formData int true "XP needed to earn the badge"
// @Param isActive formData bool false "active"
// @Param image formData file false "replacement image"
// @Success 200 {object} util.Response
// @Router /api/admin/badges/{id} [put]
func (c *BadgeController) Update(ctx *gin.Context) {
	id, ok := badgeID(ctx)
	if !ok {
		return
	}
	var req service.BadgeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	image, err := optionalFile(ctx, "image")
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	badge, err := c.BadgeService.Update(ctx.Request.Context(), id, req, image)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badge)
}

// @Summary Activate or deactivate a badge
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "badge id"
// @Param body body activeRequest true "state"
// @Success 200 {object} util.Response
// @Router /api/admin/badges/{id}/active [put]
func (c *BadgeController) SetActive(ctx *gin.Context) {
	id, ok := badgeID(ctx)
	if !ok {
		return
	}
	var req activeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	badge, err := c.BadgeService.SetActive(id, *req.Active)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badge)
}

// @Summary Delete a badge
// @Tags admin
// @Security BearerAuth
// @Param id path int true "badge id"
// @Success 200 {object} util.Response
// @Router /api/admin/badges/{id} [delete]
func (c *BadgeController) Delete(ctx *gin.Context) {
	id, ok := badgeID(ctx)
	if !ok {
		return
	}
	if err := c.BadgeService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
