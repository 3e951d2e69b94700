package controller

import (
	"time"

	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
	BadgeService     *service.BadgeService
}

func NewDashboardController(dashboardService *service.DashboardService, badgeService *service.BadgeService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService, BadgeService: badgeService}
}

// @Summary Student dashboard
// @Description Streaks, XP, badges and the XP earned per day of the month
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param month query string false "month as 2006-01"
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/dashboard [get]
func (c *DashboardController) Student(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	month := ctx.Query("month")
	if month != "" {
		if _, err := time.Parse(util.MonthFormat, month); err != nil {
			util.BadRequest(ctx, "month must look like 2006-01")
			return
		}
	}
	dashboard, err := c.DashboardService.StudentDashboard(actor.UserID, month)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// @Summary Badge progress
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.UserBadges}
// @Router /api/badges [get]
func (c *DashboardController) Badges(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	badges, err := c.BadgeService.ForUser(actor.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary Lecturer quiz statistics
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/lecturer/stats [get]
func (c *DashboardController) Lecturer(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	stats, err := c.DashboardService.LecturerStats(actor.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
