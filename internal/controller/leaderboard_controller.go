package controller

import (
	"watchlearn/internal/service"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	Leaderboard *service.LeaderboardService
}

func NewLeaderboardController(leaderboard *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{Leaderboard: leaderboard}
}

// @Summary XP leaderboard
// @Tags leaderboard
// @Produce json
// @Security BearerAuth
// @Param period query string false "weekly or monthly" default(weekly)
// @Success 200 {object} util.Response{data=service.Leaderboard}
// @Failure 400 {object} util.Response
// @Router /api/leaderboard [get]
func (c *LeaderboardController) Get(ctx *gin.Context) {
	period, err := service.ParsePeriod(ctx.Query("period"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	board, err := c.Leaderboard.Get(ctx.Request.Context(), period)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, board)
}
