package controller

import (
	"strconv"

	"watchlearn/internal/outbox"
	"watchlearn/internal/util"
	"watchlearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OutboxController exposes the submission journal to admins.
type OutboxController struct {
	Drainer *outbox.Drainer
}

func NewOutboxController(drainer *outbox.Drainer) *OutboxController {
	return &OutboxController{Drainer: drainer}
}

// @Summary Outbox state
// @Description Pending depth, retry policy and the oldest dead letters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "dead letters to return" default(50)
// @Success 200 {object} util.Response
// @Router /api/admin/outbox [get]
func (c *OutboxController) Status(ctx *gin.Context) {
	limit, err := strconv.ParseInt(ctx.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit < 1 {
		limit = 50
	}
	journal := c.Drainer.Journal()
	pending, err := journal.Len(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	dead, err := journal.Dead(ctx.Request.Context(), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	policy := c.Drainer.Policy()
	util.Success(ctx, gin.H{
		"pending":     pending,
		"dead":        dead,
		"maxAttempts": policy.MaxAttempts,
		"baseBackoff": policy.BaseBackoff.String(),
		"maxBackoff":  policy.MaxBackoff.String(),
	})
}

// @Summary Requeue dead letters
// @Description Moves every dead job back to the tail of the pending list
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/outbox/requeue [post]
func (c *OutboxController) Requeue(ctx *gin.Context) {
	n, err := c.Drainer.Journal().Requeue(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if n > 0 {
		logger.Log.Info("Dead letters requeued", zap.Int("count", n))
	}
	util.Success(ctx, gin.H{"requeued": n})
}
