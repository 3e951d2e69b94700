package controller

import (
	"context"
	"net/http"
	"time"

	"watchlearn/internal/outbox"
	"watchlearn/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Journal outbox.Journal
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, journal outbox.Journal) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Journal: journal}
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports database, Redis and outbox state
// @Tags system
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()
	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}
	if c.Journal != nil {
		if n, err := c.Journal.Len(pingCtx); err == nil {
			components["outboxPending"] = n
		}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
