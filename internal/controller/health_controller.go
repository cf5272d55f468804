package controller

import (
	"net/http"

	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type runCounter interface {
	Len() int
}

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	Runs  runCounter
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, runs runCounter) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Runs: runs}
}

// @Summary 健康检查
// @Description 检查数据库与 Redis 连接，返回进行中的练习数
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}
	if c.Redis != nil {
		// Redis 只用于缓存，不可用时降级
		if err := c.Redis.Ping(ctx.Request.Context()).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
		"activeRuns": c.Runs.Len(),
	})
}
