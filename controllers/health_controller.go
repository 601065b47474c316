package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/simpleblog/utils"
)

// HealthController reports whether the store is reachable. It is unauthenticated, so it
// exposes nothing about the data.
type HealthController struct {
	db *gorm.DB
}

// NewHealthController creates a new HealthController instance.
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Health answers {"status":"ok"}, or 503 when the database is down.
func (h *HealthController) Health(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c)
	}
	if err != nil {
		utils.Sugar.Warnw("health check failed", "error", err)
		ctx.JSON(http.StatusServiceUnavailable, utils.JSONResponse{Code: 1, Message: "database unavailable"})
		return
	}

	utils.Success(ctx, gin.H{"status": "ok"})
}
