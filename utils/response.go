package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JSONResponse defines the structure of the few JSON endpoints (health checks).
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a standard JSON success response.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{Code: 0, Message: "success", Data: data})
}

// Redirect answers with a 302 to location, like a browser form post expects.
func Redirect(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusFound, location)
	ctx.Abort()
}

// ServerError logs err and answers 500 without leaking details to the client.
func ServerError(ctx *gin.Context, err error, msg string) {
	Logger.Error(msg,
		zap.Error(err),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString(ContextRequestIDKey)),
	)
	_ = ctx.Error(err)
	ctx.String(http.StatusInternalServerError, "Internal Server Error")
	ctx.Abort()
}
