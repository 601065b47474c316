package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/simpleblog/middleware"
)

// render executes a page template. Every page sees the current identity as "user" and
// the validation messages as "errors", possibly empty.
func render(ctx *gin.Context, name string, data gin.H) {
	renderStatus(ctx, http.StatusOK, name, data)
}

func renderStatus(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = []string{}
	}
	data["user"] = middleware.CurrentIdentity(ctx)
	ctx.HTML(status, name, data)
}

// NotFound renders the 404 page.
func NotFound(ctx *gin.Context) {
	renderStatus(ctx, http.StatusNotFound, "404", nil)
}

// parseID reads a positive numeric :id. Anything else is treated like a missing post.
func parseID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
