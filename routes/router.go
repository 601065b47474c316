package routes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/simpleblog/config"
	"github.com/cppla/simpleblog/controllers"
	"github.com/cppla/simpleblog/middleware"
	"github.com/cppla/simpleblog/repository"
	"github.com/cppla/simpleblog/utils"
	"github.com/cppla/simpleblog/views"
)

// Deps are the process-wide collaborators handed to the router. Nothing here is global.
type Deps struct {
	Config    config.AppConfig
	DB        *gorm.DB
	Users     repository.UserRepository
	Posts     repository.PostRepository
	Hasher    *utils.PasswordHasher
	Tokens    *utils.TokenService
	Blacklist *utils.TokenBlacklist
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := views.Load()
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}

	r := gin.New()
	// ClientIP feeds the rate limiter; only listed proxies may set X-Forwarded-For
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(utils.RequestID())

	// Access log goes to its own rolling file; without one it follows the app logger
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			utils.Sugar.Warnw("gin access log unavailable, using app logger", "path", cfg.GinPath, "error", err)
		} else {
			accessLog = gl
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog.With(zap.String("component", "recovery")), false))

	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.Config{
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", utils.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
			// credentials cannot be combined with a wildcard origin
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowCredentials = false
		} else {
			corsCfg.AllowOrigins = cfg.AllowedOrigins
		}
		r.Use(cors.New(corsCfg))
	}

	r.Use(middleware.Session(deps.Tokens, deps.Blacklist))

	r.StaticFS("/static", views.Static())

	healthController := controllers.NewHealthController(deps.DB)
	authController := controllers.NewAuthController(controllers.AuthOptions{
		Users:        deps.Users,
		Hasher:       deps.Hasher,
		Tokens:       deps.Tokens,
		Blacklist:    deps.Blacklist,
		SessionTTL:   cfg.SessionTTL(),
		SecureCookie: !cfg.CookieInsecure,
	})
	postController := controllers.NewPostController(deps.Posts)

	r.GET("/health", healthController.Health)

	credentials := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute).Middleware()

	r.GET("/", postController.Home)
	r.GET("/login", authController.LoginPage)
	r.POST("/login", credentials, authController.Login)
	r.GET("/logout", authController.Logout)
	r.POST("/register", credentials, authController.Register)

	authed := r.Group("")
	authed.Use(middleware.MustBeLoggedIn(deps.Users))
	authed.GET("/create-post", postController.CreatePage)
	authed.POST("/create-post", postController.CreatePost)
	authed.GET("/post/:id", postController.GetPost)
	authed.GET("/edit-post/:id", postController.EditPage)
	authed.POST("/edit-post/:id", postController.UpdatePost)
	authed.POST("/delete-post/:id", postController.DeletePost)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/static/") {
			ctx.String(http.StatusNotFound, "static asset not found")
			return
		}
		controllers.NotFound(ctx)
	})

	return r, nil
}
