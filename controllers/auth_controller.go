package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/simpleblog/middleware"
	"github.com/cppla/simpleblog/repository"
	"github.com/cppla/simpleblog/utils"
	"github.com/cppla/simpleblog/validation"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	users        repository.UserRepository
	hasher       *utils.PasswordHasher
	tokens       *utils.TokenService
	blacklist    *utils.TokenBlacklist
	sessionTTL   time.Duration
	secureCookie bool
}

// AuthOptions carries the collaborators of an AuthController.
type AuthOptions struct {
	Users        repository.UserRepository
	Hasher       *utils.PasswordHasher
	Tokens       *utils.TokenService
	Blacklist    *utils.TokenBlacklist
	SessionTTL   time.Duration
	SecureCookie bool
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(opts AuthOptions) *AuthController {
	return &AuthController{
		users:        opts.Users,
		hasher:       opts.Hasher,
		tokens:       opts.Tokens,
		blacklist:    opts.Blacklist,
		sessionTTL:   opts.SessionTTL,
		secureCookie: opts.SecureCookie,
	}
}

// LoginPage renders the login form.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	render(ctx, "login", nil)
}

// Login verifies credentials and starts a session.
func (a *AuthController) Login(ctx *gin.Context) {
	username := ctx.PostForm("username")
	password := ctx.PostForm("password")

	user, errs, err := validation.Login(ctx.Request.Context(), a.users, a.hasher, username, password)
	if err != nil {
		utils.ServerError(ctx, err, "login lookup failed")
		return
	}
	if len(errs) > 0 {
		render(ctx, "login", gin.H{"errors": errs, "username": username})
		return
	}

	if !a.startSession(ctx, user.ID, user.Username) {
		return
	}
	utils.Sugar.Infow("user logged in", "user_id", user.ID, "request_id", ctx.GetString(utils.ContextRequestIDKey))
	utils.Redirect(ctx, "/")
}

// Logout clears the cookie and revokes the token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	identity := middleware.CurrentIdentity(ctx)
	if identity.Authenticated {
		token := ctx.GetString(middleware.ContextSessionTokenKey)
		a.blacklist.Revoke(ctx.Request.Context(), token, identity.ExpiresAt)
	}
	a.setCookie(ctx, "", -1)
	utils.Redirect(ctx, "/")
}

// Register validates the sign-up form, creates the account and logs the user in.
func (a *AuthController) Register(ctx *gin.Context) {
	password := ctx.PostForm("password")

	username, errs, err := validation.Registration(ctx.Request.Context(), a.users, ctx.PostForm("username"), password)
	if err != nil {
		utils.ServerError(ctx, err, "registration lookup failed")
		return
	}
	if len(errs) > 0 {
		render(ctx, "homepage", gin.H{"errors": errs, "username": username})
		return
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		utils.ServerError(ctx, err, "hash password failed")
		return
	}

	user, err := a.users.Create(ctx.Request.Context(), username, hash)
	if errors.Is(err, repository.ErrUsernameTaken) {
		// lost a race against a concurrent registration
		render(ctx, "homepage", gin.H{"errors": []string{validation.MsgUsernameTaken}, "username": username})
		return
	}
	if err != nil {
		utils.ServerError(ctx, err, "create user failed")
		return
	}

	if !a.startSession(ctx, user.ID, user.Username) {
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "request_id", ctx.GetString(utils.ContextRequestIDKey))
	utils.Redirect(ctx, "/")
}

func (a *AuthController) startSession(ctx *gin.Context, userID uint, username string) bool {
	token, _, err := a.tokens.Issue(userID, username, a.sessionTTL)
	if err != nil {
		utils.ServerError(ctx, err, "issue session token failed")
		return false
	}
	a.setCookie(ctx, token, int(a.sessionTTL/time.Second))
	return true
}

func (a *AuthController) setCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", a.secureCookie, true)
}
