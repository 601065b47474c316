package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/utils"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "simpleblog_session"

	// ContextIdentityKey stores the request's models.Identity inside Gin context.
	ContextIdentityKey = "identity"
	// ContextSessionTokenKey stores the raw token of an authenticated request.
	ContextSessionTokenKey = "session_token"
)

// Session resolves the request identity once from the session cookie. Missing, malformed,
// expired or revoked tokens leave the request anonymous; they never fail it.
func Session(tokens *utils.TokenService, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := models.Anonymous

		token, err := ctx.Cookie(SessionCookieName)
		if err == nil && token != "" {
			verified, verr := tokens.Verify(token)
			switch {
			case verr != nil:
				utils.Sugar.Debugw("session token rejected", "error", verr, "request_id", ctx.GetString(utils.ContextRequestIDKey))
			case blacklist != nil && blacklist.IsRevoked(ctx.Request.Context(), token):
				utils.Sugar.Debugw("session token revoked", "user_id", verified.UserID)
			default:
				identity = verified
				ctx.Set(ContextSessionTokenKey, token)
			}
		}

		ctx.Set(ContextIdentityKey, identity)
		ctx.Next()
	}
}

// CurrentIdentity returns the identity Session stored, or Anonymous.
func CurrentIdentity(ctx *gin.Context) models.Identity {
	v, ok := ctx.Get(ContextIdentityKey)
	if !ok {
		return models.Anonymous
	}
	identity, ok := v.(models.Identity)
	if !ok {
		return models.Anonymous
	}
	return identity
}

// UserFinder loads a user by id, returning nil, nil when the row is gone.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// MustBeLoggedIn redirects anonymous visitors home. A signed token whose user row no
// longer exists, or now carries another name, is treated as anonymous as well.
func MustBeLoggedIn(users UserFinder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := CurrentIdentity(ctx)
		if !identity.Authenticated {
			utils.Redirect(ctx, "/")
			return
		}

		user, err := users.FindByID(ctx.Request.Context(), identity.UserID)
		if err != nil {
			utils.ServerError(ctx, err, "session user lookup failed")
			return
		}
		if user == nil || user.Username != identity.Username {
			utils.Sugar.Infow("session user no longer exists", "user_id", identity.UserID, "request_id", ctx.GetString(utils.ContextRequestIDKey))
			ctx.Set(ContextIdentityKey, models.Anonymous)
			utils.Redirect(ctx, "/")
			return
		}
		ctx.Next()
	}
}
