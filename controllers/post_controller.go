package controllers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/simpleblog/middleware"
	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/repository"
	"github.com/cppla/simpleblog/utils"
	"github.com/cppla/simpleblog/validation"
)

// PostController handles the dashboard and post CRUD pages.
type PostController struct {
	posts repository.PostRepository
}

// NewPostController creates a new PostController instance.
func NewPostController(posts repository.PostRepository) *PostController {
	return &PostController{posts: posts}
}

// Home shows the dashboard to a logged in user and the sign-up page to everyone else.
func (p *PostController) Home(ctx *gin.Context) {
	identity := middleware.CurrentIdentity(ctx)
	if !identity.Authenticated {
		render(ctx, "homepage", nil)
		return
	}

	posts, err := p.posts.ListByAuthor(ctx.Request.Context(), identity.UserID)
	if err != nil {
		utils.ServerError(ctx, err, "list posts failed")
		return
	}
	render(ctx, "dashboard", gin.H{"posts": posts})
}

// CreatePage renders an empty composer.
func (p *PostController) CreatePage(ctx *gin.Context) {
	render(ctx, "create-post", gin.H{"title": "", "body": ""})
}

// CreatePost validates and stores a new post owned by the current user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	title, body, errs := validation.Post(ctx.PostForm("title"), ctx.PostForm("body"))
	if len(errs) > 0 {
		render(ctx, "create-post", gin.H{"errors": errs, "title": title, "body": body})
		return
	}

	identity := middleware.CurrentIdentity(ctx)
	post, err := p.posts.Create(ctx.Request.Context(), title, body, identity.UserID)
	if errors.Is(err, repository.ErrUnknownAuthor) {
		utils.Redirect(ctx, "/")
		return
	}
	if err != nil {
		utils.ServerError(ctx, err, "create post failed")
		return
	}
	utils.Redirect(ctx, postPath(post.ID))
}

// GetPost renders a single post with its author.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Redirect(ctx, "/")
		return
	}

	post, err := p.posts.GetWithAuthorUsername(ctx.Request.Context(), id)
	if err != nil {
		utils.ServerError(ctx, err, "load post failed")
		return
	}
	if post == nil {
		utils.Redirect(ctx, "/")
		return
	}

	identity := middleware.CurrentIdentity(ctx)
	render(ctx, "single-post", gin.H{"post": post, "isAuthor": identity.Owns(&post.Post)})
}

// EditPage renders the edit form for the owner.
func (p *PostController) EditPage(ctx *gin.Context) {
	post, ok := p.loadOwned(ctx)
	if !ok {
		return
	}
	render(ctx, "edit-post", gin.H{"post": post})
}

// UpdatePost allows the author to update their post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	post, ok := p.loadOwned(ctx)
	if !ok {
		return
	}

	title, body, errs := validation.Post(ctx.PostForm("title"), ctx.PostForm("body"))
	if len(errs) > 0 {
		submitted := *post
		submitted.Title = title
		submitted.Body = body
		render(ctx, "edit-post", gin.H{"errors": errs, "post": submitted})
		return
	}

	if err := p.posts.Update(ctx.Request.Context(), post.ID, title, body); err != nil {
		utils.ServerError(ctx, err, "update post failed")
		return
	}
	utils.Redirect(ctx, postPath(post.ID))
}

// DeletePost allows the author to delete their post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, ok := p.loadOwned(ctx)
	if !ok {
		return
	}

	if err := p.posts.Delete(ctx.Request.Context(), post.ID); err != nil {
		utils.ServerError(ctx, err, "delete post failed")
		return
	}
	utils.Redirect(ctx, "/")
}

// loadOwned fetches the :id post for its author. Missing and foreign posts both send
// the visitor home, so a non-owner cannot tell whether the post exists.
func (p *PostController) loadOwned(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Redirect(ctx, "/")
		return nil, false
	}

	post, err := p.posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		utils.ServerError(ctx, err, "load post failed")
		return nil, false
	}

	identity := middleware.CurrentIdentity(ctx)
	if !identity.Owns(post) {
		if post != nil {
			utils.Sugar.Infow("rejected access to foreign post", "post_id", id, "user_id", identity.UserID)
		}
		utils.Redirect(ctx, "/")
		return nil, false
	}
	return post, true
}

func postPath(id uint) string {
	return "/post/" + strconv.FormatUint(uint64(id), 10)
}
