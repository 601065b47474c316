package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/utils"
)

// ErrUnknownAuthor is returned by Create when the author row does not exist.
var ErrUnknownAuthor = errors.New("unknown post author")

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetWithAuthorUsername(ctx context.Context, id uint) (*models.PostWithAuthor, error)
	Create(ctx context.Context, title, body string, authorID uint) (*models.Post, error)
	Update(ctx context.Context, id uint, title, body string) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db    *gorm.DB
	cache *utils.Cache
	now   func() time.Time
}

// NewPostRepository returns a gorm backed PostRepository. cache may be nil.
func NewPostRepository(db *gorm.DB, cache *utils.Cache) PostRepository {
	return &postRepository{db: db, cache: cache, now: time.Now}
}

// postDetailTTL bounds how long a detail entry written by a reader that raced an
// update can stay stale.
const postDetailTTL = 30 * time.Second

func postDetailKey(id uint) string {
	return "post:detail:" + strconv.FormatUint(uint64(id), 10)
}

// ListByAuthor returns the author's posts, newest first.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	posts := make([]models.Post, 0)
	err := r.db.WithContext(ctx).
		Where("authorId = ?", authorID).
		Order("createdAt DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts of %d: %w", authorID, err)
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

// GetWithAuthorUsername loads a post joined with its author's name, reading through the cache.
func (r *postRepository) GetWithAuthorUsername(ctx context.Context, id uint) (*models.PostWithAuthor, error) {
	key := postDetailKey(id)

	var cached models.PostWithAuthor
	if err := r.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	var rows []models.PostWithAuthor
	err := r.db.WithContext(ctx).
		Table("posts").
		Select("posts.*, users.username AS authorUsername").
		Joins("JOIN users ON users.id = posts.authorId").
		Where("posts.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get post %d with author: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	r.cache.SetJSONFor(ctx, key, rows[0], postDetailTTL)
	return &rows[0], nil
}

// Create stores a post stamped with the current time.
func (r *postRepository) Create(ctx context.Context, title, body string, authorID uint) (*models.Post, error) {
	post := &models.Post{
		CreatedAt: models.FormatCreatedAt(r.now()),
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isForeignKeyError(err) {
			return nil, ErrUnknownAuthor
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Update rewrites title and body only; the author is fixed at creation.
// The detail entry is dropped before and after the write so a concurrent reader
// cannot keep the old row cached past postDetailTTL.
func (r *postRepository) Update(ctx context.Context, id uint, title, body string) error {
	r.cache.Delete(ctx, postDetailKey(id))
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "body": body}).Error
	if err != nil {
		return fmt.Errorf("update post %d: %w", id, err)
	}
	r.cache.Delete(ctx, postDetailKey(id))
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	r.cache.Delete(ctx, postDetailKey(id))
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	r.cache.Delete(ctx, postDetailKey(id))
	return nil
}

func isForeignKeyError(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	// sqlite: "FOREIGN KEY constraint failed", mysql: "Error 1452: ... a foreign key constraint fails"
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
