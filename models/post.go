package models

import "time"

// CreatedAtLayout is the ISO-8601 layout posts are stamped with. It is fixed width,
// so lexical order on the column equals chronological order.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

// Post represents a text post written by a user. AuthorID never changes after creation.
type Post struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt string `gorm:"column:createdAt;type:text;autoCreateTime:false" json:"created_at"`
	Title     string `gorm:"column:title;not null" json:"title"`
	Body      string `gorm:"column:body;type:text;not null" json:"body"`
	AuthorID  uint   `gorm:"column:authorId;index" json:"author_id"`
}

// PostWithAuthor is a post joined with its author's username.
type PostWithAuthor struct {
	Post
	AuthorUsername string `gorm:"column:authorUsername" json:"author_username"`
}

// FormatCreatedAt stamps t in the column layout.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// CreatedTime parses CreatedAt back into a time. It returns the zero time for unparsable values.
func (p Post) CreatedTime() time.Time {
	t, err := time.Parse(CreatedAtLayout, p.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
