package models

// User represents a blog author. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"column:username;size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string `gorm:"column:passwordHash;size:255;not null" json:"-"`
	Posts        []Post `gorm:"foreignKey:AuthorID" json:"-"`
}
