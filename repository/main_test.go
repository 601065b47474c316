package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/simpleblog/config"
	"github.com/cppla/simpleblog/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "blog.db"),
		LogLevel: "silent",
	}
	db, err := config.OpenDatabase(cfg, &models.User{}, &models.Post{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
