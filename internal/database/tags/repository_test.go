package tags

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tags.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Tag{}, &entities.Note{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db), db
}

func TestRepository_GetOrCreateTag(t *testing.T) {
	repo, _ := setupTestDB(t)

	tag, err := repo.GetOrCreateTag("Vocab")
	require.NoError(t, err)
	assert.NotZero(t, tag.ID)

	same, err := repo.GetOrCreateTag("vocab")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, same.ID)
	assert.Equal(t, "Vocab", same.Name)
}

func TestRepository_GetOrCreateTags(t *testing.T) {
	repo, _ := setupTestDB(t)

	got, err := repo.GetOrCreateTags([]string{"a", " ", "A", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)

	all, err := repo.GetTags()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_SearchTags(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.GetOrCreateTags([]string{"animals", "Anatomy", "verbs"})
	require.NoError(t, err)

	found, err := repo.SearchTags("an")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestRepository_DeleteOrphanTags(t *testing.T) {
	repo, db := setupTestDB(t)

	used, err := repo.GetOrCreateTag("used")
	require.NoError(t, err)
	_, err = repo.GetOrCreateTag("orphan")
	require.NoError(t, err)
	require.NoError(t, db.Create(&entities.Note{GUID: "g", Tags: []entities.Tag{*used}}).Error)

	deleted, err := repo.DeleteOrphanTags()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	all, err := repo.GetTags()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "used", all[0].Name)
}
