package notes

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

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "notes.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Tag{}, &entities.Note{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_CreateNote(t *testing.T) {
	repo := setupTestDB(t)

	note := &entities.Note{NoteTypeID: 1, DeckID: 2, Fields: entities.FieldValues{"Front": "hola"}}
	require.NoError(t, repo.CreateNote(note, []string{"spanish", "Spanish", "verbs"}))
	assert.NotZero(t, note.ID)
	assert.Len(t, note.GUID, 36)

	loaded, err := repo.GetNoteByID(note.ID)
	require.NoError(t, err)
	assert.Equal(t, "hola", loaded.Fields["Front"])
	require.Len(t, loaded.Tags, 2)

	other := &entities.Note{GUID: "fixed", NoteTypeID: 1, DeckID: 2, Fields: entities.FieldValues{"Front": "adios"}}
	require.NoError(t, repo.CreateNote(other, []string{"spanish"}))
	assert.Equal(t, "fixed", other.GUID)
	assert.Equal(t, loaded.Tags[0].ID, other.Tags[0].ID)
}

func TestRepository_GetNotesByDeck(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateNote(&entities.Note{NoteTypeID: 1, DeckID: 7}, nil))
	}
	require.NoError(t, repo.CreateNote(&entities.Note{NoteTypeID: 2, DeckID: 8}, nil))

	notes, total, err := repo.GetNotesByDeck(7, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, notes, 2)

	count, err := repo.CountByNoteType(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
