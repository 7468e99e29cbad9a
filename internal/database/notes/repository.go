// Package notes provides database operations for notes.
//
// # Usage
//
//	repo := notes.NewRepository(db)
//	err := repo.CreateNote(note, []string{"vocab"})
package notes

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/database/tags"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateNote saves a note and attaches the named tags, creating them when
// needed. A GUID is assigned when the note has none.
func (r *Repository) CreateNote(note *entities.Note, tagNames []string) error {
	if note.GUID == "" {
		note.GUID = uuid.NewString()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		resolved, err := tags.NewRepository(tx).GetOrCreateTags(tagNames)
		if err != nil {
			return fmt.Errorf("failed to resolve tags: %w", err)
		}
		note.Tags = resolved
		return tx.Omit("Tags.*").Create(note).Error
	})
}

// GetNoteByID retrieves a note with its tags.
func (r *Repository) GetNoteByID(id uint) (*entities.Note, error) {
	var note entities.Note
	err := r.db.Preload("Tags").First(&note, id).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// GetNotesByDeck retrieves paginated notes of a deck, oldest first.
func (r *Repository) GetNotesByDeck(deckID uint, limit, offset int) ([]entities.Note, int64, error) {
	var notes []entities.Note
	var total int64

	query := r.db.Model(&entities.Note{}).Where("deck_id = ?", deckID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Preload("Tags").Order("id").Limit(limit).Offset(offset).Find(&notes).Error
	return notes, total, err
}

// CountByNoteType returns the number of notes using a note type.
func (r *Repository) CountByNoteType(noteTypeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Note{}).Where("note_type_id = ?", noteTypeID).Count(&count).Error
	return count, err
}
