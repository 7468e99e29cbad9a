// Package notetypes provides database operations for note types, their
// fields and card templates.
package notetypes

import (
	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func ordered(column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column)
	}
}

// CreateNoteType saves a note type together with its fields and templates.
func (r *Repository) CreateNoteType(nt *entities.NoteType) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(nt).Error
	})
}

// NameExists reports whether a note type with exactly this name exists.
func (r *Repository) NameExists(name string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.NoteType{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// GetNoteTypeByID retrieves a note type with its fields and templates in
// order.
func (r *Repository) GetNoteTypeByID(id uint) (*entities.NoteType, error) {
	var nt entities.NoteType
	err := r.db.
		Preload("Fields", ordered("ord")).
		Preload("Templates", ordered("ord")).
		First(&nt, id).Error
	if err != nil {
		return nil, err
	}
	return &nt, nil
}

// GetNoteTypeByName retrieves a note type by exact name.
func (r *Repository) GetNoteTypeByName(name string) (*entities.NoteType, error) {
	var nt entities.NoteType
	err := r.db.
		Preload("Fields", ordered("ord")).
		Preload("Templates", ordered("ord")).
		Where("name = ?", name).
		First(&nt).Error
	if err != nil {
		return nil, err
	}
	return &nt, nil
}

// GetNoteTypes retrieves all note types with their fields, ordered by ID.
func (r *Repository) GetNoteTypes() ([]entities.NoteType, error) {
	var nts []entities.NoteType
	err := r.db.
		Preload("Fields", ordered("ord")).
		Preload("Templates", ordered("ord")).
		Order("id").
		Find(&nts).Error
	return nts, err
}
