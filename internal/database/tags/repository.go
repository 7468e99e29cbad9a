// Package tags provides database operations for note tags.
//
// # Usage
//
//	repo := tags.NewRepository(db)
//	tag, err := repo.GetOrCreateTag("vocab")
package tags

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTag creates a new tag.
func (r *Repository) CreateTag(name string) (*entities.Tag, error) {
	tag := &entities.Tag{Name: name}
	if err := r.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// GetOrCreateTag retrieves or creates a tag (case-insensitive).
func (r *Repository) GetOrCreateTag(name string) (*entities.Tag, error) {
	var tag entities.Tag
	err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.CreateTag(name)
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetOrCreateTags resolves names to tags. Blank names and case-insensitive
// duplicates are skipped.
func (r *Repository) GetOrCreateTags(names []string) ([]entities.Tag, error) {
	seen := make(map[string]bool, len(names))
	var out []entities.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		tag, err := r.GetOrCreateTag(name)
		if err != nil {
			return nil, err
		}
		out = append(out, *tag)
	}
	return out, nil
}

// GetTags retrieves all tags ordered by name.
func (r *Repository) GetTags() ([]entities.Tag, error) {
	var tags []entities.Tag
	err := r.db.Order("name").Find(&tags).Error
	return tags, err
}

// SearchTags searches tags by name (case-insensitive partial match).
func (r *Repository) SearchTags(query string) ([]entities.Tag, error) {
	var tags []entities.Tag
	searchPattern := "%" + query + "%"
	err := r.db.Where("LOWER(name) LIKE LOWER(?)", searchPattern).Order("name").Find(&tags).Error
	return tags, err
}

// DeleteOrphanTags removes tags no note uses.
func (r *Repository) DeleteOrphanTags() (int64, error) {
	result := r.db.Exec(`DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM note_tags)`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
