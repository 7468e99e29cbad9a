// Package media records the files written to the collection's media folder.
package media

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

// GetMediaByName retrieves a media file by name.
func (r *Repository) GetMediaByName(name string) (*entities.MediaFile, error) {
	var file entities.MediaFile
	err := r.db.Where("name = ?", name).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// NameExists reports whether a file with this name was recorded.
func (r *Repository) NameExists(name string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.MediaFile{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// RecordMedia saves a media file record.
func (r *Repository) RecordMedia(file *entities.MediaFile) error {
	return r.db.Create(file).Error
}

// GetMedia retrieves all media records ordered by name.
func (r *Repository) GetMedia() ([]entities.MediaFile, error) {
	var files []entities.MediaFile
	err := r.db.Order("name").Find(&files).Error
	return files, err
}
