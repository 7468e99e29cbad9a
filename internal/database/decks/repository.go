// Package decks provides database operations for decks.
//
// # Usage
//
//	repo := decks.NewRepository(db)
//	deck, created, err := repo.GetOrCreateDeck("Spanish::Verbs")
package decks

import (
	"errors"

	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

// Repository handles all deck database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new decks repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateDeck retrieves a deck by name (case-insensitive) or creates it.
// The second result reports whether the deck was created.
func (r *Repository) GetOrCreateDeck(name string) (*entities.Deck, bool, error) {
	deck, err := r.GetDeckByName(name)
	if err == nil {
		return deck, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	deck = &entities.Deck{Name: name}
	if err := r.db.Create(deck).Error; err != nil {
		return nil, false, err
	}
	return deck, true, nil
}

// GetDeckByName retrieves a deck by name (case-insensitive).
func (r *Repository) GetDeckByName(name string) (*entities.Deck, error) {
	var deck entities.Deck
	err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&deck).Error
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// GetDeckByID retrieves a deck by ID.
func (r *Repository) GetDeckByID(id uint) (*entities.Deck, error) {
	var deck entities.Deck
	err := r.db.First(&deck, id).Error
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// SetDescription replaces the description of a deck.
func (r *Repository) SetDescription(id uint, description string) error {
	result := r.db.Model(&entities.Deck{}).Where("id = ?", id).Update("description", description)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetDecks retrieves all decks ordered by name.
func (r *Repository) GetDecks() ([]entities.Deck, error) {
	var decks []entities.Deck
	err := r.db.Order("name").Find(&decks).Error
	return decks, err
}
