// Package database provides the storage of the target collection.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, row counts
//	├── decks/           # Deck lookup and creation
//	├── notetypes/       # Note types with their fields and templates
//	├── notes/           # Notes and their tag associations
//	├── tags/            # Tag management
//	├── media/           # Records of files in the media folder
//	├── runs/            # Import run tracking
//	├── settings/        # Persisted importer settings
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./collection.db")
//
//	// Create domain-specific repositories
//	decksRepo := decks.NewRepository(db.DB)
//	notesRepo := notes.NewRepository(db.DB)
//
//	// Use repositories
//	deck, _, err := decksRepo.GetOrCreateDeck("Default")
//	err = notesRepo.CreateNote(note, []string{"vocab"})
//
// The collection package combines the repositories into the collection
// importers write to.
//
// # Adding a New Domain
//
// To add a new domain (e.g., review history):
//
//  1. Create a new sub-package: internal/database/reviews/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add the entity to the AutoMigrate list in database.go
//  5. Add compile-time interface check where the repository satisfies a consumer's interface: var _ SomeInterface = (*Repository)(nil)
package database
