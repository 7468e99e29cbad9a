package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

type Database struct {
	DB *gorm.DB
}

// Counts summarizes the content of the collection.
type Counts struct {
	Decks     int64 `json:"decks"`
	NoteTypes int64 `json:"note_types"`
	Notes     int64 `json:"notes"`
	Tags      int64 `json:"tags"`
	Media     int64 `json:"media"`
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Deck{},
		&entities.NoteType{},
		&entities.NoteTypeField{},
		&entities.CardTemplate{},
		&entities.Tag{},
		&entities.Note{},
		&entities.MediaFile{},
		&entities.ImportRun{},
		&entities.Setting{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logutil.GetLogger(context.Background()).Info("database initialized", zap.String("path", dbPath))

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Counts returns the number of rows of each collection table.
func (d *Database) Counts() (Counts, error) {
	var c Counts
	for _, q := range []struct {
		model any
		dst   *int64
	}{
		{&entities.Deck{}, &c.Decks},
		{&entities.NoteType{}, &c.NoteTypes},
		{&entities.Note{}, &c.Notes},
		{&entities.Tag{}, &c.Tags},
		{&entities.MediaFile{}, &c.Media},
	} {
		if err := d.DB.Model(q.model).Count(q.dst).Error; err != nil {
			return Counts{}, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return c, nil
}
