// Package collection is the flashcard collection importers write to. It
// stores decks, note types and notes in the database and media files in a
// folder next to it.
package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/database"
	"github.com/abdnh/anki-copycat-importer/internal/database/decks"
	"github.com/abdnh/anki-copycat-importer/internal/database/notes"
	"github.com/abdnh/anki-copycat-importer/internal/database/notetypes"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

var (
	ErrLocked         = errors.New("collection is in use by another process")
	ErrNoFields       = errors.New("note type has no fields")
	ErrDuplicateField = errors.New("duplicate field name")
	ErrNoTemplates    = errors.New("note type has no card templates")
	ErrUnknownField   = errors.New("field is not part of the note type")
	ErrEmptyNote      = errors.New("note has no content")
)

// DefaultDeckName is used for decks without a name.
const DefaultDeckName = "Default"

// Collection implements importers.Collection on top of the database. It
// holds an exclusive lock on the collection file while open, and writes are
// serialized.
type Collection struct {
	db       *database.Database
	mediaDir string
	lock     *flock.Flock

	mu     sync.Mutex
	fields map[int64][]string // note type fields by ID
}

// Open locks the collection stored in db and returns it. lockPath is
// usually the collection path with a ".lock" suffix. ErrLocked is returned
// when another process holds the lock.
func Open(db *database.Database, lockPath, mediaDir string) (*Collection, error) {
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock collection: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	if err := ensureDir(mediaDir); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Collection{
		db:       db,
		mediaDir: mediaDir,
		lock:     lock,
		fields:   make(map[int64][]string),
	}, nil
}

// LockPath returns the lock file of the collection at path.
func LockPath(path string) string {
	return path + ".lock"
}

// Close releases the lock. The database stays open.
func (c *Collection) Close() error {
	return c.lock.Unlock()
}

// MediaDir returns the folder media files are written to.
func (c *Collection) MediaDir() string { return c.mediaDir }

// Counts returns the number of decks, note types, notes, tags and media
// files in the collection.
func (c *Collection) Counts(ctx context.Context) (database.Counts, error) {
	return (&database.Database{DB: c.db.DB.WithContext(ctx)}).Counts()
}

func (c *Collection) tx(ctx context.Context) *gorm.DB {
	return c.db.DB.WithContext(ctx)
}

func (c *Collection) AddDeck(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultDeckName
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	deck, created, err := decks.NewRepository(c.tx(ctx)).GetOrCreateDeck(name)
	if err != nil {
		return 0, fmt.Errorf("failed to add deck %q: %w", name, err)
	}
	if created {
		logutil.GetLogger(ctx).Debug("deck created", zap.String("name", name), zap.Uint("id", deck.ID))
	}
	return int64(deck.ID), nil
}

func (c *Collection) DeckDescription(ctx context.Context, id int64) (string, error) {
	deck, err := decks.NewRepository(c.tx(ctx)).GetDeckByID(uint(id))
	if err != nil {
		return "", fmt.Errorf("failed to get deck %d: %w", id, err)
	}
	return deck.Description, nil
}

func (c *Collection) SetDeckDescription(ctx context.Context, id int64, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := decks.NewRepository(c.tx(ctx)).SetDescription(uint(id), description); err != nil {
		return fmt.Errorf("failed to set description of deck %d: %w", id, err)
	}
	return nil
}

// AddNoteType creates a note type. A name already in use gets a " (2)",
// " (3)"... suffix.
func (c *Collection) AddNoteType(ctx context.Context, spec importers.NoteTypeSpec) (int64, error) {
	if err := validateNoteType(spec); err != nil {
		return 0, fmt.Errorf("invalid note type %q: %w", spec.Name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	repo := notetypes.NewRepository(c.tx(ctx))
	name, err := uniqueName(repo, spec.Name)
	if err != nil {
		return 0, err
	}
	nt := &entities.NoteType{Name: name, CSS: spec.CSS, Cloze: spec.Cloze}
	for i, f := range spec.Fields {
		nt.Fields = append(nt.Fields, entities.NoteTypeField{Ord: i, Name: f})
	}
	for i, t := range spec.Templates {
		tmplName := t.Name
		if tmplName == "" {
			tmplName = "Card " + strconv.Itoa(i+1)
		}
		nt.Templates = append(nt.Templates, entities.CardTemplate{Ord: i, Name: tmplName, Front: t.Front, Back: t.Back})
	}
	if err := repo.CreateNoteType(nt); err != nil {
		return 0, fmt.Errorf("failed to add note type %q: %w", name, err)
	}

	id := int64(nt.ID)
	c.fields[id] = append([]string(nil), spec.Fields...)
	logutil.GetLogger(ctx).Debug("note type created", zap.String("name", name), zap.Int64("id", id))
	return id, nil
}

func validateNoteType(spec importers.NoteTypeSpec) error {
	if len(spec.Fields) == 0 {
		return ErrNoFields
	}
	seen := make(map[string]bool, len(spec.Fields))
	for _, f := range spec.Fields {
		key := strings.ToLower(f)
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f)
		}
		seen[key] = true
	}
	if len(spec.Templates) == 0 {
		return ErrNoTemplates
	}
	return nil
}

func uniqueName(repo *notetypes.Repository, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = "Imported"
	}
	candidate := name
	for n := 2; ; n++ {
		exists, err := repo.NameExists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check note type name: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}

func (c *Collection) noteTypeFields(ctx context.Context, id int64) ([]string, error) {
	if f, ok := c.fields[id]; ok {
		return f, nil
	}
	nt, err := notetypes.NewRepository(c.tx(ctx)).GetNoteTypeByID(uint(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get note type %d: %w", id, err)
	}
	c.fields[id] = nt.FieldNames()
	return c.fields[id], nil
}

// AddNote creates a note. Its fields must belong to the note type and at
// least one must have content.
func (c *Collection) AddNote(ctx context.Context, spec importers.NoteSpec) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	declared, err := c.noteTypeFields(ctx, spec.NoteTypeID)
	if err != nil {
		return 0, err
	}
	if _, err := decks.NewRepository(c.tx(ctx)).GetDeckByID(uint(spec.DeckID)); err != nil {
		return 0, fmt.Errorf("failed to get deck %d: %w", spec.DeckID, err)
	}

	values := make(entities.FieldValues, len(declared))
	for _, name := range declared {
		values[name] = ""
	}
	empty := true
	for name, value := range spec.Fields {
		if _, ok := values[name]; !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		values[name] = value
		if strings.TrimSpace(value) != "" {
			empty = false
		}
	}
	if empty {
		return 0, ErrEmptyNote
	}

	note := &entities.Note{
		NoteTypeID: uint(spec.NoteTypeID),
		DeckID:     uint(spec.DeckID),
		Fields:     values,
	}
	if err := notes.NewRepository(c.tx(ctx)).CreateNote(note, spec.Tags); err != nil {
		return 0, fmt.Errorf("failed to add note: %w", err)
	}
	return int64(note.ID), nil
}

var _ importers.Collection = (*Collection)(nil)
