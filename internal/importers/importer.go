package importers

import (
	"context"

	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

// Importer runs one import from one source.
type Importer interface {
	// Name identifies the source, e.g. "AnkiApp".
	Name() string
	// Import writes everything it can read into the collection and returns
	// the number of cards imported. ErrCanceled is returned when the user
	// asked to stop.
	Import(ctx context.Context) (int, error)
	// Warnings returns the per-item problems found during Import.
	Warnings() []string
}

// Collection is the target flashcard collection.
type Collection interface {
	// AddDeck returns the id of the deck with the given name, creating it
	// when needed.
	AddDeck(ctx context.Context, name string) (int64, error)
	DeckDescription(ctx context.Context, id int64) (string, error)
	SetDeckDescription(ctx context.Context, id int64, description string) error
	// AddNoteType creates a note type and returns its id.
	AddNoteType(ctx context.Context, spec NoteTypeSpec) (int64, error)
	// WriteMedia stores a media file and returns the name it was stored
	// under, which may differ from name.
	WriteMedia(ctx context.Context, name string, data []byte) (string, error)
	// AddNote creates a note and returns its id.
	AddNote(ctx context.Context, spec NoteSpec) (int64, error)
}

// NoteTypeSpec describes a note type to create.
type NoteTypeSpec struct {
	Name      string
	Fields    []string
	Templates []notetype.Template
	CSS       string
	Cloze     bool
}

// NoteSpec describes a note to create.
type NoteSpec struct {
	NoteTypeID int64
	DeckID     int64
	Fields     map[string]string
	Tags       []string
}

// TextFilter post-processes field text before it is stored.
type TextFilter interface {
	Sanitize(html string) string
}
