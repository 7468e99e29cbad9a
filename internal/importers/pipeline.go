package importers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

// Writer runs the create states of an import against a Collection.
type Writer struct {
	collection Collection
	session    *Session
	resolver   *media.Resolver
	warnings   *Warnings
	filter     TextFilter
	targets    map[*notetype.NoteType]map[string]string

	imported int
}

func NewWriter(collection Collection, session *Session, resolver *media.Resolver, warnings *Warnings) *Writer {
	return &Writer{
		collection: collection,
		session:    session,
		resolver:   resolver,
		warnings:   warnings,
		targets:    make(map[*notetype.NoteType]map[string]string),
	}
}

// SetFilter makes the writer pass every field value through f.
func (w *Writer) SetFilter(f TextFilter) {
	w.filter = f
}

// Imported returns the number of cards created so far.
func (w *Writer) Imported() int {
	return w.imported
}

// CreateDeck creates d, or finds the existing deck with the same name, and
// fills in its description if the target deck has none.
func (w *Writer) CreateDeck(ctx context.Context, d *Deck) error {
	if _, ok := d.TargetID(); ok {
		return nil
	}
	id, err := w.collection.AddDeck(ctx, d.Name)
	if err != nil {
		return fmt.Errorf("failed to create deck %q: %w", d.Name, err)
	}
	if err := d.SetTargetID(id); err != nil {
		return err
	}
	if d.Description == "" {
		return nil
	}
	current, err := w.collection.DeckDescription(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read description of deck %q: %w", d.Name, err)
	}
	if current == "" {
		if err := w.collection.SetDeckDescription(ctx, id, d.Description); err != nil {
			return fmt.Errorf("failed to set description of deck %q: %w", d.Name, err)
		}
	}
	return nil
}

// CreateDecks runs the CreateDecks state.
func (w *Writer) CreateDecks(ctx context.Context, decks []*Deck) error {
	if err := w.session.Step("Importing decks..."); err != nil {
		return err
	}
	for _, d := range decks {
		if err := w.CreateDeck(ctx, d); err != nil {
			return err
		}
		if err := w.session.CheckCancel(); err != nil {
			return err
		}
	}
	return nil
}

// NoteTypeSpecFor converts a note type to what the collection is asked to
// create. Field names are sanitized and collapsed case-insensitively.
func NoteTypeSpecFor(nt *notetype.NoteType) NoteTypeSpec {
	fields, _ := fieldset.Sanitize(nt.Fields.Names())
	return NoteTypeSpec{
		Name:      nt.Name,
		Fields:    fields.Names(),
		Templates: nt.RenderedTemplates(),
		CSS:       nt.Style,
		Cloze:     nt.Cloze,
	}
}

// CreateNoteType creates nt unless it already has an id. A rejection by the
// collection is logged with the full note type and returned.
func (w *Writer) CreateNoteType(ctx context.Context, nt *notetype.NoteType) error {
	if _, ok := nt.ID(); ok {
		return nil
	}
	spec := NoteTypeSpecFor(nt)
	id, err := w.collection.AddNoteType(ctx, spec)
	if err != nil {
		logutil.GetLogger(ctx).Error("failed to create note type",
			zap.String("name", spec.Name),
			zap.String("kind", nt.Kind.String()),
			zap.Strings("fields", spec.Fields),
			zap.Any("templates", spec.Templates),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create note type %q: %w", spec.Name, err)
	}
	return nt.SetID(id)
}

// CreateNoteTypes runs the CreateNoteTypes state.
func (w *Writer) CreateNoteTypes(ctx context.Context, nts []*notetype.NoteType) error {
	if err := w.session.Step("Importing notetypes..."); err != nil {
		return err
	}
	for _, nt := range nts {
		if err := w.CreateNoteType(ctx, nt); err != nil {
			return err
		}
		if err := w.session.CheckCancel(); err != nil {
			return err
		}
	}
	return nil
}

// WriteMedia runs the WriteMediaFiles state for all media not written yet.
func (w *Writer) WriteMedia(ctx context.Context) error {
	if err := w.session.Step("Importing media..."); err != nil {
		return err
	}
	for _, m := range w.resolver.Pending() {
		if err := w.resolver.Write(ctx, m); err != nil {
			return err
		}
		if err := w.session.CheckCancel(); err != nil {
			return err
		}
	}
	return nil
}

// CreateCard rewrites media references in c and adds it as a note.
func (w *Writer) CreateCard(ctx context.Context, c *Card) error {
	nt := c.NoteType
	if nt == nil {
		return fmt.Errorf("card %s has no note type", c.ID)
	}
	if err := w.CreateNoteType(ctx, nt); err != nil {
		return err
	}
	if err := w.CreateDeck(ctx, c.Deck); err != nil {
		return err
	}
	noteTypeID, _ := nt.ID()
	deckID, _ := c.Deck.TargetID()

	targetNames, ok := w.targets[nt]
	if !ok {
		_, targetNames = fieldset.Sanitize(nt.Fields.Names())
		w.targets[nt] = targetNames
	}
	fields := make(map[string]string, len(c.Fields))
	for _, name := range c.FieldNames() {
		value, err := w.resolver.Rewrite(ctx, c.Fields[name])
		if err != nil {
			return err
		}
		if w.filter != nil && !IsBlank(value) {
			value = w.filter.Sanitize(value)
		}
		if value == "" {
			value = EmptyFieldPlaceholder
		}

		fixed, ok := targetNames[nt.Fields.Normalize(name)]
		if !ok {
			w.warnings.Addf("Field %q of card %s is not part of note type %q and was dropped", name, c.ID, nt.Name)
			continue
		}
		if prev, ok := fields[fixed]; ok && !IsBlank(prev) {
			if !IsBlank(value) && prev != value {
				w.warnings.Addf("Field %q of card %s collides with another field of the same name and was dropped", name, c.ID)
			}
			continue
		}
		fields[fixed] = value
	}

	_, err := w.collection.AddNote(ctx, NoteSpec{
		NoteTypeID: noteTypeID,
		DeckID:     deckID,
		Fields:     fields,
		Tags:       c.Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to add card %s: %w", c.ID, err)
	}
	w.imported++
	return nil
}

// CreateCards runs the CreateCards state, reporting progress against total.
// total may exceed len(cards) when cards are created in several batches; a
// non-positive total means this batch is all there is.
func (w *Writer) CreateCards(ctx context.Context, cards []*Card, total int) error {
	if total <= 0 {
		total = w.imported + len(cards)
	}
	for _, c := range cards {
		if err := w.CreateCard(ctx, c); err != nil {
			return err
		}
		label := fmt.Sprintf("Imported %d out of %d cards", w.imported, total)
		if err := w.session.Tick(label, w.imported, total); err != nil {
			return err
		}
	}
	return nil
}
