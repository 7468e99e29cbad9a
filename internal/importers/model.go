package importers

import (
	"errors"
	"strings"

	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

// EmptyFieldPlaceholder replaces empty field values so notes are never
// rejected for being blank.
const EmptyFieldPlaceholder = "&nbsp"

var ErrDeckIDAssigned = errors.New("deck already has an identifier")

// Deck is a deck read from a source. ID is the source's identifier.
type Deck struct {
	ID          string
	Name        string
	Description string

	targetID int64
	created  bool
}

// TargetID returns the id of the deck in the target collection.
func (d *Deck) TargetID() (int64, bool) {
	return d.targetID, d.created
}

// SetTargetID records the target id. It may only be set once.
func (d *Deck) SetTargetID(id int64) error {
	if d.created && d.targetID != id {
		return ErrDeckIDAssigned
	}
	d.targetID = id
	d.created = true
	return nil
}

// Card is one note read from a source.
type Card struct {
	ID       string
	LayoutID string
	Deck     *Deck
	NoteType *notetype.NoteType
	Fields   map[string]string
	Tags     []string

	order []string
}

func NewCard(id string, deck *Deck, nt *notetype.NoteType) *Card {
	return &Card{ID: id, Deck: deck, NoteType: nt, Fields: make(map[string]string)}
}

// FieldNames returns the field names in the order they were first set.
func (c *Card) FieldNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// SetField stores a field value. An empty value becomes the placeholder. A
// value already set that is not blank is kept; SetField reports whether
// a different non-blank value was dropped because of that.
func (c *Card) SetField(name, value string) (collided bool) {
	if value == "" {
		value = EmptyFieldPlaceholder
	}
	prev, ok := c.Fields[name]
	if !ok {
		c.order = append(c.order, name)
		c.Fields[name] = value
		return false
	}
	if IsBlank(prev) {
		c.Fields[name] = value
		return false
	}
	return !IsBlank(value) && prev != value
}

// Rebind moves c to nt, renaming its fields to nt's spelling. Field names nt
// lacks are added to it as long as nt has not been created.
func (c *Card) Rebind(nt *notetype.NoteType) {
	if nt == nil || nt == c.NoteType {
		return
	}
	values, names := c.Fields, c.order
	c.NoteType = nt
	c.Fields = make(map[string]string, len(values))
	c.order = nil
	_, created := nt.ID()
	for _, name := range names {
		fixed := nt.Fields.Normalize(name)
		if !created && !nt.Fields.Contains(fixed) {
			fixed = nt.Fields.Add(fixed)
		}
		c.SetField(fixed, values[name])
	}
}

// IsBlank reports whether a field value has no content besides whitespace
// and placeholders.
func IsBlank(value string) bool {
	return strings.TrimSpace(strings.ReplaceAll(value, EmptyFieldPlaceholder, "")) == ""
}
