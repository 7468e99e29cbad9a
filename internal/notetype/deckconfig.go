package notetype

import (
	"strings"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
)

// DeckConfig is the layout information stored alongside a deck by the
// source application.
type DeckConfig struct {
	Name   string
	Base   string
	Fields []DeckConfigField
}

// DeckConfigField is one field of a deck configuration. Sides reports whether
// the field is shown on the front and the back of the card.
type DeckConfigField struct {
	Name  string
	Sides [2]bool
}

// ParseSides reads the "10"/"01"/"11" side notation used by the source
// application, where a '1' at position i means the field is shown on side i.
func ParseSides(s string) [2]bool {
	var sides [2]bool
	for i := 0; i < len(s) && i < 2; i++ {
		sides[i] = s[i] == '1'
	}
	return sides
}

// FromDeckConfig synthesizes a note type from a deck configuration. The
// note type is named after the configuration, its base layout, or the deck.
// Nil is returned when the configuration does not yield a usable front and
// back.
func FromDeckConfig(cfg DeckConfig, deckName string) *NoteType {
	name := cfg.Name
	if name == "" {
		name = cfg.Base
	}
	if name == "" {
		name = deckName + " Notetype"
	}

	fields := fieldset.New()
	var front, back []string
	for _, f := range cfg.Fields {
		if f.Name == "" || fields.Contains(f.Name) {
			continue
		}
		fields.Add(f.Name)
		ref := "<div>{{" + fieldset.FixName(f.Name) + "}}</div>"
		if f.Sides[0] {
			front = append(front, ref)
		}
		if f.Sides[1] {
			back = append(back, ref)
		}
	}
	if len(front) == 0 || len(back) == 0 {
		return nil
	}

	return &NoteType{
		Name:      name,
		Kind:      KindSynthesized,
		Fields:    fields,
		Style:     DefaultCSS,
		Templates: []Template{{Name: "Card 1", Front: strings.Join(front, ""), Back: strings.Join(back, "")}},
	}
}
