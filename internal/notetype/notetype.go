// Package notetype models the card layouts recovered from source
// collections and reconciles the different places they can come from.
package notetype

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
)

// Kind tags where a NoteType came from.
type Kind int

const (
	// KindRaw is a layout read verbatim from the source; its templates use
	// the source markup and are rewritten on access.
	KindRaw Kind = iota
	// KindSynthesized is built from deck configuration or archive metadata.
	KindSynthesized
	// KindFallback is the fixed two-field layout used when nothing better
	// could be recovered.
	KindFallback
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindSynthesized:
		return "synthesized"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

const (
	FallbackName  = "AnkiApp Fallback Notetype"
	FallbackFront = "{{Front}}"
	FallbackBack  = "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}"

	DefaultCSS = `.card {
    font-family: arial;
    font-size: 20px;
    text-align: center;
    color: black;
    background-color: white;
}`
)

var ErrIDAssigned = errors.New("note type already has an identifier")

// Template is one card template of a note type.
type Template struct {
	Name  string
	Front string
	Back  string
}

// NoteType is a layout recovered from a source. ID is assigned by the target
// collection once the note type is created there.
type NoteType struct {
	Name      string
	Kind      Kind
	Fields    *fieldset.FieldSet
	Style     string
	Templates []Template
	Cloze     bool

	id    int64
	idSet bool
}

// ID returns the identifier assigned by the target collection.
func (nt *NoteType) ID() (int64, bool) {
	return nt.id, nt.idSet
}

// SetID records the target identifier. It may only be set once.
func (nt *NoteType) SetID(id int64) error {
	if nt.idSet && nt.id != id {
		return ErrIDAssigned
	}
	nt.id = id
	nt.idSet = true
	return nil
}

func (nt *NoteType) IsFallback() bool {
	return nt.Kind == KindFallback
}

// Front returns the question template of the first card template.
func (nt *NoteType) Front() string {
	ts := nt.RenderedTemplates()
	if len(ts) == 0 {
		return ""
	}
	return ts[0].Front
}

// Back returns the answer template of the first card template.
func (nt *NoteType) Back() string {
	ts := nt.RenderedTemplates()
	if len(ts) == 0 {
		return ""
	}
	return ts[0].Back
}

// RenderedTemplates returns the templates as they should be handed to the
// target collection. Raw templates are rewritten against the current field
// set, so fields merged in after extraction are picked up too.
func (nt *NoteType) RenderedTemplates() []Template {
	out := make([]Template, len(nt.Templates))
	copy(out, nt.Templates)
	if nt.Kind != KindRaw {
		return out
	}
	names := nt.Fields.Names()
	for i := range out {
		out[i].Front = FixTemplate(out[i].Front, names)
		out[i].Back = FixTemplate(out[i].Back, names)
	}
	return out
}

// FromRaw builds a note type from a layout row. templatesJSON is expected to
// be a JSON array whose first two strings are the front and back templates;
// nil is returned when that is not the case.
func FromRaw(name string, fields *fieldset.FieldSet, style, templatesJSON string) *NoteType {
	var templates []string
	if err := json.Unmarshal([]byte(templatesJSON), &templates); err != nil {
		return nil
	}
	if len(templates) < 2 {
		return nil
	}
	if fields == nil {
		fields = fieldset.New()
	}
	return &NoteType{
		Name:      name,
		Kind:      KindRaw,
		Fields:    fields,
		Style:     style,
		Templates: []Template{{Name: "Card 1", Front: templates[0], Back: templates[1]}},
	}
}

// Resolve returns FromRaw's result, or a Fallback carrying the layout's
// fields and name when the templates cannot be used.
func Resolve(name string, fields *fieldset.FieldSet, style, templatesJSON string) *NoteType {
	if nt := FromRaw(name, fields, style, templatesJSON); nt != nil {
		return nt
	}
	return Fallback(fields, "")
}

// Fallback returns the fixed Front/Back note type with extra merged into its
// fields. An empty name selects FallbackName.
func Fallback(extra *fieldset.FieldSet, name string) *NoteType {
	if name == "" {
		name = FallbackName
	}
	fields := fieldset.New("Front", "Back")
	fields.Merge(extra)
	return &NoteType{
		Name:      name,
		Kind:      KindFallback,
		Fields:    fields,
		Style:     DefaultCSS,
		Templates: []Template{{Name: "Card 1", Front: FallbackFront, Back: FallbackBack}},
	}
}

// FromSides synthesizes a note type from per-side field lists as found in
// archive exports. Either side being empty yields a Fallback.
func FromSides(name string, fields *fieldset.FieldSet, front, back []string) *NoteType {
	if len(front) == 0 || len(back) == 0 {
		return Fallback(fields, name)
	}
	return &NoteType{
		Name:      name,
		Kind:      KindSynthesized,
		Fields:    fields,
		Style:     DefaultCSS,
		Templates: []Template{{Name: "Card 1", Front: joinRefs(front, "<br>"), Back: joinRefs(back, "<br>")}},
	}
}

func joinRefs(fields []string, sep string) string {
	refs := make([]string, len(fields))
	for i, f := range fields {
		refs[i] = "{{" + fieldset.FixName(f) + "}}"
	}
	return strings.Join(refs, sep)
}

// FixTemplate turns source template markup into target syntax: "{{[Name]}}"
// becomes "{{Name}}" and every reference to one of fields, with or without a
// '#', '/' or '^' section prefix, is rewritten to the field's target name
// (see fieldset.Sanitize) regardless of the case used in the template.
func FixTemplate(tmpl string, fields []string) string {
	tmpl = strings.ReplaceAll(tmpl, "{{[", "{{")
	tmpl = strings.ReplaceAll(tmpl, "]}}", "}}")
	_, mapping := fieldset.Sanitize(fields)
	for _, field := range fields {
		if field == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\{\{([#/^]?)` + regexp.QuoteMeta(field) + `\}\}`)
		repl := "{{${1}" + strings.ReplaceAll(mapping[field], "$", "$$") + "}}"
		tmpl = re.ReplaceAllString(tmpl, repl)
	}
	return tmpl
}
