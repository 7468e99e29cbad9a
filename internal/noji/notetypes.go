package noji

import (
	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

// Kind is the note type of a card, taken from its label.
type Kind int

const (
	KindBasic Kind = iota
	KindReversed
	KindCloze
)

// KindFor maps a card label type to a Kind. Unknown labels are basic.
func KindFor(label string) Kind {
	switch label {
	case "reversed":
		return KindReversed
	case "cloze":
		return KindCloze
	default:
		return KindBasic
	}
}

const basicCSS = `.card {
    font-family: arial;
    font-size: 20px;
    text-align: center;
    color: black;
    background-color: white;
}
`

const clozeCSS = basicCSS + `.cloze {
    font-weight: bold;
    color: blue;
}
.nightMode .cloze {
    color: lightblue;
}
`

var (
	basicTemplate = notetype.Template{
		Name:  "Card 1",
		Front: "{{Front}}",
		Back:  "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}",
	}
	reversedTemplate = notetype.Template{
		Name:  "Card 2",
		Front: "{{Back}}",
		Back:  "{{FrontSide}}\n\n<hr id=answer>\n\n{{Front}}",
	}
	clozeTemplate = notetype.Template{
		Name:  "Card 1",
		Front: "{{cloze:Front}}",
		Back:  "{{cloze:Front}}<br>\n{{Back}}",
	}
)

// NoteTypes returns the built-in note types, named after the flavor.
func NoteTypes(f Flavor) map[Kind]*notetype.NoteType {
	build := func(suffix, css string, cloze bool, templates ...notetype.Template) *notetype.NoteType {
		return &notetype.NoteType{
			Name:      f.Name + " " + suffix,
			Kind:      notetype.KindSynthesized,
			Fields:    fieldset.New("Front", "Back"),
			Style:     css,
			Templates: templates,
			Cloze:     cloze,
		}
	}
	return map[Kind]*notetype.NoteType{
		KindBasic:    build("Basic", basicCSS, false, basicTemplate),
		KindReversed: build("Basic (and reversed card)", basicCSS, false, basicTemplate, reversedTemplate),
		KindCloze:    build("Cloze", clozeCSS, true, clozeTemplate),
	}
}
