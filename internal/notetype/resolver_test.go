package notetype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
)

type stubLayouts struct {
	byDeck map[string]*NoteType
	calls  int
}

func (s *stubLayouts) NoteTypeForDeck(deckID, _ string) *NoteType {
	s.calls++
	return s.byDeck[deckID]
}

func rawBasic() *NoteType {
	return FromRaw("Basic", fieldset.New("Front", "Back"), "", `["{{Front}}", "{{Back}}"]`)
}

func TestResolver_UsesLayout(t *testing.T) {
	companion := &stubLayouts{byDeck: map[string]*NoteType{"d1": FromDeckConfig(DeckConfig{Name: "Cfg", Fields: []DeckConfigField{{Name: "A", Sides: [2]bool{true, true}}}}, "Deck")}}
	r := NewResolver(companion)
	basic := rawBasic()
	r.AddLayout("l1", basic)

	assert.Same(t, basic, r.ForCard("l1", "d1", "Deck"))
	assert.Equal(t, 0, companion.calls)
}

func TestResolver_FallbackLayoutReplacedByDeckConfig(t *testing.T) {
	cfgType := FromDeckConfig(DeckConfig{Name: "Cfg", Fields: []DeckConfigField{{Name: "A", Sides: [2]bool{true, true}}}}, "Deck")
	companion := &stubLayouts{byDeck: map[string]*NoteType{"d1": cfgType}}
	r := NewResolver(companion)
	fb := Fallback(nil, "")
	r.AddLayout("l1", fb)

	assert.Same(t, cfgType, r.ForCard("l1", "d1", "Deck"))
	assert.Same(t, cfgType, r.ForCard("l1", "d1", "Deck"))
	assert.Same(t, fb, r.ForCard("l1", "d2", "Other"), "deck without config keeps the fallback")
	assert.Same(t, cfgType, r.ForDeck("d1", "l1"))
	assert.Same(t, fb, r.ForDeck("d2", "l1"))
	assert.Equal(t, 2, companion.calls)
}

func TestResolver_MissingLayout(t *testing.T) {
	r := NewResolver(nil)

	nt := r.ForCard("unknown", "d1", "Deck")
	assert.True(t, nt.IsFallback())
	got, ok := r.Layout("unknown")
	assert.True(t, ok)
	assert.Same(t, nt, got)
	assert.Same(t, nt, r.ForCard("unknown", "d2", "Deck 2"))
	assert.Len(t, r.All(), 1)
}

func TestResolver_PreferDeckConfig(t *testing.T) {
	cfgType := FromDeckConfig(DeckConfig{Name: "Cfg", Fields: []DeckConfigField{{Name: "A", Sides: [2]bool{true, true}}}}, "Deck")
	r := NewResolver(&stubLayouts{byDeck: map[string]*NoteType{"d1": cfgType}})
	r.PreferDeckConfig = true
	basic := rawBasic()
	r.AddLayout("l1", basic)

	assert.Same(t, cfgType, r.ForCard("l1", "d1", "Deck"))
	assert.Same(t, basic, r.ForCard("l1", "d2", "Other"))
	assert.Equal(t, []*NoteType{basic, cfgType}, r.All())
}
