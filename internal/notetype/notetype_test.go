package notetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
)

func TestFromRaw(t *testing.T) {
	fields := fieldset.New("Front", "Back")
	nt := FromRaw("Basic", fields, ".card {}", `["{{[Front]}}", "{{[Back]}}"]`)
	require.NotNil(t, nt)

	assert.Equal(t, KindRaw, nt.Kind)
	assert.Equal(t, "{{Front}}", nt.Front())
	assert.Equal(t, "{{Back}}", nt.Back())
	assert.Equal(t, ".card {}", nt.Style)
}

func TestFromRaw_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"malformed":   "{not json",
		"single":      `["{{Front}}"]`,
		"empty array": `[]`,
		"object":      `{"front": "x"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, FromRaw("x", fieldset.New("Front"), "", raw))
		})
	}
}

func TestResolve_FallbackKeepsFields(t *testing.T) {
	fields := fieldset.New("Word", "Meaning", "front")
	nt := Resolve("Vocab", fields, "", `["{{Word}}"]`)

	require.NotNil(t, nt)
	assert.True(t, nt.IsFallback())
	assert.Equal(t, FallbackName, nt.Name)
	assert.Equal(t, FallbackFront, nt.Front())
	assert.Equal(t, FallbackBack, nt.Back())
	assert.Equal(t, DefaultCSS, nt.Style)
	for _, f := range []string{"Front", "Back", "Word", "Meaning"} {
		assert.True(t, nt.Fields.Contains(f), f)
	}
	assert.Equal(t, 4, nt.Fields.Len(), "case variant of Front must not be duplicated")
}

func TestFallback_CustomName(t *testing.T) {
	nt := Fallback(nil, "Spanish Notetype")
	assert.Equal(t, "Spanish Notetype", nt.Name)
	assert.Equal(t, []string{"Front", "Back"}, nt.Fields.Names())
}

func TestFixTemplate(t *testing.T) {
	fields := []string{"Front", "Back Side", "#Tag"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bracketed", "{{[Front]}}", "{{Front}}"},
		{"case", "{{front}} {{FRONT}}", "{{Front}} {{Front}}"},
		{"section prefixes", "{{#front}}x{{/FRONT}}{{^Front}}y{{/front}}", "{{#Front}}x{{/Front}}{{^Front}}y{{/Front}}"},
		{"spaces", "{{[back side]}}", "{{Back Side}}"},
		{"sanitized name", "{{#Tag}}", "{{Tag}}"},
		{"unknown field untouched", "{{Other}}", "{{Other}}"},
		{"special fields untouched", "{{FrontSide}}", "{{FrontSide}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FixTemplate(tt.in, fields)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, FixTemplate(got, fields), "rewrite must be idempotent")
		})
	}
}

func TestRenderedTemplates_PicksUpMergedFields(t *testing.T) {
	nt := FromRaw("Basic", fieldset.New("Front"), "", `["{{front}}", "{{extra}}"]`)
	require.NotNil(t, nt)
	assert.Equal(t, "{{extra}}", nt.Back())

	nt.Fields.Add("Extra")
	assert.Equal(t, "{{Extra}}", nt.Back())
	assert.Equal(t, `{{extra}}`, nt.Templates[0].Back, "stored templates stay in source form")
}

func TestSetID(t *testing.T) {
	nt := Fallback(nil, "")
	_, ok := nt.ID()
	assert.False(t, ok)

	require.NoError(t, nt.SetID(42))
	require.NoError(t, nt.SetID(42))
	assert.ErrorIs(t, nt.SetID(7), ErrIDAssigned)

	id, ok := nt.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestFromSides(t *testing.T) {
	fields := fieldset.New("Word", "Meaning")
	nt := FromSides("Deck Notetype", fields, []string{"Word"}, []string{"Word", "Meaning"})

	assert.Equal(t, KindSynthesized, nt.Kind)
	assert.Equal(t, "{{Word}}", nt.Front())
	assert.Equal(t, "{{Word}}<br>{{Meaning}}", nt.Back())

	fb := FromSides("Deck Notetype", fields, nil, []string{"Word"})
	assert.True(t, fb.IsFallback())
	assert.Equal(t, "Deck Notetype", fb.Name)
	assert.True(t, fb.Fields.Contains("Meaning"))
}

func TestFromDeckConfig(t *testing.T) {
	cfg := DeckConfig{
		Fields: []DeckConfigField{
			{Name: "Word", Sides: ParseSides("10")},
			{Name: "word", Sides: ParseSides("01")},
			{Name: "Meaning", Sides: ParseSides("01")},
			{Name: "Note", Sides: ParseSides("11")},
		},
	}

	nt := FromDeckConfig(cfg, "Spanish")
	require.NotNil(t, nt)
	assert.Equal(t, "Spanish Notetype", nt.Name)
	assert.Equal(t, []string{"Word", "Meaning", "Note"}, nt.Fields.Names())
	assert.Equal(t, "<div>{{Word}}</div><div>{{Note}}</div>", nt.Front())
	assert.Equal(t, "<div>{{Meaning}}</div><div>{{Note}}</div>", nt.Back())

	cfg.Base = "Basic"
	assert.Equal(t, "Basic", FromDeckConfig(cfg, "Spanish").Name)
	cfg.Name = "Mine"
	assert.Equal(t, "Mine", FromDeckConfig(cfg, "Spanish").Name)

	assert.Nil(t, FromDeckConfig(DeckConfig{}, "Empty"))
	assert.Nil(t, FromDeckConfig(DeckConfig{Fields: []DeckConfigField{{Name: "A", Sides: [2]bool{true, false}}}}, "x"))
}
