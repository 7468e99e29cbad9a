package ankiapp_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/anki-copycat-importer/internal/ankiapp"
	"github.com/abdnh/anki-copycat-importer/internal/ankiapp/ankiapptest"
	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/importers/importertest"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func writeDB(t *testing.T, db ankiapptest.DB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ankiapp.db")
	require.NoError(t, ankiapptest.WriteDB(path, db))
	return path
}

func runImport(t *testing.T, coll *importertest.FakeCollection, progress importers.Progress, paths ...importers.PathInfo) (*ankiapp.Importer, int, error) {
	t.Helper()
	imp, err := ankiapp.New(config.ImporterOptions{Source: config.SourceAnkiApp}, paths, coll, progress)
	require.NoError(t, err)
	n, err := imp.Import(context.Background())
	return imp, n, err
}

func TestImporter_DatabaseRoundTrip(t *testing.T) {
	path := writeDB(t, ankiapptest.Simple())
	coll := importertest.NewFakeCollection()

	imp, n, err := runImport(t, coll, nil, importers.PathInfo{Path: path, Type: importers.DBPath})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, imp.Warnings())

	deck := coll.DeckByName("basic deck")
	require.NotNil(t, deck)
	assert.Equal(t, "my basic deck", deck.Description)

	require.Len(t, coll.NoteTypes, 1)
	nt := coll.NoteTypes[0]
	assert.Equal(t, "Basic", nt.Name)
	assert.Equal(t, []string{"Front", "Back"}, nt.Fields)
	assert.Equal(t, "{{Front}}", nt.Templates[0].Front)
	assert.Equal(t, ".card {}", nt.CSS)

	require.Len(t, coll.Notes, 1)
	note := coll.Notes[0]
	assert.Equal(t, map[string]string{"Front": "front text", "Back": "back text"}, note.Fields)
	assert.Equal(t, []string{"mytag"}, note.Tags)
	assert.Equal(t, deck.ID, note.DeckID)
	assert.Equal(t, nt.ID, note.NoteTypeID)

	stats := imp.Stats()
	assert.Equal(t, ankiapp.Stats{Decks: 1, NoteTypes: 1, Media: 0, Cards: 1}, stats)
}

func TestImporter_DataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ankiapptest.WriteDataDir(dir, ankiapptest.Simple()))
	coll := importertest.NewFakeCollection()

	_, n, err := runImport(t, coll, nil, importers.PathInfo{Path: dir, Type: importers.DataDir})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotNil(t, coll.DeckByName("basic deck"))
}

func TestImporter_MediaAndMissingBlobs(t *testing.T) {
	db := ankiapptest.Simple()
	db.Blobs = []ankiapptest.Blob{
		{ID: "pic", MIME: "image/png", Data: pngHeader},
		{ID: "odd", MIME: "application/x-unknown-thing", Data: []byte("x")},
	}
	db.Cards[0].Values[0].Value = ankiapptest.Str("{{blob pic}} and {{blob gone}}")
	coll := importertest.NewFakeCollection()

	imp, n, err := runImport(t, coll, nil, importers.PathInfo{Path: writeDB(t, db), Type: importers.DBPath})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Contains(t, coll.Media, "pic.png")
	front := coll.Notes[0].Fields["Front"]
	assert.Contains(t, front, `<img src="pic.png">`)
	assert.Contains(t, front, `<img src="gone.jpg"></img>`)
	assert.Contains(t, imp.Warnings(), "Missing media file: gone")
	assert.Contains(t, imp.Warnings(), "unrecognized mime for media file odd: application/x-unknown-thing")
}

func TestImporter_BrokenLayoutUsesFallback(t *testing.T) {
	db := ankiapptest.Simple()
	db.Layouts[0].Templates = "not json"
	coll := importertest.NewFakeCollection()

	_, n, err := runImport(t, coll, nil, importers.PathInfo{Path: writeDB(t, db), Type: importers.DBPath})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, coll.NoteTypes, 1)
	assert.Equal(t, notetype.FallbackName, coll.NoteTypes[0].Name)
	assert.Equal(t, []string{"Front", "Back"}, coll.NoteTypes[0].Fields)
}

func TestImporter_UnknownLayoutAndExtraFields(t *testing.T) {
	db := ankiapptest.Simple()
	db.Cards = append(db.Cards, ankiapptest.Card{
		ID:       "C2",
		LayoutID: "missing",
		DeckID:   "D1",
		Values: []ankiapptest.Value{
			{Name: "Front", Value: ankiapptest.Str("q")},
			{Name: "Notes", Value: nil},
		},
	})
	coll := importertest.NewFakeCollection()

	_, n, err := runImport(t, coll, nil, importers.PathInfo{Path: writeDB(t, db), Type: importers.DBPath})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, coll.NoteTypes, 2)
	fallback := coll.NoteTypes[1]
	assert.Equal(t, notetype.FallbackName, fallback.Name)
	assert.Equal(t, []string{"Front", "Back", "Notes"}, fallback.Fields)
	assert.Equal(t, importers.EmptyFieldPlaceholder, coll.Notes[1].Fields["Notes"])
}

func TestImporter_CardInUnknownDeckIsSkipped(t *testing.T) {
	db := ankiapptest.Simple()
	db.Cards[0].DeckID = "nowhere"
	coll := importertest.NewFakeCollection()

	imp, n, err := runImport(t, coll, nil, importers.PathInfo{Path: writeDB(t, db), Type: importers.DBPath})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, imp.Warnings(), "Card C1 belongs to unknown deck nowhere and was skipped")
}

// deckOverrideDB has two cards in D1: C1 uses a valid layout, C2 a broken
// one that makes the deck configuration take over the whole deck.
func deckOverrideDB() ankiapptest.DB {
	db := ankiapptest.Simple()
	db.Layouts = append(db.Layouts, ankiapptest.Layout{
		ID:        "L2",
		Name:      "Broken",
		Templates: "not json",
		Fields:    []string{"Front", "Back"},
	})
	db.Cards = append(db.Cards, ankiapptest.Card{
		ID:       "C2",
		LayoutID: "L2",
		DeckID:   "D1",
		Values:   []ankiapptest.Value{{Name: "front", Value: ankiapptest.Str("q2")}, {Name: "Back", Value: ankiapptest.Str("a2")}},
	})
	return db
}

var vocabularyDeck = ankiapptest.CompanionDeck{
	DeckID: "D1",
	Name:   "Vocabulary",
	Fields: []ankiapptest.ArchiveField{{Name: "Front", Sides: "10"}, {Name: "Back", Sides: "01"}},
}

func TestImporter_CompanionOverridesWholeDeck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ankiapptest.WriteDataDir(dir, deckOverrideDB()))
	require.NoError(t, ankiapptest.WriteCompanion(dir, vocabularyDeck))
	coll := importertest.NewFakeCollection()

	imp, n, err := runImport(t, coll, nil, importers.PathInfo{Path: dir, Type: importers.DataDir})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var vocab *importertest.FakeNoteType
	for _, nt := range coll.NoteTypes {
		if nt.Name == "Vocabulary" {
			vocab = nt
		}
	}
	require.NotNil(t, vocab, "deck configuration was not used")
	assert.Equal(t, []string{"Front", "Back"}, vocab.Fields)
	assert.Contains(t, vocab.Templates[0].Front, "{{Front}}")

	require.Len(t, coll.Notes, 2)
	for _, note := range coll.Notes {
		assert.Equal(t, vocab.ID, note.NoteTypeID)
	}
	assert.Equal(t, "front text", coll.Notes[0].Fields["Front"])
	assert.Equal(t, "q2", coll.Notes[1].Fields["Front"])
	assert.Empty(t, imp.Warnings())
}

func TestImporter_CompanionIgnoredForValidLayouts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ankiapptest.WriteDataDir(dir, ankiapptest.Simple()))
	require.NoError(t, ankiapptest.WriteCompanion(dir, vocabularyDeck))
	coll := importertest.NewFakeCollection()

	_, n, err := runImport(t, coll, nil, importers.PathInfo{Path: dir, Type: importers.DataDir})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, coll.NoteTypes, 1)
	assert.Equal(t, "Basic", coll.NoteTypes[0].Name)
}

func TestImporter_PreferDeckConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ankiapptest.WriteDataDir(dir, ankiapptest.Simple()))
	require.NoError(t, ankiapptest.WriteCompanion(dir, vocabularyDeck))
	coll := importertest.NewFakeCollection()

	opts := config.ImporterOptions{Source: config.SourceAnkiApp, PreferDeckConfig: true}
	imp, err := ankiapp.New(opts, []importers.PathInfo{{Path: dir, Type: importers.DataDir}}, coll, nil)
	require.NoError(t, err)
	n, err := imp.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	nt := coll.NoteType(coll.Notes[0].NoteTypeID)
	require.NotNil(t, nt)
	assert.Equal(t, "Vocabulary", nt.Name)
}

// countingCollection records how many writes reached the collection.
type countingCollection struct {
	*importertest.FakeCollection
	writes int
}

func (c *countingCollection) AddDeck(ctx context.Context, name string) (int64, error) {
	c.writes++
	return c.FakeCollection.AddDeck(ctx, name)
}

func (c *countingCollection) AddNoteType(ctx context.Context, spec importers.NoteTypeSpec) (int64, error) {
	c.writes++
	return c.FakeCollection.AddNoteType(ctx, spec)
}

func (c *countingCollection) WriteMedia(ctx context.Context, name string, data []byte) (string, error) {
	c.writes++
	return c.FakeCollection.WriteMedia(ctx, name, data)
}

func (c *countingCollection) AddNote(ctx context.Context, spec importers.NoteSpec) (int64, error) {
	c.writes++
	return c.FakeCollection.AddNote(ctx, spec)
}

// cancelAt reports cancellation from the given poll on and remembers how
// many writes had happened when it first did.
type cancelAt struct {
	importertest.ScriptedProgress
	coll           *countingCollection
	writesAtCancel int
	canceled       bool
}

func (p *cancelAt) WantCancel() bool {
	if !p.ScriptedProgress.WantCancel() {
		return false
	}
	if !p.canceled {
		p.canceled = true
		p.writesAtCancel = p.coll.writes
	}
	return true
}

func TestImporter_CancelAtEveryPoll(t *testing.T) {
	db := deckOverrideDB()
	db.Blobs = []ankiapptest.Blob{{ID: "pic", MIME: "image/png", Data: pngHeader}}
	db.Cards[0].Values[0].Value = ankiapptest.Str("{{blob pic}}")
	path := writeDB(t, db)

	// count the polls of a full run first
	full := &importertest.ScriptedProgress{}
	_, _, err := runImport(t, importertest.NewFakeCollection(), full, importers.PathInfo{Path: path, Type: importers.DBPath})
	require.NoError(t, err)
	polls := full.Polls()
	require.Greater(t, polls, 5)

	for after := 1; after <= polls; after++ {
		t.Run(fmt.Sprintf("poll %d", after), func(t *testing.T) {
			coll := &countingCollection{FakeCollection: importertest.NewFakeCollection()}
			progress := &cancelAt{ScriptedProgress: importertest.ScriptedProgress{CancelAfter: after}, coll: coll}

			imp, err := ankiapp.New(config.ImporterOptions{Source: config.SourceAnkiApp}, []importers.PathInfo{{Path: path, Type: importers.DBPath}}, coll, progress)
			require.NoError(t, err)
			n, err := imp.Import(context.Background())
			require.ErrorIs(t, err, importers.ErrCanceled)
			assert.Zero(t, n)
			require.True(t, progress.canceled)
			assert.Equal(t, progress.writesAtCancel, coll.writes, "collection written after cancel")
		})
	}
}

func TestImporter_Archive(t *testing.T) {
	doc := ankiapptest.ArchiveXML(ankiapptest.ArchiveDeck{
		Name: "Vocab",
		Fields: []ankiapptest.ArchiveField{
			{Name: "Word", Sides: "10"},
			{Name: "Meaning", Sides: "01"},
		},
		Cards: []ankiapptest.ArchiveCard{
			{{Name: "Word", HTML: "<b>perro</b>"}, {Name: "Meaning", HTML: `dog <img id="pic">`}},
			{{Name: "Word", HTML: "gato"}},
		},
	})
	path := filepath.Join(t.TempDir(), "export.zip")
	require.NoError(t, ankiapptest.WriteZip(path, map[string]string{"Vocab.xml": doc}, map[string][]byte{"pic": pngHeader}))
	coll := importertest.NewFakeCollection()

	_, n, err := runImport(t, coll, nil, importers.PathInfo{Path: path, Type: importers.XMLZip})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NotNil(t, coll.DeckByName("Vocab"))
	require.Len(t, coll.NoteTypes, 1)
	nt := coll.NoteTypes[0]
	assert.Equal(t, "Vocab Notetype", nt.Name)
	assert.Equal(t, []string{"Word", "Meaning"}, nt.Fields)
	assert.Equal(t, "{{Word}}", nt.Templates[0].Front)
	assert.Equal(t, "{{Meaning}}", nt.Templates[0].Back)

	assert.Equal(t, "<b>perro</b>", coll.Notes[0].Fields["Word"])
	assert.Contains(t, coll.Notes[0].Fields["Meaning"], "pic.png")
	assert.Contains(t, coll.Media, "pic.png")
}

func TestImporter_ArchiveWithoutDecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, ankiapptest.WriteZip(path, nil, nil))

	_, _, err := runImport(t, importertest.NewFakeCollection(), nil, importers.PathInfo{Path: path, Type: importers.XMLZip})
	require.Error(t, err)
	assert.True(t, importers.IsUserError(err))
	assert.Contains(t, err.Error(), "No AnkiApp decks found")
}

func TestNew_ValidatesPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.db")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	emptyDir := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(emptyDir, 0o755))

	tests := []struct {
		name string
		path importers.PathInfo
		want string
	}{
		{"missing file", importers.PathInfo{Path: filepath.Join(dir, "nope.db"), Type: importers.DBPath}, "does not exist"},
		{"data folder is a file", importers.PathInfo{Path: file, Type: importers.DataDir}, "is not a folder"},
		{"data folder without database", importers.PathInfo{Path: emptyDir, Type: importers.DataDir}, "Unable to locate database file in data folder."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ankiapp.New(config.ImporterOptions{}, []importers.PathInfo{tt.path}, importertest.NewFakeCollection(), nil)
			require.Error(t, err)
			assert.True(t, importers.IsUserError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := ankiapp.New(config.ImporterOptions{}, nil, importertest.NewFakeCollection(), nil)
	assert.True(t, importers.IsUserError(err))
}
