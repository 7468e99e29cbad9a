// Command generate_fixture writes a sample AnkiApp database, XML export and
// data folder for manual runs of the importer.
// Usage: go run ./cmd/generate_fixture [-out dir]
package main

import (
	"encoding/base64"
	"flag"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/ankiapp/ankiapptest"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

const defaultOutputDir = "./fixtures"

// A 1x1 transparent PNG.
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func main() {
	out := flag.String("out", defaultOutputDir, "directory to write sample.db, sample.zip and datadir/ to")
	flag.Parse()

	log := logutil.Init(logutil.Options{Level: "info", Console: true})
	defer func() { _ = log.Sync() }()

	pixel, err := base64.StdEncoding.DecodeString(pixelPNG)
	if err != nil {
		log.Fatal("failed to decode sample image", zap.Error(err))
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}

	dbPath := filepath.Join(*out, "sample.db")
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatal("failed to remove existing database", zap.Error(err))
	}
	if err := ankiapptest.WriteDB(dbPath, sampleDB(pixel)); err != nil {
		log.Fatal("failed to write database", zap.Error(err))
	}
	log.Info("wrote sample database", zap.String("path", dbPath))

	zipPath := filepath.Join(*out, "sample.zip")
	documents := map[string]string{"export.xml": sampleXML()}
	if err := ankiapptest.WriteZip(zipPath, documents, map[string][]byte{"pixel": pixel}); err != nil {
		log.Fatal("failed to write archive", zap.Error(err))
	}
	log.Info("wrote sample archive", zap.String("path", zipPath))

	// The data folder's "Phrases" deck has a broken layout, so its deck
	// configuration from IndexedDB is used instead.
	dataDir := filepath.Join(*out, "datadir")
	if err := os.RemoveAll(dataDir); err != nil {
		log.Fatal("failed to remove existing data folder", zap.Error(err))
	}
	if err := ankiapptest.WriteDataDir(dataDir, sampleDataDirDB()); err != nil {
		log.Fatal("failed to write data folder", zap.Error(err))
	}
	phrases := ankiapptest.CompanionDeck{
		DeckID: "P1",
		Name:   "Phrasebook",
		Fields: []ankiapptest.ArchiveField{{Name: "Phrase", Sides: "10"}, {Name: "Translation", Sides: "01"}},
	}
	if err := ankiapptest.WriteCompanion(dataDir, phrases); err != nil {
		log.Fatal("failed to write deck configuration", zap.Error(err))
	}
	log.Info("wrote sample data folder", zap.String("path", dataDir))
}

func sampleDataDirDB() ankiapptest.DB {
	db := ankiapptest.Simple()
	db.Decks = append(db.Decks, ankiapptest.Deck{ID: "P1", Name: "Phrases"})
	db.Layouts = append(db.Layouts, ankiapptest.Layout{ID: "LX", Name: "Legacy", Templates: "[]"})
	db.Cards = append(db.Cards,
		ankiapptest.Card{ID: "P1C1", LayoutID: "LX", DeckID: "P1", Values: []ankiapptest.Value{
			{Name: "Phrase", Value: ankiapptest.Str("¿Dónde está la biblioteca?")},
			{Name: "Translation", Value: ankiapptest.Str("Where is the library?")},
		}},
		ankiapptest.Card{ID: "P1C2", LayoutID: "LX", DeckID: "P1", Values: []ankiapptest.Value{
			{Name: "Phrase", Value: ankiapptest.Str("Buenos días")},
			{Name: "Translation", Value: ankiapptest.Str("Good morning")},
		}},
	)
	return db
}

func sampleDB(pixel []byte) ankiapptest.DB {
	db := ankiapptest.Simple()
	db.Decks = append(db.Decks, ankiapptest.Deck{ID: "D2", Name: "Spanish::Animals", Description: "Animal names"})
	db.Layouts = append(db.Layouts, ankiapptest.Layout{
		ID:        "L2",
		Name:      "Vocabulary",
		Templates: `["{{[Word]}}", "{{[Word]}}<hr id=answer>{{[Meaning]}}<br>{{[Picture]}}"]`,
		Style:     ".card { font-family: serif; }",
		Fields:    []string{"Word", "Meaning", "Picture"},
	})
	db.Blobs = append(db.Blobs, ankiapptest.Blob{ID: "pixel", MIME: "image/png", Data: pixel})

	words := []struct{ id, word, meaning string }{
		{"V1", "perro", "dog"},
		{"V2", "gato", "cat"},
		{"V3", "pájaro", "bird"},
	}
	for _, w := range words {
		db.Cards = append(db.Cards, ankiapptest.Card{
			ID:       w.id,
			LayoutID: "L2",
			DeckID:   "D2",
			Values: []ankiapptest.Value{
				{Name: "Word", Value: ankiapptest.Str(w.word)},
				{Name: "Meaning", Value: ankiapptest.Str(w.meaning)},
				{Name: "Picture", Value: ankiapptest.Str("{{blob pixel}}")},
			},
			Tags: []string{"spanish", "animals"},
		})
	}
	return db
}

func sampleXML() string {
	return ankiapptest.ArchiveXML(
		ankiapptest.ArchiveDeck{
			Name:   "Capitals",
			Fields: []ankiapptest.ArchiveField{{Name: "Country", Sides: "10"}, {Name: "Capital", Sides: "01"}},
			Cards: []ankiapptest.ArchiveCard{
				{{Name: "Country", HTML: "France"}, {Name: "Capital", HTML: "Paris"}},
				{{Name: "Country", HTML: "Japan"}, {Name: "Capital", HTML: "Tokyo"}},
			},
		},
		ankiapptest.ArchiveDeck{
			Name:   "Shapes",
			Fields: []ankiapptest.ArchiveField{{Name: "Front", Sides: "10"}, {Name: "Back", Sides: "01"}},
			Cards: []ankiapptest.ArchiveCard{
				{{Name: "Front", HTML: "A single pixel"}, {Name: "Back", HTML: `<img id="pixel">`}},
			},
		},
	)
}
