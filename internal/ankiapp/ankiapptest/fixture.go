// Package ankiapptest writes AnkiApp databases and XML exports for tests and
// manual runs.
package ankiapptest

import (
	"archive/zip"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abdnh/anki-copycat-importer/internal/indexeddb"
)

// Schema is the subset of the AnkiApp database schema the importer reads.
const Schema = `
CREATE TABLE layouts (id TEXT PRIMARY KEY, name TEXT, templates TEXT, style TEXT, created_at TEXT);
CREATE TABLE knol_keys_layouts (layout_id TEXT, knol_key_name TEXT);
CREATE TABLE decks (id TEXT PRIMARY KEY, created_at TEXT, name TEXT, description TEXT);
CREATE TABLE knol_blobs (id TEXT PRIMARY KEY, type TEXT, value TEXT);
CREATE TABLE cards (id TEXT PRIMARY KEY, knol_id TEXT, layout_id TEXT);
CREATE TABLE cards_decks (card_id TEXT, deck_id TEXT);
CREATE TABLE knol_values (knol_id TEXT, knol_key_name TEXT, value TEXT);
CREATE TABLE knols_tags (knol_id TEXT, tag_name TEXT);
`

type Layout struct {
	ID        string
	Name      string
	Templates string // JSON array
	Style     string
	Fields    []string
}

type Deck struct {
	ID          string
	Name        string
	Description string
}

type Blob struct {
	ID   string
	MIME string
	Data []byte
}

// Value is one field value of a card. A nil Value stores NULL.
type Value struct {
	Name  string
	Value *string
}

type Card struct {
	ID       string
	LayoutID string
	DeckID   string
	Values   []Value
	Tags     []string
}

// DB describes the contents of a fixture database.
type DB struct {
	Layouts []Layout
	Decks   []Deck
	Blobs   []Blob
	Cards   []Card
}

// Str returns a pointer to s for Value.
func Str(s string) *string { return &s }

// Simple is the minimal collection: one deck, one Front/Back layout and one
// tagged card.
func Simple() DB {
	return DB{
		Layouts: []Layout{{
			ID:        "L1",
			Name:      "Basic",
			Templates: `["{{[Front]}}", "{{[Front]}}<hr id=answer>{{[Back]}}"]`,
			Style:     ".card {}",
			Fields:    []string{"Front", "Back"},
		}},
		Decks: []Deck{{ID: "D1", Name: "basic deck", Description: "my basic deck"}},
		Cards: []Card{{
			ID:       "C1",
			LayoutID: "L1",
			DeckID:   "D1",
			Values:   []Value{{"Front", Str("front text")}, {"Back", Str("back text")}},
			Tags:     []string{"mytag"},
		}},
	}
}

// WriteDB creates a database at path holding db.
func WriteDB(path string, db DB) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	exec := func(query string, args ...any) {
		if err == nil {
			_, err = conn.Exec(query, args...)
		}
	}
	for _, l := range db.Layouts {
		exec("INSERT INTO layouts (id, name, templates, style) VALUES (?, ?, ?, ?)", l.ID, l.Name, l.Templates, l.Style)
		for _, f := range l.Fields {
			exec("INSERT INTO knol_keys_layouts (layout_id, knol_key_name) VALUES (?, ?)", l.ID, f)
		}
	}
	for _, d := range db.Decks {
		exec("INSERT INTO decks (id, created_at, name, description) VALUES (?, '', ?, ?)", d.ID, d.Name, d.Description)
	}
	for _, b := range db.Blobs {
		exec("INSERT INTO knol_blobs (id, type, value) VALUES (?, ?, ?)", b.ID, b.MIME, base64.StdEncoding.EncodeToString(b.Data))
	}
	for _, c := range db.Cards {
		knolID := "K" + c.ID
		exec("INSERT INTO cards (id, knol_id, layout_id) VALUES (?, ?, ?)", c.ID, knolID, c.LayoutID)
		exec("INSERT INTO cards_decks (card_id, deck_id) VALUES (?, ?)", c.ID, c.DeckID)
		for _, v := range c.Values {
			var value any
			if v.Value != nil {
				value = *v.Value
			}
			exec("INSERT INTO knol_values (knol_id, knol_key_name, value) VALUES (?, ?, ?)", knolID, v.Name, value)
		}
		for _, t := range c.Tags {
			exec("INSERT INTO knols_tags (knol_id, tag_name) VALUES (?, ?)", knolID, t)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert fixture rows: %w", err)
	}
	return nil
}

// WriteDataDir lays out an AnkiApp data folder under dir whose only
// database holds db.
func WriteDataDir(dir string, db DB) error {
	const origin = "file__0"
	databases := dir + "/databases"
	if err := os.MkdirAll(databases+"/"+origin, 0o755); err != nil {
		return err
	}
	index, err := sql.Open("sqlite3", databases+"/Databases.db")
	if err != nil {
		return err
	}
	defer index.Close()
	if _, err := index.Exec("CREATE TABLE Databases (id INTEGER PRIMARY KEY, origin TEXT, name TEXT)"); err != nil {
		return err
	}
	if _, err := index.Exec("INSERT INTO Databases (origin, name) VALUES (?, 'AnkiApp')", origin); err != nil {
		return err
	}
	return WriteDB(databases+"/"+origin+"/0000000000000001.db", db)
}

// CompanionDeck is the deck configuration AnkiApp keeps in IndexedDB.
type CompanionDeck struct {
	DeckID string
	Name   string
	Base   string
	Fields []ArchiveField
}

// WriteCompanion adds an IndexedDB folder holding decks to the data folder
// at dir.
func WriteCompanion(dir string, decks ...CompanionDeck) error {
	const origin = "https_app.ankiapp.com_0"
	base := dir + "/IndexedDB/" + origin + ".indexeddb"
	if err := os.MkdirAll(base+".blob", 0o755); err != nil {
		return err
	}
	records := make([]any, 0, len(decks))
	for _, d := range decks {
		fields := make([]any, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, map[string]any{"name": f.Name, "sides": f.Sides})
		}
		records = append(records, map[string]any{
			"deckID": d.DeckID,
			"config": map[string]any{"name": d.Name, "base": d.Base, "fields": fields},
		})
	}
	return indexeddb.WriteStore(base+".leveldb", origin, "DecksDatabase", "decks", records)
}

// ArchiveField declares a field of an archive deck. Sides uses the "10"
// notation.
type ArchiveField struct {
	Name  string
	Sides string
}

// ArchiveCard maps field names to their inner HTML.
type ArchiveCard []ArchiveValue

type ArchiveValue struct {
	Name string
	HTML string
}

type ArchiveDeck struct {
	Name   string
	Fields []ArchiveField
	Cards  []ArchiveCard
}

// ArchiveXML renders decks as an export document.
func ArchiveXML(decks ...ArchiveDeck) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<decks>\n")
	for _, d := range decks {
		fmt.Fprintf(&b, "<deck name=%q>\n<fields>\n", d.Name)
		for _, f := range d.Fields {
			fmt.Fprintf(&b, "<rich-text name=%q sides=%q/>\n", f.Name, f.Sides)
		}
		b.WriteString("</fields>\n<cards>\n")
		for _, c := range d.Cards {
			b.WriteString("<card>")
			for _, v := range c {
				fmt.Fprintf(&b, "<rich-text name=%q>%s</rich-text>", v.Name, v.HTML)
			}
			b.WriteString("</card>\n")
		}
		b.WriteString("</cards>\n</deck>\n")
	}
	b.WriteString("</decks>\n")
	return b.String()
}

// WriteZip creates an export archive at path with the given documents and
// blobs/ entries.
func WriteZip(path string, documents map[string]string, blobs map[string][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	write := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	for name, doc := range documents {
		if err := write(name, []byte(doc)); err != nil {
			f.Close()
			return err
		}
	}
	for id, data := range blobs {
		if err := write("blobs/"+id, data); err != nil {
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
