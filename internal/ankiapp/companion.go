package ankiapp

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/indexeddb"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

const (
	decksDatabase = "DecksDatabase"
	decksStore    = "decks"
)

// CompanionStore holds the deck configurations AnkiApp keeps in its
// IndexedDB folder. It never fails: read errors are logged and leave the
// store empty.
type CompanionStore struct {
	decks map[string]notetype.DeckConfig
}

func NewCompanionStore() *CompanionStore {
	return &CompanionStore{decks: make(map[string]notetype.DeckConfig)}
}

// LoadCompanionStore reads the decks object store of db.
func LoadCompanionStore(ctx context.Context, db IndexedDB) *CompanionStore {
	s := NewCompanionStore()
	log := logutil.GetLogger(ctx).With(zap.String("leveldb", db.LevelDB))
	skipped, err := s.read(db)
	if err != nil {
		log.Error("failed to read deck configuration from IndexedDB", zap.Error(err))
		return s
	}
	if skipped > 0 {
		log.Warn("undecodable deck records in IndexedDB", zap.Int("skipped", skipped))
	}
	log.Debug("decks extracted from IndexedDB", zap.Int("count", len(s.decks)))
	return s
}

func (s *CompanionStore) read(db IndexedDB) (int, error) {
	idb, err := indexeddb.Open(db.LevelDB, db.Blobs)
	if err != nil {
		return 0, err
	}
	defer idb.Close()

	d, store, err := idb.FindStore(decksDatabase, decksStore)
	if err != nil {
		return 0, err
	}
	records, skipped, err := idb.Records(d.ID, store.ID)
	if err != nil {
		return skipped, err
	}
	for _, rec := range records {
		s.Add(rec.Value)
	}
	return skipped, nil
}

// Add registers one decoded record. Records without a deckID are ignored.
func (s *CompanionStore) Add(record any) {
	obj, ok := record.(map[string]any)
	if !ok {
		return
	}
	deckID := stringValue(obj["deckID"])
	if deckID == "" {
		return
	}
	cfg, _ := obj["config"].(map[string]any)
	s.decks[deckID] = parseDeckConfig(cfg)
}

// Len returns the number of decks with a configuration.
func (s *CompanionStore) Len() int {
	return len(s.decks)
}

// NoteTypeForDeck implements notetype.DeckLayouts.
func (s *CompanionStore) NoteTypeForDeck(deckID, deckName string) *notetype.NoteType {
	if s == nil {
		return nil
	}
	cfg, ok := s.decks[deckID]
	if !ok {
		return nil
	}
	return notetype.FromDeckConfig(cfg, deckName)
}

func parseDeckConfig(cfg map[string]any) notetype.DeckConfig {
	out := notetype.DeckConfig{
		Name: stringValue(cfg["name"]),
		Base: stringValue(cfg["base"]),
	}
	fields, _ := cfg["fields"].([]any)
	for _, f := range fields {
		field, ok := f.(map[string]any)
		if !ok {
			continue
		}
		out.Fields = append(out.Fields, notetype.DeckConfigField{
			Name:  stringValue(field["name"]),
			Sides: parseSides(field["sides"]),
		})
	}
	return out
}

// parseSides accepts the shapes AnkiApp has used for a field's sides: a
// "10" style string or a two-element list of booleans or numbers.
func parseSides(v any) [2]bool {
	switch t := v.(type) {
	case string:
		return notetype.ParseSides(t)
	case []any:
		var sides [2]bool
		for i := 0; i < len(t) && i < 2; i++ {
			sides[i] = truthy(t[i])
		}
		return sides
	}
	return [2]bool{}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0"
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

var _ notetype.DeckLayouts = (*CompanionStore)(nil)
