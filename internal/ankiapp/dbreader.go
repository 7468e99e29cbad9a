package ankiapp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

// DBReader extracts a collection from an AnkiApp sqlite database.
type DBReader struct {
	db       *sqlx.DB
	session  *importers.Session
	warnings *importers.Warnings
}

// OpenDB opens path read-only.
func OpenDB(path string, session *importers.Session, warnings *importers.Warnings) (*DBReader, error) {
	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, importers.Errorf("Failed to open AnkiApp database %s: %v", path, err)
	}
	return &DBReader{db: db, session: session, warnings: warnings}, nil
}

func (r *DBReader) Close() error {
	return r.db.Close()
}

// TableExists reports whether the database has a table called name.
func (r *DBReader) TableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return count > 0, nil
}

// rows runs query and hands every row to fn as a slice of column values.
// Only the leading columns are relied upon since the schema grew over time.
func (r *DBReader) rows(ctx context.Context, query string, fn func(cols []any) error, args ...any) error {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			return err
		}
		if err := fn(cols); err != nil {
			return err
		}
	}
	return rows.Err()
}

// NoteTypes registers every layout with resolver. Layouts whose templates
// cannot be used become the Fallback note type carrying their fields.
func (r *DBReader) NoteTypes(ctx context.Context, resolver *notetype.Resolver) error {
	type layout struct {
		id, name, templates, style string
	}
	var layouts []layout
	err := r.rows(ctx, "SELECT * FROM layouts", func(cols []any) error {
		if len(cols) < 4 {
			return fmt.Errorf("layouts table has %d columns, expected at least 4", len(cols))
		}
		layouts = append(layouts, layout{
			id:        asString(cols[0]),
			name:      asString(cols[1]),
			templates: asString(cols[2]),
			style:     asString(cols[3]),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read layouts: %w", err)
	}

	for _, l := range layouts {
		var names []string
		if err := r.db.SelectContext(ctx, &names, "SELECT knol_key_name FROM knol_keys_layouts WHERE layout_id = ?", l.id); err != nil {
			return fmt.Errorf("failed to read fields of layout %s: %w", l.id, err)
		}
		resolver.AddLayout(l.id, notetype.Resolve(l.name, fieldset.New(names...), l.style, l.templates))
		if err := r.session.CheckCancel(); err != nil {
			return err
		}
	}
	return nil
}

// Decks returns the decks in table order.
func (r *DBReader) Decks(ctx context.Context) ([]*importers.Deck, error) {
	var decks []*importers.Deck
	err := r.rows(ctx, "SELECT * FROM decks", func(cols []any) error {
		if len(cols) < 4 {
			return fmt.Errorf("decks table has %d columns, expected at least 4", len(cols))
		}
		decks = append(decks, &importers.Deck{
			ID:          asString(cols[0]),
			Name:        asString(cols[2]),
			Description: asString(cols[3]),
		})
		return r.session.CheckCancel()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}
	return decks, nil
}

type blobRow struct {
	ID    string         `db:"id"`
	Type  sql.NullString `db:"type"`
	Value sql.NullString `db:"value"`
}

// Media returns the media stored in the database. Entries with an unknown
// type or undecodable contents are reported as warnings and skipped.
func (r *DBReader) Media(ctx context.Context) ([]*media.Media, error) {
	rows, err := r.db.QueryxContext(ctx, "SELECT id, type, value FROM knol_blobs")
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	defer rows.Close()

	var out []*media.Media
	for rows.Next() {
		var row blobRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to read media: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(row.Value.String)
		if err != nil {
			r.warnings.Addf("Failed to decode media file %s: %v", row.ID, err)
			continue
		}
		m, err := media.New(row.ID, row.Type.String, data)
		if err != nil {
			r.warnings.Addf("unrecognized mime for media file %s: %s", row.ID, row.Type.String)
			continue
		}
		out = append(out, m)
		if err := r.session.CheckCancel(); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	return out, nil
}

type cardRow struct {
	ID       string `db:"id"`
	KnolID   string `db:"knol_id"`
	LayoutID string `db:"layout_id"`
	DeckID   string `db:"deck_id"`
}

type valueRow struct {
	Name  string         `db:"knol_key_name"`
	Value sql.NullString `db:"value"`
}

// Cards returns the cards of the database with their note types resolved.
// Field names discovered in card values are merged into the note type.
func (r *DBReader) Cards(ctx context.Context, decks map[string]*importers.Deck, resolver *notetype.Resolver) ([]*importers.Card, error) {
	var rows []cardRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT c.id, c.knol_id, c.layout_id, d.deck_id FROM cards c, cards_decks d WHERE c.id = d.card_id")
	if err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}

	log := logutil.GetLogger(ctx)
	var cards []*importers.Card
	for _, row := range rows {
		deck, ok := decks[row.DeckID]
		if !ok {
			r.warnings.Addf("Card %s belongs to unknown deck %s and was skipped", row.ID, row.DeckID)
			continue
		}
		nt := resolver.ForCard(row.LayoutID, row.DeckID, deck.Name)
		log.Debug("resolved note type",
			zap.String("card_id", row.ID),
			zap.String("layout_id", row.LayoutID),
			zap.String("deck_id", row.DeckID),
			zap.String("note_type", nt.Name),
			zap.Stringer("kind", nt.Kind),
		)

		card := importers.NewCard(row.ID, deck, nt)
		card.LayoutID = row.LayoutID

		var values []valueRow
		if err := r.db.SelectContext(ctx, &values, "SELECT knol_key_name, value FROM knol_values WHERE knol_id = ?", row.KnolID); err != nil {
			return nil, fmt.Errorf("failed to read fields of card %s: %w", row.ID, err)
		}
		for _, v := range values {
			if card.SetField(nt.Fields.Normalize(v.Name), v.Value.String) {
				r.warnings.Addf("Card %s has several values for field %q; only the first was kept", row.ID, v.Name)
			}
		}
		for _, name := range card.FieldNames() {
			nt.Fields.Add(name)
		}

		if err := r.db.SelectContext(ctx, &card.Tags, "SELECT tag_name FROM knols_tags WHERE knol_id = ?", row.KnolID); err != nil {
			return nil, fmt.Errorf("failed to read tags of card %s: %w", row.ID, err)
		}

		cards = append(cards, card)
		if err := r.session.CheckCancel(); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
