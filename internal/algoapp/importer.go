// Package algoapp imports the decks of an AnkiApp online account.
package algoapp

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/ankiapp"
	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
	"github.com/abdnh/anki-copycat-importer/internal/richtext"
)

const Name = "AnkiApp Online"

// Stats counts what an import created.
type Stats struct {
	Decks     int
	NoteTypes int
	Media     int
	Cards     int
}

type Importer struct {
	opts       config.ImporterOptions
	collection importers.Collection
	progress   importers.Progress
	client     *httpclient.Client

	// note types by deck configuration, so decks sharing a layout share
	// a note type
	byConfig map[string]*notetype.NoteType
	fallback *notetype.NoteType
	created  []*notetype.NoteType

	warnings importers.Warnings
	stats    Stats
}

type Option func(*Importer)

// WithClient sets the client used for API calls and blob downloads. It must
// carry the credential headers.
func WithClient(c *httpclient.Client) Option {
	return func(i *Importer) { i.client = c }
}

// New returns an importer for the account identified by the credentials in
// opts. All three credentials are required.
func New(opts config.ImporterOptions, collection importers.Collection, progress importers.Progress, options ...Option) (*Importer, error) {
	creds := Credentials{ClientID: opts.ClientID, ClientToken: opts.ClientToken, ClientVersion: opts.ClientVersion}
	if !creds.complete() {
		return nil, importers.Errorf("Not logged in to AnkiApp.")
	}
	if opts.APIURL == "" {
		opts.APIURL = config.DefaultAlgoAppAPIURL
	}
	if opts.BlobURL == "" {
		opts.BlobURL = config.DefaultAnkiAppBlobURL
	}
	i := &Importer{
		opts:       opts,
		collection: collection,
		progress:   progress,
		byConfig:   make(map[string]*notetype.NoteType),
	}
	for _, o := range options {
		o(i)
	}
	if i.client == nil {
		clientOpts := append([]httpclient.Option{
			httpclient.WithTimeout(opts.RequestTimeout),
			httpclient.WithUserAgent(opts.UserAgent),
		}, ClientOptions(creds)...)
		i.client = httpclient.New(clientOpts...)
	}
	return i, nil
}

func (i *Importer) Name() string { return Name }

func (i *Importer) Warnings() []string { return i.warnings.List() }

// Stats returns the counts of the last run.
func (i *Importer) Stats() Stats { return i.stats }

// Import lists the decks of the account and imports them one at a time:
// deck, note type from the deck configuration, then its cards page by page.
func (i *Importer) Import(ctx context.Context) (int, error) {
	log := logutil.GetLogger(ctx).With(zap.String("importer", Name))
	session := importers.NewSession(i.progress, i.opts.ProgressInterval)
	api := NewAPI(i.client, i.opts.APIURL)

	mediaOpts := []media.ResolverOption{media.WithWarn(i.warnings.Add)}
	if i.opts.RemoteMedia {
		mediaOpts = append(mediaOpts, media.WithFetcher(ankiapp.NewBlobFetcher(i.client, i.opts.BlobURL)))
	}
	resolver := media.NewResolver(i.collection, mediaOpts...)
	w := importers.NewWriter(i.collection, session, resolver, &i.warnings)
	if i.opts.SanitizeHTML {
		w.SetFilter(richtext.New())
	}
	defer func() {
		i.stats.Cards = w.Imported()
		i.stats.Media = resolver.Len()
		i.stats.NoteTypes = len(i.created)
	}()

	if err := session.Step("Fetching decks..."); err != nil {
		return 0, err
	}
	decks, err := api.AllDecks(ctx)
	if err != nil {
		return 0, err
	}
	log.Info("decks listed", zap.Int("count", len(decks)))

	for _, d := range decks {
		if err := session.Step("Importing deck " + d.Name + "..."); err != nil {
			return 0, err
		}
		if err := i.importDeck(ctx, api, w, d); err != nil {
			return 0, err
		}
		i.stats.Decks++
	}

	log.Info("import finished", zap.Int("cards", w.Imported()), zap.Int("warnings", i.warnings.Len()))
	return w.Imported(), nil
}

func (i *Importer) importDeck(ctx context.Context, api *API, w *importers.Writer, d Deck) error {
	deck := &importers.Deck{ID: d.ID, Name: d.Name, Description: d.Description}
	if err := w.CreateDeck(ctx, deck); err != nil {
		return err
	}

	cfg, err := api.DeckConfig(ctx, d.ID)
	if err != nil {
		return err
	}
	nt := i.noteTypeFor(cfg, d.Name)

	for offset := 0; ; offset += PageSize {
		page, more, err := api.Cards(ctx, d.ID, offset)
		if err != nil {
			return err
		}
		cards := make([]*importers.Card, 0, len(page))
		for _, c := range page {
			cards = append(cards, i.buildCard(c, deck, nt))
		}
		nt = i.ensureFields(nt, cards)
		if err := i.createNoteType(ctx, w, nt); err != nil {
			return err
		}
		if err := w.CreateCards(ctx, cards, 0); err != nil {
			return err
		}
		if !more || len(page) == 0 {
			return nil
		}
	}
}

// noteTypeFor returns the note type of a deck with the given configuration.
// Decks without a usable configuration share the Fallback.
func (i *Importer) noteTypeFor(cfg *DeckConfig, deckName string) *notetype.NoteType {
	if cfg != nil {
		key, _ := json.Marshal(cfg)
		if nt, ok := i.byConfig[string(key)]; ok {
			return nt
		}
		if nt := notetype.FromDeckConfig(cfg.NoteTypeConfig(), deckName); nt != nil {
			i.byConfig[string(key)] = nt
			return nt
		}
	}
	if i.fallback == nil {
		i.fallback = notetype.Fallback(nil, "")
	}
	return i.fallback
}

// buildCard converts an API card. Field names are matched to the note type
// case-insensitively and new names are added to it.
func (i *Importer) buildCard(c Card, deck *importers.Deck, nt *notetype.NoteType) *importers.Card {
	card := importers.NewCard(c.ID, deck, nt)
	for _, name := range slices.Sorted(maps.Keys(c.Fields)) {
		if card.SetField(nt.Fields.Normalize(name), c.Fields[name]) {
			i.warnings.Addf("Card %s has several values for field %q; only the first was kept", c.ID, name)
		}
	}
	card.Tags = c.Tags
	return card
}

// ensureFields makes sure nt declares every field used by cards. Field names
// are merged into a note type not created yet. A Fallback that was already
// created is replaced by a new one carrying the extra fields.
func (i *Importer) ensureFields(nt *notetype.NoteType, cards []*importers.Card) *notetype.NoteType {
	extra := fieldset.New()
	for _, c := range cards {
		for _, name := range c.FieldNames() {
			if !nt.Fields.Contains(name) {
				extra.Add(name)
			}
		}
	}
	if extra.Len() == 0 {
		return nt
	}
	if _, created := nt.ID(); !created {
		nt.Fields.Merge(extra)
		return nt
	}
	if !nt.IsFallback() {
		// the writer drops the unknown fields with a warning
		return nt
	}
	merged := nt.Fields.Clone()
	merged.Merge(extra)
	replacement := notetype.Fallback(merged, "")
	i.fallback = replacement
	for _, c := range cards {
		if c.NoteType == nt {
			c.NoteType = replacement
		}
	}
	return replacement
}

func (i *Importer) createNoteType(ctx context.Context, w *importers.Writer, nt *notetype.NoteType) error {
	if _, ok := nt.ID(); ok {
		return nil
	}
	if err := w.CreateNoteType(ctx, nt); err != nil {
		return err
	}
	i.created = append(i.created, nt)
	return nil
}

var _ importers.Importer = (*Importer)(nil)
