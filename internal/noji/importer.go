// Package noji imports collections from the Noji REST API. AnkiPro runs on
// the same API and is imported by the same code under its own name.
package noji

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
	"github.com/abdnh/anki-copycat-importer/internal/richtext"
)

// PageSize is the number of notes requested per page.
const PageSize = 20

// Flavor is an application served by the Noji API.
type Flavor struct {
	Name   string
	Source config.Source
}

var (
	Noji    = Flavor{Name: "Noji", Source: config.SourceNoji}
	AnkiPro = Flavor{Name: "AnkiPro", Source: config.SourceAnkiPro}
)

// Stats counts what an import created.
type Stats struct {
	Decks     int
	NoteTypes int
	Media     int
	Cards     int
}

type Importer struct {
	flavor     Flavor
	opts       config.ImporterOptions
	collection importers.Collection
	progress   importers.Progress
	client     *httpclient.Client

	warnings importers.Warnings
	stats    Stats
}

type Option func(*Importer)

// WithClient sets the client used for API calls and media downloads.
func WithClient(c *httpclient.Client) Option {
	return func(i *Importer) { i.client = c }
}

// New returns an importer for flavor. opts.Token is required.
func New(flavor Flavor, opts config.ImporterOptions, collection importers.Collection, progress importers.Progress, options ...Option) (*Importer, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, importers.Errorf("Not logged in to %s.", flavor.Name)
	}
	if opts.APIURL == "" {
		opts.APIURL = config.DefaultNojiAPIURL
	}
	i := &Importer{
		flavor:     flavor,
		opts:       opts,
		collection: collection,
		progress:   progress,
	}
	for _, o := range options {
		o(i)
	}
	if i.client == nil {
		i.client = httpclient.New(
			httpclient.WithTimeout(opts.RequestTimeout),
			httpclient.WithUserAgent(opts.UserAgent),
		)
	}
	return i, nil
}

func (i *Importer) Name() string { return i.flavor.Name }

func (i *Importer) Warnings() []string { return i.warnings.List() }

// Stats returns the counts of the last run.
func (i *Importer) Stats() Stats { return i.stats }

// Import creates the decks and built-in note types, then pages through the
// notes of every deck and creates their cards right away.
func (i *Importer) Import(ctx context.Context) (int, error) {
	log := logutil.GetLogger(ctx).With(zap.String("importer", i.flavor.Name))
	session := importers.NewSession(i.progress, i.opts.ProgressInterval)
	api := NewAPI(i.client, i.opts.APIURL, i.opts.Token)

	fetched := newAttachments(i.client, &i.warnings)
	mediaOpts := []media.ResolverOption{
		media.WithPatterns(media.BlobRefPatterns()),
		media.WithWarn(i.warnings.Add),
	}
	if i.opts.DownloadMedia {
		mediaOpts = append(mediaOpts, media.WithFetcher(fetched))
	}
	resolver := media.NewResolver(i.collection, mediaOpts...)
	w := importers.NewWriter(i.collection, session, resolver, &i.warnings)
	if i.opts.SanitizeHTML {
		w.SetFilter(richtext.New())
	}
	defer func() {
		i.stats.Cards = w.Imported()
		i.stats.Media = resolver.Len()
	}()

	if err := session.Step("Fetching decks..."); err != nil {
		return 0, err
	}
	apiDecks, err := api.Decks(ctx)
	if err != nil {
		return 0, err
	}
	decks := make([]*importers.Deck, len(apiDecks))
	total := 0
	for n, d := range apiDecks {
		decks[n] = &importers.Deck{ID: strconv.FormatInt(d.ID, 10), Name: d.Name}
		total += d.CardsCount
	}
	if err := w.CreateDecks(ctx, decks); err != nil {
		return 0, err
	}
	i.stats.Decks = len(decks)

	noteTypes := NoteTypes(i.flavor)
	ordered := []*notetype.NoteType{noteTypes[KindBasic], noteTypes[KindReversed], noteTypes[KindCloze]}
	if err := w.CreateNoteTypes(ctx, ordered); err != nil {
		return 0, err
	}
	i.stats.NoteTypes = len(ordered)

	if err := session.Step("Importing cards..."); err != nil {
		return 0, err
	}
	seen := make(map[string]bool)
	for n, d := range apiDecks {
		for offset := 0; offset < d.CardsCount; offset += PageSize {
			notes, ok, err := api.Notes(ctx, d.ID, PageSize, offset)
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			cards, err := i.cardsForNotes(ctx, api, fetched, noteTypes, decks[n], d.ID, notes, seen)
			if err != nil {
				return 0, err
			}
			if err := w.CreateCards(ctx, cards, total); err != nil {
				return 0, err
			}
		}
		log.Debug("deck imported", zap.Int64("deck_id", d.ID), zap.String("deck", decks[n].Name))
	}

	log.Info("import finished", zap.Int("cards", w.Imported()), zap.Int("warnings", i.warnings.Len()))
	return w.Imported(), nil
}

// cardsForNotes fetches the cards of a page of notes and builds them. Cards
// already imported from another deck are skipped.
func (i *Importer) cardsForNotes(ctx context.Context, api *API, fetched *attachments, noteTypes map[Kind]*notetype.NoteType, deck *importers.Deck, deckID int64, notes []Note, seen map[string]bool) ([]*importers.Card, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	byID := make(map[string]*Note, len(notes))
	ids := make([]string, len(notes))
	for n := range notes {
		byID[notes[n].ID] = &notes[n]
		ids[n] = notes[n].ID
		fetched.register(&notes[n])
	}

	apiCards, err := api.Cards(ctx, deckID, ids)
	if err != nil {
		return nil, err
	}
	var cards []*importers.Card
	for n := range apiCards {
		c := &apiCards[n]
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		note, ok := byID[strings.SplitN(c.ID, "-", 2)[0]]
		if !ok {
			note = c
			fetched.register(c)
		}
		card := importers.NewCard(c.ID, deck, noteTypes[KindFor(c.Label.Type)])
		card.SetField("Front", sideContents(note, c, "front"))
		card.SetField("Back", sideContents(note, c, "back"))
		cards = append(cards, card)
	}
	return cards, nil
}

// sideContents renders one side of a card: attachment references joined by
// line breaks, then text-to-speech tags, then the side text.
func sideContents(note, card *Note, side string) string {
	var refs []string
	for _, id := range note.AttachmentIDs(side) {
		if _, ok := note.FieldAttachmentURLs[id]; ok {
			refs = append(refs, media.BlobRef(id))
		}
	}
	return strings.Join(refs, "<br>") + ttsTags(note.TextToSpeechMap[side]) + card.Fields[side+"_side"]
}

var _ importers.Importer = (*Importer)(nil)
