// Package ankiapp imports collections from the AnkiApp desktop application:
// its data folder, a single database file, or an XML export archive.
package ankiapp

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
	"github.com/abdnh/anki-copycat-importer/internal/richtext"
)

const Name = "AnkiApp"

// Extraction is what the readers found in the selected inputs.
type Extraction struct {
	Decks []*importers.Deck
	Cards []*importers.Card
	Media []*media.Media

	deckByID map[string]*importers.Deck
}

func (e *Extraction) addDeck(d *importers.Deck) {
	if e.deckByID == nil {
		e.deckByID = make(map[string]*importers.Deck)
	}
	e.deckByID[d.ID] = d
	e.Decks = append(e.Decks, d)
}

// Stats counts what an import created.
type Stats struct {
	Decks     int
	NoteTypes int
	Media     int
	Cards     int
}

// input is a validated PathInfo resolved to the files to read.
type input struct {
	info      importers.PathInfo
	dbPath    string
	companion *IndexedDB
}

type Importer struct {
	opts       config.ImporterOptions
	inputs     []input
	collection importers.Collection
	progress   importers.Progress
	client     *httpclient.Client

	warnings importers.Warnings
	stats    Stats
}

type Option func(*Importer)

// WithClient sets the client used to fetch media from the blob server.
func WithClient(c *httpclient.Client) Option {
	return func(i *Importer) { i.client = c }
}

// New validates paths and returns an importer for them. Problems with the
// inputs are reported as *importers.Error before anything is written.
func New(opts config.ImporterOptions, paths []importers.PathInfo, collection importers.Collection, progress importers.Progress, options ...Option) (*Importer, error) {
	if len(paths) == 0 {
		return nil, importers.Errorf("No AnkiApp data folder, database or export selected.")
	}
	i := &Importer{
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

	for _, p := range paths {
		in, err := resolveInput(p)
		if err != nil {
			return nil, err
		}
		i.inputs = append(i.inputs, in)
	}
	return i, nil
}

func resolveInput(p importers.PathInfo) (input, error) {
	info, err := os.Stat(p.Path)
	if err != nil {
		return input{}, importers.Errorf("File %s does not exist.", p.Path)
	}
	in := input{info: p}
	switch p.Type {
	case importers.DataDir:
		if !info.IsDir() {
			return input{}, importers.Errorf("%s is not a folder.", p.Path)
		}
		appData := AppData{Path: p.Path}
		dbs, err := appData.SQLiteDBs()
		if err != nil {
			return input{}, &importers.Error{Msg: "Unable to read the databases of the data folder.", Err: err}
		}
		if len(dbs) == 0 {
			return input{}, importers.Errorf("Unable to locate database file in data folder.")
		}
		in.dbPath = dbs[0]
		if idbs := appData.IndexedDBs(); len(idbs) > 0 {
			in.companion = &idbs[0]
		}
	case importers.DBPath:
		in.dbPath = p.Path
	case importers.XMLZip:
	default:
		return input{}, fmt.Errorf("unsupported input type %s", p.Type)
	}
	return in, nil
}

func (i *Importer) Name() string { return Name }

func (i *Importer) Warnings() []string { return i.warnings.List() }

// Stats returns the counts of the last run.
func (i *Importer) Stats() Stats { return i.stats }

// Import runs the extract states for every input, then writes the result
// into the collection.
func (i *Importer) Import(ctx context.Context) (int, error) {
	log := logutil.GetLogger(ctx).With(zap.String("importer", Name))
	session := importers.NewSession(i.progress, i.opts.ProgressInterval)

	var companion *CompanionStore
	for _, in := range i.inputs {
		if in.companion != nil {
			companion = LoadCompanionStore(ctx, *in.companion)
			break
		}
	}
	var layouts notetype.DeckLayouts
	if companion != nil {
		layouts = companion
	}
	resolver := notetype.NewResolver(layouts)
	resolver.PreferDeckConfig = i.opts.PreferDeckConfig

	out := &Extraction{}
	archives := NewArchiveReader(session, &i.warnings)
	for _, in := range i.inputs {
		var err error
		if in.info.Type == importers.XMLZip {
			if err = session.Step("Extracting AnkiApp export..."); err == nil {
				err = archives.Read(ctx, in.info.Path, resolver, out)
			}
		} else {
			err = i.extractDB(ctx, session, in.dbPath, resolver, out)
		}
		if err != nil {
			return 0, err
		}
	}
	bindDeckOverrides(out.Cards, resolver)
	log.Info("extracted collection",
		zap.Int("decks", len(out.Decks)),
		zap.Int("note_types", len(resolver.All())),
		zap.Int("media", len(out.Media)),
		zap.Int("cards", len(out.Cards)),
	)

	mediaOpts := []media.ResolverOption{media.WithWarn(i.warnings.Add)}
	if i.opts.RemoteMedia {
		mediaOpts = append(mediaOpts, media.WithFetcher(NewBlobFetcher(i.client, i.opts.BlobURL)))
	}
	mediaResolver := media.NewResolver(i.collection, mediaOpts...)
	for _, m := range out.Media {
		mediaResolver.Add(m)
	}

	w := importers.NewWriter(i.collection, session, mediaResolver, &i.warnings)
	if i.opts.SanitizeHTML {
		w.SetFilter(richtext.New())
	}
	defer func() {
		i.stats.Cards = w.Imported()
	}()

	if err := w.CreateDecks(ctx, out.Decks); err != nil {
		return 0, err
	}
	i.stats.Decks = len(out.Decks)
	if err := w.CreateNoteTypes(ctx, resolver.All()); err != nil {
		return 0, err
	}
	i.stats.NoteTypes = len(resolver.All())
	if err := w.WriteMedia(ctx); err != nil {
		return 0, err
	}
	if err := session.Step("Importing cards..."); err != nil {
		return 0, err
	}
	if err := w.CreateCards(ctx, out.Cards, len(out.Cards)); err != nil {
		return 0, err
	}
	// Note types recovered while resolving cards are created on first use.
	i.stats.NoteTypes = len(resolver.All())
	i.stats.Media = mediaResolver.Len()

	log.Info("import finished", zap.Int("cards", w.Imported()), zap.Int("warnings", i.warnings.Len()))
	return w.Imported(), nil
}

// bindDeckOverrides moves every card to the note type its deck and layout
// resolve to once extraction is over. A deck override may be recovered while
// a later card of the deck is read.
func bindDeckOverrides(cards []*importers.Card, resolver *notetype.Resolver) {
	for _, c := range cards {
		c.Rebind(resolver.ForDeck(c.Deck.ID, c.LayoutID))
	}
}

func (i *Importer) extractDB(ctx context.Context, session *importers.Session, path string, resolver *notetype.Resolver, out *Extraction) error {
	if err := session.Step("Extracting collection from AnkiApp database..."); err != nil {
		return err
	}
	r, err := OpenDB(path, session, &i.warnings)
	if err != nil {
		return err
	}
	defer r.Close()

	if ok, err := r.TableExists(ctx, "decks"); err != nil {
		return err
	} else if ok {
		if err := session.Step("Extracting decks..."); err != nil {
			return err
		}
		decks, err := r.Decks(ctx)
		if err != nil {
			return err
		}
		for _, d := range decks {
			out.addDeck(d)
		}
	}

	if ok, err := r.TableExists(ctx, "layouts"); err != nil {
		return err
	} else if ok {
		if err := session.Step("Extracting notetypes..."); err != nil {
			return err
		}
		if err := r.NoteTypes(ctx, resolver); err != nil {
			return err
		}
	}

	if ok, err := r.TableExists(ctx, "knol_blobs"); err != nil {
		return err
	} else if ok {
		if err := session.Step("Extracting media..."); err != nil {
			return err
		}
		found, err := r.Media(ctx)
		if err != nil {
			return err
		}
		out.Media = append(out.Media, found...)
	}

	if ok, err := r.TableExists(ctx, "cards"); err != nil {
		return err
	} else if ok {
		if err := session.Step("Extracting cards..."); err != nil {
			return err
		}
		cards, err := r.Cards(ctx, out.deckByID, resolver)
		if err != nil {
			return err
		}
		out.Cards = append(out.Cards, cards...)
	}
	return nil
}

var _ importers.Importer = (*Importer)(nil)
