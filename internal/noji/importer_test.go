package noji_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/importers/importertest"
	"github.com/abdnh/anki-copycat-importer/internal/noji"
)

type fakeAPI struct {
	t        *testing.T
	srv      *httptest.Server
	notes    map[string]any // deck_id -> response of /notes
	cards    map[string]any // ids -> response of /notes/cards
	decks    any
	requests []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{t: t, notes: map[string]any{}, cards: map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.URL.Path+"?"+r.URL.RawQuery)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body any
		switch r.URL.Path {
		case "/api/decks":
			body = f.decks
		case "/api/notes":
			body = f.notes[r.URL.Query().Get("deck_id")]
		case "/api/notes/cards":
			body = f.cards[r.URL.Query().Get("ids")]
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	})
	mux.HandleFunc("/media/11", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	})
	mux.HandleFunc("/media/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) options(download bool) config.ImporterOptions {
	return config.ImporterOptions{
		APIURL:        f.srv.URL + "/api/",
		Token:         "secret",
		DownloadMedia: download,
	}
}

func seedDecks(f *fakeAPI) {
	f.decks = map[string]any{
		"decks": []any{
			map[string]any{"id": 1, "name": "Parent", "totalCardsCount": 0},
			map[string]any{"id": 2, "name": "Child", "totalCardsCount": 3},
		},
		"hierarchy": []any{
			map[string]any{"id": 1, "children": []any{map[string]any{"id": 2}}},
		},
	}
	f.notes["2"] = []any{
		map[string]any{
			"id": "n1",
			"fieldAttachmentUrls": map[string]any{
				"11": f.srv.URL + "/media/11",
				"12": f.srv.URL + "/media/broken",
			},
			"fieldAttachmentsMap": map[string]any{
				"front_side": []any{map[string]any{"id": 11}},
				"back_side":  []any{12},
			},
			"textToSpeechMap": map[string]any{
				"front": []any{map[string]any{"language": "en-us", "text": "hi"}},
			},
		},
		map[string]any{"id": "n2"},
	}
	card := map[string]any{
		"id":     "n1-0",
		"label":  map[string]any{"type": "reversed"},
		"fields": map[string]any{"front_side": "hello", "back_side": "world"},
	}
	f.cards["n1,n2"] = []any{
		card,
		card,
		map[string]any{
			"id":     "n2",
			"label":  map[string]any{"type": "cloze"},
			"fields": map[string]any{"front_side": "{{c1::x}}", "back_side": ""},
		},
	}
}

func TestImporter_Import(t *testing.T) {
	f := newFakeAPI(t)
	seedDecks(f)
	coll := importertest.NewFakeCollection()

	imp, err := noji.New(noji.Noji, f.options(true), coll, nil)
	require.NoError(t, err)
	n, err := imp.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Noji", imp.Name())

	require.NotNil(t, coll.DeckByName("Parent"))
	child := coll.DeckByName("Parent::Child")
	require.NotNil(t, child)

	require.Len(t, coll.NoteTypes, 3)
	assert.Equal(t, "Noji Basic", coll.NoteTypes[0].Name)
	assert.Equal(t, "Noji Basic (and reversed card)", coll.NoteTypes[1].Name)
	assert.Len(t, coll.NoteTypes[1].Templates, 2)
	assert.Equal(t, "Noji Cloze", coll.NoteTypes[2].Name)
	assert.True(t, coll.NoteTypes[2].Cloze)

	require.Len(t, coll.Notes, 2)
	first := coll.Notes[0]
	assert.Equal(t, child.ID, first.DeckID)
	assert.Equal(t, coll.NoteTypes[1].ID, first.NoteTypeID)
	assert.Equal(t, `<img src="11.png">[anki:tts lang=en_US]hi[/anki:tts]hello`, first.Fields["Front"])
	assert.Equal(t, `<img src="12.jpg"></img>world`, first.Fields["Back"])

	second := coll.Notes[1]
	assert.Equal(t, coll.NoteTypes[2].ID, second.NoteTypeID)
	assert.Equal(t, "{{c1::x}}", second.Fields["Front"])
	assert.Equal(t, importers.EmptyFieldPlaceholder, second.Fields["Back"])

	assert.Equal(t, []byte("png"), coll.Media["11.png"])
	assert.Equal(t, []string{
		"Failed to download media file: " + f.srv.URL + "/media/broken",
		"Missing media file: 12",
	}, imp.Warnings())
	assert.Equal(t, noji.Stats{Decks: 2, NoteTypes: 3, Media: 1, Cards: 2}, imp.Stats())
}

func TestImporter_MediaDownloadDisabled(t *testing.T) {
	f := newFakeAPI(t)
	seedDecks(f)
	coll := importertest.NewFakeCollection()

	imp, err := noji.New(noji.AnkiPro, f.options(false), coll, nil)
	require.NoError(t, err)
	_, err = imp.Import(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "AnkiPro Basic", coll.NoteTypes[0].Name)
	assert.Empty(t, coll.Media)
	assert.Contains(t, coll.Notes[0].Fields["Front"], `<img src="11.jpg"></img>`)
	assert.Equal(t, []string{"Missing media file: 11", "Missing media file: 12"}, imp.Warnings())
	for _, r := range f.requests {
		assert.NotContains(t, r, "/media/")
	}
}

func TestImporter_NonListNotesEndsDeck(t *testing.T) {
	f := newFakeAPI(t)
	seedDecks(f)
	f.notes["2"] = map[string]any{"error": "nope"}
	coll := importertest.NewFakeCollection()

	imp, err := noji.New(noji.Noji, f.options(true), coll, nil)
	require.NoError(t, err)
	n, err := imp.Import(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, coll.Decks, 2)
}

func TestImporter_RequestFailed(t *testing.T) {
	f := newFakeAPI(t)
	opts := f.options(true)
	opts.Token = "wrong"

	imp, err := noji.New(noji.Noji, opts, importertest.NewFakeCollection(), nil)
	require.NoError(t, err)
	_, err = imp.Import(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Request to "+f.srv.URL+"/api/decks failed")
	assert.ErrorIs(t, err, importers.ErrRequestFailed)
}

func TestImporter_Cancel(t *testing.T) {
	f := newFakeAPI(t)
	seedDecks(f)
	coll := importertest.NewFakeCollection()
	progress := &importertest.ScriptedProgress{CancelAfter: 1}

	imp, err := noji.New(noji.Noji, f.options(true), coll, progress)
	require.NoError(t, err)
	n, err := imp.Import(context.Background())
	assert.ErrorIs(t, err, importers.ErrCanceled)
	assert.Zero(t, n)
	assert.Empty(t, f.requests)
}

func TestImporter_CancelAfterCardsReportsNoCount(t *testing.T) {
	f := newFakeAPI(t)
	seedDecks(f)
	full := &importertest.ScriptedProgress{}
	imp, err := noji.New(noji.Noji, f.options(false), importertest.NewFakeCollection(), full)
	require.NoError(t, err)
	_, err = imp.Import(context.Background())
	require.NoError(t, err)

	coll := importertest.NewFakeCollection()
	imp, err = noji.New(noji.Noji, f.options(false), coll, &importertest.ScriptedProgress{CancelAfter: full.Polls()})
	require.NoError(t, err)
	n, err := imp.Import(context.Background())
	assert.ErrorIs(t, err, importers.ErrCanceled)
	assert.Zero(t, n)
	assert.Len(t, coll.Notes, 2, "cards written before the cancel stay")
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := noji.New(noji.AnkiPro, config.ImporterOptions{}, importertest.NewFakeCollection(), nil)
	require.Error(t, err)
	assert.True(t, importers.IsUserError(err))
	assert.Equal(t, "Not logged in to AnkiPro.", err.Error())
}
