package algoapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

// PageSize is the number of decks or cards requested per page.
const PageSize = 50

// Credentials identify a logged-in AnkiApp client.
type Credentials struct {
	ClientID      string
	ClientToken   string
	ClientVersion string
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientToken != "" && c.ClientVersion != ""
}

type Deck struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type deckPage struct {
	Decks   []Deck `json:"decks"`
	HasMore bool   `json:"has_more"`
}

// Sides is a field's visibility per card side. The API sends either the
// "10" notation or a list of booleans.
type Sides [2]bool

func (s *Sides) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = notetype.ParseSides(str)
		return nil
	}
	var list []bool
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("invalid sides %s", b)
	}
	*s = Sides{}
	for i := 0; i < len(list) && i < 2; i++ {
		s[i] = list[i]
	}
	return nil
}

type configField struct {
	Name  string `json:"name"`
	Sides Sides  `json:"sides"`
}

// DeckConfig is the layout configuration of a deck.
type DeckConfig struct {
	Name   string        `json:"name"`
	Base   string        `json:"base"`
	Fields []configField `json:"fields"`
}

// NoteTypeConfig converts c to the form the note type builder takes.
func (c DeckConfig) NoteTypeConfig() notetype.DeckConfig {
	out := notetype.DeckConfig{Name: c.Name, Base: c.Base}
	for _, f := range c.Fields {
		out.Fields = append(out.Fields, notetype.DeckConfigField{Name: f.Name, Sides: f.Sides})
	}
	return out
}

type deckDetails struct {
	Config *DeckConfig `json:"config"`
}

type Card struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
	Tags   []string          `json:"tags"`
}

type cardPage struct {
	Cards   []Card `json:"cards"`
	HasMore bool   `json:"has_more"`
}

// API is the AnkiApp online API. Every request carries the client
// credentials as headers.
type API struct {
	client  *httpclient.Client
	baseURL string
}

// NewAPI returns an API using client, which must already carry the
// credential headers (see ClientOptions).
func NewAPI(client *httpclient.Client, baseURL string) *API {
	return &API{client: client, baseURL: baseURL}
}

// ClientOptions returns the httpclient options sending creds.
func ClientOptions(creds Credentials) []httpclient.Option {
	return []httpclient.Option{
		httpclient.WithHeader("X-Client-Id", creds.ClientID),
		httpclient.WithHeader("X-Client-Token", creds.ClientToken),
		httpclient.WithHeader("X-Client-Version", creds.ClientVersion),
	}
}

func pageQuery(offset int) url.Values {
	return url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(PageSize)},
	}
}

// Decks returns one page of decks and whether more follow.
func (a *API) Decks(ctx context.Context, offset int) ([]Deck, bool, error) {
	var page deckPage
	if err := a.client.GetJSON(ctx, httpclient.JoinURL(a.baseURL, "decks"), pageQuery(offset), nil, &page); err != nil {
		return nil, false, err
	}
	return page.Decks, page.HasMore, nil
}

// AllDecks pages through every deck.
func (a *API) AllDecks(ctx context.Context) ([]Deck, error) {
	var decks []Deck
	for offset := 0; ; offset += PageSize {
		page, more, err := a.Decks(ctx, offset)
		if err != nil {
			return nil, err
		}
		decks = append(decks, page...)
		if !more || len(page) == 0 {
			return decks, nil
		}
	}
}

// DeckConfig returns the layout configuration of a deck, or nil when it
// has none.
func (a *API) DeckConfig(ctx context.Context, deckID string) (*DeckConfig, error) {
	var details deckDetails
	if err := a.client.GetJSON(ctx, httpclient.JoinURL(a.baseURL, "decks/"+url.PathEscape(deckID)), nil, nil, &details); err != nil {
		return nil, err
	}
	return details.Config, nil
}

// Cards returns one page of the cards of a deck and whether more follow.
func (a *API) Cards(ctx context.Context, deckID string, offset int) ([]Card, bool, error) {
	var page cardPage
	u := httpclient.JoinURL(a.baseURL, "decks/"+url.PathEscape(deckID)+"/cards")
	if err := a.client.GetJSON(ctx, u, pageQuery(offset), nil, &page); err != nil {
		return nil, false, err
	}
	return page.Cards, page.HasMore, nil
}
