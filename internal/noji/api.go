package noji

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
)

// Deck is a deck as listed by the decks endpoint.
type Deck struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CardsCount int    `json:"totalCardsCount"`
}

// hierarchyNode is one entry of the deck tree returned next to the decks.
type hierarchyNode struct {
	ID       int64           `json:"id"`
	Children []hierarchyNode `json:"children"`
}

type deckList struct {
	Decks     []Deck          `json:"decks"`
	Hierarchy []hierarchyNode `json:"hierarchy"`
}

// TTS is a text-to-speech entry of a card side.
type TTS struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

type Label struct {
	Type string `json:"type"`
}

// Note is a note or card object. Notes and cards share the attachment and
// text-to-speech maps; cards also carry the side texts and a label.
type Note struct {
	ID                  string                       `json:"id"`
	Label               Label                        `json:"label"`
	Fields              map[string]string            `json:"fields"`
	FieldAttachmentURLs map[string]string            `json:"fieldAttachmentUrls"`
	FieldAttachmentsMap map[string][]json.RawMessage `json:"fieldAttachmentsMap"`
	TextToSpeechMap     map[string][]TTS             `json:"textToSpeechMap"`
}

// AttachmentIDs returns the ids of the attachments shown on side ("front"
// or "back"). Entries are either bare ids or objects with an id.
func (n *Note) AttachmentIDs(side string) []string {
	var ids []string
	for _, raw := range n.FieldAttachmentsMap[side+"_side"] {
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != nil {
			raw = obj.ID
		}
		if id := rawID(raw); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// API is the Noji REST API, shared by AnkiPro.
type API struct {
	client  *httpclient.Client
	baseURL string
	token   string
}

func NewAPI(client *httpclient.Client, baseURL, token string) *API {
	return &API{client: client, baseURL: baseURL, token: token}
}

func (a *API) get(ctx context.Context, path string, query url.Values, v any) error {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+a.token)
	return a.client.GetJSON(ctx, httpclient.JoinURL(a.baseURL, path), query, headers, v)
}

// Decks returns the decks in listing order with their names rewritten to
// the Parent::Child form of the hierarchy.
func (a *API) Decks(ctx context.Context) ([]Deck, error) {
	var list deckList
	if err := a.get(ctx, "decks", nil, &list); err != nil {
		return nil, err
	}
	byID := make(map[int64]*Deck, len(list.Decks))
	for i := range list.Decks {
		byID[list.Decks[i].ID] = &list.Decks[i]
	}
	var rename func(nodes []hierarchyNode, parent string)
	rename = func(nodes []hierarchyNode, parent string) {
		for _, node := range nodes {
			d, ok := byID[node.ID]
			if !ok {
				continue
			}
			if parent != "" {
				d.Name = parent + "::" + d.Name
			}
			rename(node.Children, d.Name)
		}
	}
	rename(list.Hierarchy, "")
	return list.Decks, nil
}

// Notes returns one page of the notes of a deck. ok is false when the
// server answered with something other than a list, which ends the deck.
func (a *API) Notes(ctx context.Context, deckID int64, limit, offset int) (notes []Note, ok bool, err error) {
	var raw json.RawMessage
	query := url.Values{
		"deck_id": {strconv.FormatInt(deckID, 10)},
		"limit":   {strconv.Itoa(limit)},
		"offset":  {strconv.Itoa(offset)},
	}
	if err := a.get(ctx, "notes", query, &raw); err != nil {
		return nil, false, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil, false, fmt.Errorf("failed to decode notes of deck %d: %w", deckID, err)
	}
	return notes, true, nil
}

// Cards returns the cards generated from the given notes.
func (a *API) Cards(ctx context.Context, deckID int64, noteIDs []string) ([]Note, error) {
	query := url.Values{
		"deck_id": {strconv.FormatInt(deckID, 10)},
		"ids":     {strings.Join(noteIDs, ",")},
	}
	var cards []Note
	if err := a.get(ctx, "notes/cards", query, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}
