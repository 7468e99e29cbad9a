// Package importertest provides in-memory stand-ins for the collection and
// the progress reporter used by importers.
package importertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/abdnh/anki-copycat-importer/internal/importers"
)

// FakeDeck is a deck stored by FakeCollection.
type FakeDeck struct {
	ID          int64
	Name        string
	Description string
}

// FakeNoteType is a note type stored by FakeCollection.
type FakeNoteType struct {
	ID int64
	importers.NoteTypeSpec
}

// FakeNote is a note stored by FakeCollection.
type FakeNote struct {
	ID int64
	importers.NoteSpec
}

// FakeCollection is an in-memory importers.Collection.
type FakeCollection struct {
	mu sync.Mutex

	Decks     []*FakeDeck
	NoteTypes []*FakeNoteType
	Notes     []*FakeNote
	Media     map[string][]byte

	// FailNoteType makes AddNoteType fail for the note type with this name.
	FailNoteType string

	nextID int64
}

func NewFakeCollection() *FakeCollection {
	return &FakeCollection{Media: make(map[string][]byte)}
}

func (c *FakeCollection) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *FakeCollection) AddDeck(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.Decks {
		if strings.EqualFold(d.Name, name) {
			return d.ID, nil
		}
	}
	d := &FakeDeck{ID: c.id(), Name: name}
	c.Decks = append(c.Decks, d)
	return d.ID, nil
}

func (c *FakeCollection) deck(id int64) (*FakeDeck, error) {
	for _, d := range c.Decks {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("deck %d not found", id)
}

func (c *FakeCollection) DeckDescription(_ context.Context, id int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.deck(id)
	if err != nil {
		return "", err
	}
	return d.Description, nil
}

func (c *FakeCollection) SetDeckDescription(_ context.Context, id int64, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.deck(id)
	if err != nil {
		return err
	}
	d.Description = description
	return nil
}

func (c *FakeCollection) AddNoteType(_ context.Context, spec importers.NoteTypeSpec) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spec.Name == c.FailNoteType {
		return 0, errors.New("note type rejected")
	}
	nt := &FakeNoteType{ID: c.id(), NoteTypeSpec: spec}
	c.NoteTypes = append(c.NoteTypes, nt)
	return nt.ID, nil
}

func (c *FakeCollection) WriteMedia(_ context.Context, name string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Media[name] = data
	return name, nil
}

func (c *FakeCollection) AddNote(_ context.Context, spec importers.NoteSpec) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := &FakeNote{ID: c.id(), NoteSpec: spec}
	c.Notes = append(c.Notes, n)
	return n.ID, nil
}

// NoteType returns the stored note type with the given id.
func (c *FakeCollection) NoteType(id int64) *FakeNoteType {
	for _, nt := range c.NoteTypes {
		if nt.ID == id {
			return nt
		}
	}
	return nil
}

// DeckByName returns the stored deck with the given name.
func (c *FakeCollection) DeckByName(name string) *FakeDeck {
	for _, d := range c.Decks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// ScriptedProgress records updates and starts reporting cancellation after
// CancelAfter polls. A zero CancelAfter never cancels.
type ScriptedProgress struct {
	mu          sync.Mutex
	CancelAfter int
	Labels      []string
	polls       int
}

func (p *ScriptedProgress) Update(label string, _, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Labels = append(p.Labels, label)
}

func (p *ScriptedProgress) WantCancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	return p.CancelAfter > 0 && p.polls >= p.CancelAfter
}

// Polls returns how many times WantCancel was called.
func (p *ScriptedProgress) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

var (
	_ importers.Collection = (*FakeCollection)(nil)
	_ importers.Progress   = (*ScriptedProgress)(nil)
)
