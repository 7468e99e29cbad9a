package notetype

// DeckLayouts recovers a note type from deck-level configuration. It returns
// nil when nothing usable is known about the deck.
type DeckLayouts interface {
	NoteTypeForDeck(deckID, deckName string) *NoteType
}

// Resolver decides which note type a card uses. Layout note types are keyed
// by the source layout id; deck overrides, recovered from deck configuration,
// are keyed by deck id and take precedence once set.
type Resolver struct {
	// PreferDeckConfig consults deck configuration for every deck, not only
	// for cards whose layout is missing or unusable.
	PreferDeckConfig bool

	companion DeckLayouts
	layouts   map[string]*NoteType
	decks     map[string]*NoteType
	tried     map[string]bool
	order     []*NoteType
	seen      map[*NoteType]bool
}

// NewResolver returns a resolver backed by companion, which may be nil.
func NewResolver(companion DeckLayouts) *Resolver {
	return &Resolver{
		companion: companion,
		layouts:   make(map[string]*NoteType),
		decks:     make(map[string]*NoteType),
		tried:     make(map[string]bool),
		seen:      make(map[*NoteType]bool),
	}
}

func (r *Resolver) track(nt *NoteType) {
	if nt == nil || r.seen[nt] {
		return
	}
	r.seen[nt] = true
	r.order = append(r.order, nt)
}

// AddLayout registers the note type of a source layout.
func (r *Resolver) AddLayout(layoutID string, nt *NoteType) {
	r.layouts[layoutID] = nt
	r.track(nt)
}

// Layout returns the note type registered for layoutID.
func (r *Resolver) Layout(layoutID string) (*NoteType, bool) {
	nt, ok := r.layouts[layoutID]
	return nt, ok
}

// SetDeckOverride makes nt the note type of every card in deckID.
func (r *Resolver) SetDeckOverride(deckID string, nt *NoteType) {
	r.decks[deckID] = nt
	r.track(nt)
}

// DeckOverride returns the override registered for deckID.
func (r *Resolver) DeckOverride(deckID string) (*NoteType, bool) {
	nt, ok := r.decks[deckID]
	return nt, ok
}

func (r *Resolver) fromCompanion(deckID, deckName string) *NoteType {
	if r.companion == nil || r.tried[deckID] {
		return nil
	}
	r.tried[deckID] = true
	return r.companion.NoteTypeForDeck(deckID, deckName)
}

// ForCard returns the note type of a card with the given layout in the given
// deck, recording any note type it had to recover along the way.
//
// A deck override always wins. A layout that is unknown is recovered from
// deck configuration, or replaced by the Fallback, and remembered under the
// layout id. A layout that is the Fallback is replaced by the deck
// configuration when one exists, which is remembered as a deck override.
func (r *Resolver) ForCard(layoutID, deckID, deckName string) *NoteType {
	if nt, ok := r.decks[deckID]; ok {
		return nt
	}
	if r.PreferDeckConfig {
		if nt := r.fromCompanion(deckID, deckName); nt != nil {
			r.SetDeckOverride(deckID, nt)
			return nt
		}
	}

	nt, ok := r.layouts[layoutID]
	switch {
	case !ok:
		nt = r.fromCompanion(deckID, deckName)
		if nt == nil {
			nt = Fallback(nil, "")
		}
		r.AddLayout(layoutID, nt)
		return nt
	case nt.IsFallback():
		if recovered := r.fromCompanion(deckID, deckName); recovered != nil {
			r.SetDeckOverride(deckID, recovered)
			return recovered
		}
		return nt
	default:
		return nt
	}
}

// ForDeck returns the note type cards of layoutID in deckID were assigned.
func (r *Resolver) ForDeck(deckID, layoutID string) *NoteType {
	if nt, ok := r.decks[deckID]; ok {
		return nt
	}
	return r.layouts[layoutID]
}

// All returns every distinct note type in registration order.
func (r *Resolver) All() []*NoteType {
	out := make([]*NoteType, len(r.order))
	copy(out, r.order)
	return out
}
