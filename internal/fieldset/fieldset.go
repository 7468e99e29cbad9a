// Package fieldset holds the case-insensitive ordered collection of field
// names shared by note types and cards.
package fieldset

import (
	"fmt"
	"strings"
)

// Policy decides what happens when a name collides case-insensitively with
// a name already in the set.
type Policy int

const (
	// FirstWins keeps the first spelling and ignores later variants.
	FirstWins Policy = iota
	// Suffix stores colliding variants under a numbered name (Name_2, Name_3...).
	Suffix
)

func (p Policy) String() string {
	switch p {
	case FirstWins:
		return "first-wins"
	case Suffix:
		return "suffix"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// FieldSet is an insertion-ordered set of field names compared without
// regard to case.
type FieldSet struct {
	policy Policy
	names  []string
	index  map[string]string // lower-case -> stored spelling
	alias  map[string]string // exact original spelling -> stored spelling (Suffix only)
}

// New returns an empty set with the FirstWins policy.
func New(names ...string) *FieldSet {
	return NewWithPolicy(FirstWins, names...)
}

// NewWithPolicy returns an empty set with the given collision policy.
func NewWithPolicy(policy Policy, names ...string) *FieldSet {
	fs := &FieldSet{
		policy: policy,
		index:  make(map[string]string),
		alias:  make(map[string]string),
	}
	for _, name := range names {
		fs.Add(name)
	}
	return fs
}

// Policy returns the collision policy of the set.
func (fs *FieldSet) Policy() Policy {
	return fs.policy
}

// Add inserts name and returns the spelling under which it is stored.
func (fs *FieldSet) Add(name string) string {
	if stored, ok := fs.alias[name]; ok {
		return stored
	}
	key := strings.ToLower(name)
	stored, exists := fs.index[key]
	if !exists {
		fs.insert(name)
		return name
	}
	if fs.policy == FirstWins || stored == name {
		return stored
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, taken := fs.index[strings.ToLower(candidate)]; taken {
			continue
		}
		fs.insert(candidate)
		fs.alias[name] = candidate
		return candidate
	}
}

func (fs *FieldSet) insert(name string) {
	fs.names = append(fs.names, name)
	fs.index[strings.ToLower(name)] = name
}

// Contains reports whether a case-insensitive match of name is present.
func (fs *FieldSet) Contains(name string) bool {
	_, ok := fs.index[strings.ToLower(name)]
	return ok
}

// Normalize returns the stored spelling for name. Exact aliases produced by
// the Suffix policy win over case-insensitive matches. Unknown names are
// returned unchanged.
func (fs *FieldSet) Normalize(name string) string {
	if stored, ok := fs.alias[name]; ok {
		return stored
	}
	if stored, ok := fs.index[strings.ToLower(name)]; ok {
		return stored
	}
	return name
}

// Remove deletes the case-insensitive match of name, if any.
func (fs *FieldSet) Remove(name string) {
	key := strings.ToLower(name)
	stored, ok := fs.index[key]
	if !ok {
		return
	}
	delete(fs.index, key)
	for i, n := range fs.names {
		if n == stored {
			fs.names = append(fs.names[:i], fs.names[i+1:]...)
			break
		}
	}
	for from, to := range fs.alias {
		if to == stored {
			delete(fs.alias, from)
		}
	}
}

// Names returns the stored names in insertion order.
func (fs *FieldSet) Names() []string {
	out := make([]string, len(fs.names))
	copy(out, fs.names)
	return out
}

func (fs *FieldSet) Len() int {
	return len(fs.names)
}

// Merge adds every name of other to fs.
func (fs *FieldSet) Merge(other *FieldSet) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		fs.Add(name)
	}
}

// Equal reports whether both sets hold the same names ignoring case and order.
func (fs *FieldSet) Equal(other *FieldSet) bool {
	if other == nil {
		return fs.Len() == 0
	}
	if fs.Len() != other.Len() {
		return false
	}
	for key := range fs.index {
		if _, ok := other.index[key]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (fs *FieldSet) Clone() *FieldSet {
	c := NewWithPolicy(fs.policy)
	c.names = append(c.names, fs.names...)
	for k, v := range fs.index {
		c.index[k] = v
	}
	for k, v := range fs.alias {
		c.alias[k] = v
	}
	return c
}

func (fs *FieldSet) String() string {
	return "[" + strings.Join(fs.names, ", ") + "]"
}
