package media

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultFailureCacheSize = 4096

// Store persists media files in the target collection and returns the
// name they were stored under.
type Store interface {
	WriteMedia(ctx context.Context, name string, data []byte) (string, error)
}

// Fetcher downloads a media file by its source id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (mimeType string, data []byte, err error)
}

// Resolver rewrites media references in field text to links to files in the
// target collection.
//
// Patterns are evaluated as an ordered chain: at every position the earliest
// match wins, ties go to the pattern listed first, and replaced text is not
// scanned again.
type Resolver struct {
	patterns []Pattern
	table    map[string]*Media
	store    Store
	fetcher  Fetcher
	failed   *lru.Cache[string, string] // id -> warning
	warn     func(string)
}

type ResolverOption func(*Resolver)

// WithFetcher enables downloading media missing from the table.
func WithFetcher(f Fetcher) ResolverOption {
	return func(r *Resolver) { r.fetcher = f }
}

// WithPatterns replaces the default pattern chain.
func WithPatterns(patterns []Pattern) ResolverOption {
	return func(r *Resolver) { r.patterns = patterns }
}

// WithWarn sets the callback receiving per-reference warnings.
func WithWarn(warn func(string)) ResolverOption {
	return func(r *Resolver) { r.warn = warn }
}

func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	failed, _ := lru.New[string, string](defaultFailureCacheSize)
	r := &Resolver{
		patterns: DefaultPatterns(),
		table:    make(map[string]*Media),
		store:    store,
		failed:   failed,
		warn:     func(string) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers media found during extraction.
func (r *Resolver) Add(m *Media) {
	r.table[m.ID] = m
}

func (r *Resolver) Get(id string) (*Media, bool) {
	m, ok := r.table[id]
	return m, ok
}

// Len returns the number of known media files.
func (r *Resolver) Len() int {
	return len(r.table)
}

// Pending returns the registered media that have not been written yet.
func (r *Resolver) Pending() []*Media {
	var out []*Media
	for _, m := range r.table {
		if m.Filename == "" {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Write stores m in the target collection and records its filename.
func (r *Resolver) Write(ctx context.Context, m *Media) error {
	name, err := r.store.WriteMedia(ctx, m.Name(), m.Data)
	if err != nil {
		return fmt.Errorf("failed to write media file %s: %w", m.Name(), err)
	}
	m.Filename = name
	r.table[m.ID] = m
	return nil
}

type match struct {
	start, end int
	pattern    Pattern
	id         string
}

func (r *Resolver) next(text string, pos int) (match, bool) {
	var best match
	found := false
	for _, p := range r.patterns {
		loc := p.Re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			continue
		}
		start := pos + loc[0]
		if found && start >= best.start {
			continue
		}
		shifted := make([]int, len(loc))
		for i, v := range loc {
			if v >= 0 {
				v += pos
			}
			shifted[i] = v
		}
		best = match{start: start, end: pos + loc[1], pattern: p, id: p.id(text, shifted)}
		found = true
	}
	return best, found
}

// Rewrite replaces every media reference in text. Unresolvable references
// are replaced with a placeholder image and reported through the warn
// callback; only failures of the store are returned as errors.
func (r *Resolver) Rewrite(ctx context.Context, text string) (string, error) {
	var b strings.Builder
	pos := 0
	for pos < len(text) {
		m, ok := r.next(text, pos)
		if !ok {
			break
		}
		b.WriteString(text[pos:m.start])
		repl, err := r.replacement(ctx, text[m.start:m.end], m)
		if err != nil {
			return "", err
		}
		b.WriteString(repl)
		pos = m.end
		if m.end == m.start {
			if pos < len(text) {
				b.WriteByte(text[pos])
			}
			pos++
		}
	}
	if pos < len(text) {
		b.WriteString(text[pos:])
	}
	return b.String(), nil
}

func (r *Resolver) replacement(ctx context.Context, original string, m match) (string, error) {
	if m.id == "" {
		return original, nil
	}
	if m.pattern.Native && (isExternal(m.id) || strings.HasPrefix(strings.ToLower(m.id), "data:")) {
		return original, nil
	}

	media, err := r.resolve(ctx, m.id)
	if err != nil {
		return "", err
	}
	if media == nil {
		return FallbackLink(m.id), nil
	}
	return FilenameToLink(media.Filename), nil
}

// resolve returns the written media for id, or nil after reporting why it
// could not be resolved.
func (r *Resolver) resolve(ctx context.Context, id string) (*Media, error) {
	if m, ok := r.table[id]; ok {
		if m.Filename == "" {
			if err := r.Write(ctx, m); err != nil {
				return nil, err
			}
		}
		return m, nil
	}

	if r.fetcher == nil {
		r.warn("Missing media file: " + id)
		return nil, nil
	}
	if msg, ok := r.failed.Get(id); ok {
		r.warn(msg)
		return nil, nil
	}

	mimeType, data, err := r.fetcher.Fetch(ctx, id)
	if err != nil {
		return r.fail(id, "Missing media file: "+id), nil
	}
	m, err := New(id, mimeType, data)
	if err != nil {
		return r.fail(id, fmt.Sprintf("unrecognized mime for media file %s: %s", id, mimeType)), nil
	}
	if err := r.Write(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// fail remembers that id could not be fetched so later references in the
// same run do not hit the network again.
func (r *Resolver) fail(id, msg string) *Media {
	r.failed.Add(id, msg)
	r.warn(msg)
	return nil
}
