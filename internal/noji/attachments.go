package noji

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/media"
)

const downloadCacheSize = 256

var errUnknownAttachment = errors.New("unknown attachment")

type download struct {
	mimeType string
	data     []byte
}

// attachments downloads note attachments by id. The URL of an id is learned
// from the notes as they are read; downloads are cached by URL.
type attachments struct {
	client   *httpclient.Client
	warnings *importers.Warnings

	mu    sync.Mutex
	urls  map[string]string
	cache *lru.Cache[string, download]
}

func newAttachments(client *httpclient.Client, warnings *importers.Warnings) *attachments {
	cache, _ := lru.New[string, download](downloadCacheSize)
	return &attachments{
		client:   client,
		warnings: warnings,
		urls:     make(map[string]string),
		cache:    cache,
	}
}

// register records the attachment URLs of a note.
func (a *attachments) register(n *Note) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, u := range n.FieldAttachmentURLs {
		a.urls[id] = u
	}
}

// Fetch implements media.Fetcher.
func (a *attachments) Fetch(ctx context.Context, id string) (string, []byte, error) {
	a.mu.Lock()
	u, ok := a.urls[id]
	a.mu.Unlock()
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", errUnknownAttachment, id)
	}
	if d, ok := a.cache.Get(u); ok {
		return d.mimeType, d.data, nil
	}

	data, mimeType, err := a.client.GetBytes(ctx, u, nil)
	if err != nil {
		a.warnings.Add("Failed to download media file: " + u)
		return "", nil, err
	}
	if mimeType == "" {
		return "", nil, fmt.Errorf("no content type for %s", u)
	}
	a.cache.Add(u, download{mimeType: mimeType, data: data})
	return mimeType, data, nil
}

var _ media.Fetcher = (*attachments)(nil)
