package ankiapp

import (
	"context"
	"errors"
	"net/url"

	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
	"github.com/abdnh/anki-copycat-importer/internal/media"
)

var errNoContentType = errors.New("response has no content type")

// BlobFetcher downloads media missing from the local database from
// AnkiApp's public blob server. Newer AnkiApp versions keep media in a
// separate store that cannot be linked back to blob ids.
type BlobFetcher struct {
	client  *httpclient.Client
	baseURL string
}

func NewBlobFetcher(client *httpclient.Client, baseURL string) *BlobFetcher {
	return &BlobFetcher{client: client, baseURL: baseURL}
}

// Fetch implements media.Fetcher.
func (f *BlobFetcher) Fetch(ctx context.Context, id string) (string, []byte, error) {
	data, contentType, err := f.client.GetBytes(ctx, httpclient.JoinURL(f.baseURL, url.PathEscape(id)), nil)
	if err != nil {
		return "", nil, err
	}
	if contentType == "" {
		return "", nil, errNoContentType
	}
	return contentType, data, nil
}

var _ media.Fetcher = (*BlobFetcher)(nil)
