package services

import (
	"fmt"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
)

// PathRequest is one local input of an AnkiApp import.
type PathRequest struct {
	Path string `json:"path"`
	Type string `json:"type"` // "dir", "db" or "zip"
}

// Request describes an import to run. Credentials and toggles left empty
// are taken from the settings store.
type Request struct {
	Source config.Source `json:"source"`
	Paths  []PathRequest `json:"paths,omitempty"`

	Token         string `json:"token,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	ClientToken   string `json:"client_token,omitempty"`
	ClientVersion string `json:"client_version,omitempty"`

	RemoteMedia   *bool `json:"remote_media,omitempty"`
	DownloadMedia *bool `json:"download_media,omitempty"`

	// TempFiles are removed once the run finishes.
	TempFiles []string `json:"-"`
}

// Validate checks the request before it is queued.
func (r Request) Validate() error {
	if !r.Source.Valid() {
		return importers.Errorf("Unknown import source %q.", r.Source)
	}
	if r.Source != config.SourceAnkiApp && len(r.Paths) > 0 {
		return importers.Errorf("%s imports do not take local files.", r.Source)
	}
	for _, p := range r.Paths {
		if _, err := importers.ParsePathType(p.Type); err != nil {
			return &importers.Error{Msg: "Invalid input " + p.Path, Err: err}
		}
	}
	return nil
}

// PathInfos converts the requested paths.
func (r Request) PathInfos() ([]importers.PathInfo, error) {
	infos := make([]importers.PathInfo, 0, len(r.Paths))
	for _, p := range r.Paths {
		t, err := importers.ParsePathType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("invalid input %s: %w", p.Path, err)
		}
		infos = append(infos, importers.PathInfo{Path: p.Path, Type: t})
	}
	return infos, nil
}

// apply overrides opts with the values set in r.
func (r Request) apply(opts *config.ImporterOptions) {
	if r.Token != "" {
		opts.Token = r.Token
	}
	if r.ClientID != "" {
		opts.ClientID = r.ClientID
	}
	if r.ClientToken != "" {
		opts.ClientToken = r.ClientToken
	}
	if r.ClientVersion != "" {
		opts.ClientVersion = r.ClientVersion
	}
	if r.RemoteMedia != nil {
		opts.RemoteMedia = *r.RemoteMedia
	}
	if r.DownloadMedia != nil {
		opts.DownloadMedia = *r.DownloadMedia
	}
}

// redacted returns r without credentials, for storage.
func (r Request) redacted() Request {
	r.Token = ""
	r.ClientToken = ""
	return r
}
