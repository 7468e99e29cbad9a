// Package media handles the files referenced from imported card fields.
package media

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnrecognizedType = errors.New("unrecognized media type")
	ErrEmptyData        = errors.New("empty media data")
)

// Media is a file extracted from or downloaded for a source collection.
// Filename is set once the file has been written to the target collection.
type Media struct {
	ID       string
	MIME     string
	Ext      string
	Data     []byte
	Filename string
}

// New builds a Media, failing with ErrUnrecognizedType when no file
// extension is known for mimeType.
func New(id, mimeType string, data []byte) (*Media, error) {
	m := &Media{ID: id, MIME: mimeType, Data: data}
	ext, err := GuessExtension(mimeType)
	if err != nil {
		return m, err
	}
	m.Ext = ext
	return m, nil
}

// Name is the file name requested from the target collection.
func (m *Media) Name() string {
	return m.ID + m.Ext
}

var extensionOverrides = map[string]string{
	"image/webp": ".webp",
	"image/jp2":  ".jp2",
	"image/jpeg": ".jpg",
	"audio/mp3":  ".mp3",
	"audio/mpeg": ".mp3",
}

// GuessExtension returns the file extension, including the dot, for a MIME
// type. Parameters such as charset are ignored.
func GuessExtension(mimeType string) (string, error) {
	base := baseType(mimeType)
	if ext, ok := extensionOverrides[base]; ok {
		return ext, nil
	}
	if base != "" {
		if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
			return m.Extension(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnrecognizedType, mimeType)
}

func baseType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType, _, _ = strings.Cut(mimeType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// SniffMIME detects the MIME type of data from its content.
func SniffMIME(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyData
	}
	return baseType(mimetype.Detect(data).String()), nil
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "tif": true, "tiff": true,
	"gif": true, "svg": true, "webp": true, "ico": true, "avif": true,
}

// IsImageExt reports whether a file name has an image extension.
func IsImageExt(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	return imageExtensions[strings.ToLower(name[i+1:])]
}

// FilenameToLink returns the field markup referencing a media file: an image
// tag for images and a sound tag for everything else.
func FilenameToLink(name string) string {
	if IsImageExt(name) {
		return `<img src="` + quotePath(name) + `">`
	}
	return "[sound:" + soundEscaper.Replace(name) + "]"
}

var soundEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// FallbackLink is the placeholder inserted for media that could not be
// resolved.
func FallbackLink(id string) string {
	return `<img src="` + id + `.jpg"></img>`
}

func quotePath(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_.-~/", c) >= 0
}
