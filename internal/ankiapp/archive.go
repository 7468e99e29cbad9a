package ankiapp

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/abdnh/anki-copycat-importer/internal/fieldset"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/notetype"
)

const blobsDir = "blobs/"

// ArchiveReader extracts collections from AnkiApp XML exports. Deck and card
// ids are assigned sequentially across every archive read by the same
// reader. Fields of a deck whose names differ only in case are kept apart
// by suffixing.
type ArchiveReader struct {
	session  *importers.Session
	warnings *importers.Warnings
	deckSeq  int
	cardSeq  int
}

func NewArchiveReader(session *importers.Session, warnings *importers.Warnings) *ArchiveReader {
	return &ArchiveReader{session: session, warnings: warnings}
}

// Read adds the decks, cards and media of the zip archive at zipPath to out.
func (a *ArchiveReader) Read(ctx context.Context, zipPath string, resolver *notetype.Resolver, out *Extraction) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return &importers.Error{Msg: "Failed to open AnkiApp export " + zipPath, Err: err}
	}
	defer zr.Close()

	documents := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case strings.EqualFold(path.Ext(f.Name), ".xml"):
			data, err := readZipFile(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", f.Name, err)
			}
			if err := a.readDocument(data, resolver, out); err != nil {
				return fmt.Errorf("failed to parse %s: %w", f.Name, err)
			}
			documents++
		case strings.HasPrefix(f.Name, blobsDir):
			id := strings.TrimPrefix(f.Name, blobsDir)
			if id == "" || f.FileInfo().IsDir() {
				continue
			}
			data, err := readZipFile(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", f.Name, err)
			}
			if m := a.blob(id, data); m != nil {
				out.Media = append(out.Media, m)
			}
		}
		if err := a.session.CheckCancel(); err != nil {
			return err
		}
	}
	if documents == 0 {
		return importers.Errorf("No AnkiApp decks found in %s", zipPath)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *ArchiveReader) blob(id string, data []byte) *media.Media {
	mimeType, err := media.SniffMIME(data)
	if err != nil {
		a.warnings.Addf("Failed to detect type of media file %s: %v", id, err)
		return nil
	}
	m, err := media.New(id, mimeType, data)
	if err != nil {
		a.warnings.Addf("unrecognized mime for media file %s: %s", id, mimeType)
		return nil
	}
	return m
}

// archiveDeck accumulates one <deck> element while it is being parsed.
type archiveDeck struct {
	deck        *importers.Deck
	fields      *fieldset.FieldSet
	front, back []string
	nt          *notetype.NoteType
}

// noteType builds the deck's note type once its field list is complete.
func (d *archiveDeck) noteType(resolver *notetype.Resolver) *notetype.NoteType {
	if d.nt == nil {
		d.nt = notetype.FromSides(d.deck.Name+" Notetype", d.fields, d.front, d.back)
		resolver.AddLayout(d.deck.ID, d.nt)
	}
	return d.nt
}

// readDocument walks an export document with the HTML tokenizer, which
// tolerates the markup AnkiApp embeds in field values. Only the structure
// deck > fields > * and deck > card > * is interpreted.
func (a *ArchiveReader) readDocument(data []byte, resolver *notetype.Resolver, out *Extraction) error {
	z := html.NewTokenizer(bytes.NewReader(data))
	z.AllowCDATA(true)

	var (
		stack   []string
		current *archiveDeck
		card    *importers.Card
		capture *fieldCapture
	)
	parent := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return nil
			}
			return z.Err()
		}

		if capture != nil {
			if capture.feed(tt, z) {
				name := current.nt.Fields.Normalize(capture.name)
				card.SetField(name, capture.String())
				current.nt.Fields.Add(capture.name)
				capture = nil
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			selfClosing := tt == html.SelfClosingTagToken || isVoid(tok.Data)
			switch {
			case tok.Data == "deck":
				a.deckSeq++
				d := &importers.Deck{ID: strconv.Itoa(a.deckSeq), Name: attr(tok, "name")}
				current = &archiveDeck{deck: d, fields: fieldset.NewWithPolicy(fieldset.Suffix)}
				out.addDeck(d)
			case current != nil && parent() == "fields":
				name := current.fields.Add(attr(tok, "name"))
				sides := attr(tok, "sides")
				if len(sides) > 0 && sides[0] == '1' {
					current.front = append(current.front, name)
				}
				if len(sides) > 1 && sides[1] == '1' {
					current.back = append(current.back, name)
				}
			case current != nil && tok.Data == "card":
				a.cardSeq++
				nt := current.noteType(resolver)
				card = importers.NewCard(strconv.Itoa(a.cardSeq), current.deck, nt)
				card.LayoutID = current.deck.ID
				out.Cards = append(out.Cards, card)
			case card != nil && parent() == "card":
				if selfClosing {
					card.SetField(current.nt.Fields.Normalize(attr(tok, "name")), "")
					current.nt.Fields.Add(attr(tok, "name"))
					continue
				}
				capture = &fieldCapture{tag: tok.Data, name: attr(tok, "name")}
				continue
			}
			if !selfClosing {
				stack = append(stack, tok.Data)
			}
		case html.EndTagToken:
			tok := z.Token()
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == tok.Data {
					stack = stack[:i]
					break
				}
			}
			switch tok.Data {
			case "deck":
				if current != nil {
					current.noteType(resolver)
				}
				current, card = nil, nil
			case "card":
				card = nil
			}
		}
	}
}

// fieldCapture collects the raw inner markup of one card field element.
type fieldCapture struct {
	tag   string
	name  string
	depth int
	buf   strings.Builder
}

// feed consumes one token and reports whether the field element was closed.
func (c *fieldCapture) feed(tt html.TokenType, z *html.Tokenizer) bool {
	raw := z.Raw()
	switch tt {
	case html.StartTagToken:
		name, _ := z.TagName()
		if string(name) == c.tag && !isVoid(c.tag) {
			c.depth++
		}
	case html.EndTagToken:
		name, _ := z.TagName()
		if string(name) == c.tag {
			if c.depth == 0 {
				return true
			}
			c.depth--
		}
	case html.TextToken:
		if s := string(raw); strings.HasPrefix(s, "<![CDATA[") {
			c.buf.WriteString(strings.TrimSuffix(strings.TrimPrefix(s, "<![CDATA["), "]]>"))
			return false
		}
	}
	c.buf.Write(raw)
	return false
}

func (c *fieldCapture) String() string {
	return c.buf.String()
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

func isVoid(tag string) bool {
	return voidElements[tag]
}
