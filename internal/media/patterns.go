package media

import "regexp"

// Pattern is one kind of media reference found in field text. The reference
// id is captured by the "fname" group. Native patterns match the target
// collection's own markup.
type Pattern struct {
	Name   string
	Re     *regexp.Regexp
	Native bool
}

func (p Pattern) id(text string, loc []int) string {
	i := p.Re.SubexpIndex("fname")
	if i < 0 || loc[2*i] < 0 {
		return ""
	}
	return text[loc[2*i]:loc[2*i+1]]
}

// NativePatterns match the media markup of the target collection.
func NativePatterns() []Pattern {
	return []Pattern{
		{Name: "src-dquote", Native: true, Re: regexp.MustCompile(`(?i)<(?:img|audio)\b[^>]* src="(?P<fname>[^>]+?)"[^>]*>`)},
		{Name: "src-squote", Native: true, Re: regexp.MustCompile(`(?i)<(?:img|audio)\b[^>]* src='(?P<fname>[^>]+?)'[^>]*>`)},
		{Name: "src-bare", Native: true, Re: regexp.MustCompile(`(?i)<(?:img|audio)\b[^>]* src=(?P<fname>[^ >'"][^ >]*)[^>]*?>`)},
		{Name: "data-dquote", Native: true, Re: regexp.MustCompile(`(?i)<object\b[^>]* data="(?P<fname>[^>]+?)"[^>]*>`)},
		{Name: "data-squote", Native: true, Re: regexp.MustCompile(`(?i)<object\b[^>]* data='(?P<fname>[^>]+?)'[^>]*>`)},
		{Name: "data-bare", Native: true, Re: regexp.MustCompile(`(?i)<object\b[^>]* data=(?P<fname>[^ >'"][^ >]*)[^>]*?>`)},
		{Name: "sound", Native: true, Re: regexp.MustCompile(`(?i)\[sound:(?P<fname>[^\]]+)\]`)},
	}
}

// BlobPatterns match the proprietary references used by AnkiApp.
func BlobPatterns() []Pattern {
	return []Pattern{
		{Name: "blob", Re: regexp.MustCompile(`\{\{blob (?P<fname>.*?)\}\}`)},
		{Name: "id-dquote", Re: regexp.MustCompile(`(?i)<(?:img|audio)\b[^>]* id="(?P<fname>[^>]+?)"[^>]*>`)},
		{Name: "id-squote", Re: regexp.MustCompile(`(?i)<(?:img|audio)\b[^>]* id='(?P<fname>[^>]+?)'[^>]*>`)},
		{Name: "id-bare", Re: regexp.MustCompile(`(?i)<(?:img|audio)\b[^>]* id=(?P<fname>[^ >'"][^ >]*)[^>]*?>`)},
	}
}

// BlobRef returns a {{blob ID}} reference to id.
func BlobRef(id string) string {
	return "{{blob " + id + "}}"
}

// BlobRefPatterns matches {{blob ID}} references only. Importers that insert
// those references themselves use it to leave the source markup alone.
func BlobRefPatterns() []Pattern {
	return BlobPatterns()[:1]
}

// DefaultPatterns is the full chain in evaluation order.
func DefaultPatterns() []Pattern {
	return append(NativePatterns(), BlobPatterns()...)
}

var externalRef = regexp.MustCompile(`(?i)^(?:[a-z][a-z0-9+.-]*:|//)`)

// isExternal reports whether a reference points outside the media folder.
func isExternal(ref string) bool {
	return externalRef.MatchString(ref)
}
