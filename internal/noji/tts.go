package noji

import (
	"strings"

	"golang.org/x/text/language"
)

// ttsLang converts a BCP 47 tag to the underscore form used in TTS tags,
// e.g. "en-us" to "en_US". Tags that do not parse are only lower-cased in
// their first part.
func ttsLang(tag string) string {
	if t, err := language.Parse(tag); err == nil {
		return strings.ReplaceAll(t.String(), "-", "_")
	}
	parts := strings.Split(tag, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "_")
}

// ttsTags renders the text-to-speech entries of a side.
func ttsTags(entries []TTS) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("[anki:tts lang=")
		b.WriteString(ttsLang(e.Language))
		b.WriteString("]")
		b.WriteString(e.Text)
		b.WriteString("[/anki:tts]")
	}
	return b.String()
}
