package noji

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTSLang(t *testing.T) {
	tests := map[string]string{
		"en-us":      "en_US",
		"EN-GB":      "en_GB",
		"fr":         "fr",
		"zh-hant-tw": "zh_Hant_TW",
		"xx-!!":      "xx_!!",
	}
	for in, want := range tests {
		assert.Equal(t, want, ttsLang(in), in)
	}
}

func TestTTSTags(t *testing.T) {
	got := ttsTags([]TTS{{Language: "es-es", Text: "hola"}, {Language: "de", Text: "hallo"}})
	assert.Equal(t, "[anki:tts lang=es_ES]hola[/anki:tts][anki:tts lang=de]hallo[/anki:tts]", got)
	assert.Empty(t, ttsTags(nil))
}

func TestNote_AttachmentIDs(t *testing.T) {
	var n Note
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "n1",
		"fieldAttachmentsMap": {"front_side": [{"id": 5}, 6, "seven", {"other": 1}]}
	}`), &n))
	assert.Equal(t, []string{"5", "6", "seven"}, n.AttachmentIDs("front"))
	assert.Empty(t, n.AttachmentIDs("back"))
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, KindReversed, KindFor("reversed"))
	assert.Equal(t, KindCloze, KindFor("cloze"))
	assert.Equal(t, KindBasic, KindFor("basic"))
	assert.Equal(t, KindBasic, KindFor(""))
}
