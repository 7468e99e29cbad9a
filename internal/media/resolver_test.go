package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	files map[string][]byte
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: make(map[string][]byte)}
}

func (s *memoryStore) WriteMedia(_ context.Context, name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.files[name] = data
	return name, nil
}

type stubFetcher struct {
	mime  map[string]string
	calls map[string]int
}

func (f *stubFetcher) Fetch(_ context.Context, id string) (string, []byte, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[id]++
	mt, ok := f.mime[id]
	if !ok {
		return "", nil, errors.New("404")
	}
	return mt, []byte("data-" + id), nil
}

type warnings []string

func (w *warnings) add(s string) { *w = append(*w, s) }

func TestResolver_LocalBlob(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	var warns warnings
	r := NewResolver(store, WithWarn(warns.add))

	m, err := New("X", "image/png", []byte("png"))
	require.NoError(t, err)
	r.Add(m)
	require.Len(t, r.Pending(), 1)
	require.NoError(t, r.Write(ctx, m))
	assert.Empty(t, r.Pending())

	out, err := r.Rewrite(ctx, "before {{blob X}} after")
	require.NoError(t, err)
	assert.Equal(t, `before <img src="X.png"> after`, out)
	assert.Empty(t, warns)
	assert.Contains(t, store.files, "X.png")
}

func TestResolver_MissingWithoutRemote(t *testing.T) {
	var warns warnings
	r := NewResolver(newMemoryStore(), WithWarn(warns.add))

	out, err := r.Rewrite(context.Background(), "{{blob X}}")
	require.NoError(t, err)
	assert.Equal(t, `<img src="X.jpg"></img>`, out)
	assert.Equal(t, []string{"Missing media file: X"}, []string(warns))
}

func TestResolver_RemoteWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	fetcher := &stubFetcher{mime: map[string]string{"snd": "audio/mpeg", "odd": "application/x-nope"}}
	var warns warnings
	r := NewResolver(store, WithFetcher(fetcher), WithWarn(warns.add))

	out, err := r.Rewrite(ctx, `<audio id="snd" type="audio/mp3" /> and {{blob snd}}`)
	require.NoError(t, err)
	assert.Equal(t, `[sound:snd.mp3] and [sound:snd.mp3]`, out)
	assert.Equal(t, 1, fetcher.calls["snd"], "resolved media is registered in the table")
	assert.Equal(t, []byte("data-snd"), store.files["snd.mp3"])

	out, err = r.Rewrite(ctx, "{{blob odd}}{{blob odd}}")
	require.NoError(t, err)
	assert.Equal(t, `<img src="odd.jpg"></img><img src="odd.jpg"></img>`, out)
	assert.Equal(t, 1, fetcher.calls["odd"])
	assert.Equal(t, []string{
		"unrecognized mime for media file odd: application/x-nope",
		"unrecognized mime for media file odd: application/x-nope",
	}, []string(warns))

	warns = nil
	_, err = r.Rewrite(ctx, "{{blob gone}} {{blob gone}}")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls["gone"], "failed fetches are not retried")
	assert.Equal(t, []string{"Missing media file: gone", "Missing media file: gone"}, []string(warns))
}

func TestResolver_PatternChain(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newMemoryStore())
	for id, mt := range map[string]string{"a": "image/png", "b": "audio/mpeg", "c": "image/gif"} {
		m, err := New(id, mt, []byte(id))
		require.NoError(t, err)
		r.Add(m)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"double quoted id", `<img id="a">`, `<img src="a.png">`},
		{"single quoted id", `<img class='x' id='a'>`, `<img src="a.png">`},
		{"unquoted id", `<audio id=b>`, `[sound:b.mp3]`},
		{"native src", `<img src="c">`, `<img src="c.gif">`},
		{"src wins over id on the same tag", `<img id="a" src="c">`, `<img src="c.gif">`},
		{"sound tag", `[sound:b]`, `[sound:b.mp3]`},
		{"several", `{{blob a}}|<img id="c">|[sound:b]`, `<img src="a.png">|<img src="c.gif">|[sound:b.mp3]`},
		{"external url untouched", `<img src="https://example.com/a.png">`, `<img src="https://example.com/a.png">`},
		{"data uri untouched", `<img src="data:image/png;base64,AAAA">`, `<img src="data:image/png;base64,AAAA">`},
		{"no references", `plain <b>text</b>`, `plain <b>text</b>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Rewrite(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_RewrittenTextIsNotRescanned(t *testing.T) {
	r := NewResolver(newMemoryStore())
	m, err := New("a", "image/png", []byte("a"))
	require.NoError(t, err)
	r.Add(m)

	// The output of the first rewrite is itself a native reference to
	// "a.png", which is not in the table and must not be looked up.
	var warns warnings
	r.warn = warns.add
	got, err := r.Rewrite(context.Background(), "{{blob a}}")
	require.NoError(t, err)
	assert.Equal(t, `<img src="a.png">`, got)
	assert.Empty(t, warns)
}

func TestResolver_StoreErrorIsFatal(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")
	r := NewResolver(store)
	m, err := New("a", "image/png", []byte("a"))
	require.NoError(t, err)
	r.Add(m)

	_, err = r.Rewrite(context.Background(), "{{blob a}}")
	assert.ErrorContains(t, err, "disk full")
}

func TestResolver_BlobRefPatternsLeaveMarkupAlone(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(store, WithPatterns(BlobRefPatterns()))
	m, err := New("7", "image/png", []byte("png"))
	require.NoError(t, err)
	r.Add(m)

	got, err := r.Rewrite(context.Background(), `<img src="other.png">`+BlobRef("7"))
	require.NoError(t, err)
	assert.Equal(t, `<img src="other.png"><img src="7.png">`, got)
}
