package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8199), cfg.HTTP.Port)
	assert.Equal(t, DefaultCollectionPath, cfg.Collection.Path)
	assert.True(t, cfg.Importers.RemoteMedia)
	assert.Equal(t, 30*time.Second, cfg.Importers.RequestTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Importers.ProgressInterval)
	assert.Equal(t, DefaultNojiAPIURL, cfg.Noji.APIURL)
	assert.Equal(t, "0 3 * * *", cfg.Tasks.MaintenanceSchedule)
	assert.Equal(t, 90, cfg.Tasks.RunRetentionDays)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("REMOTE_MEDIA", "false")
	t.Setenv("ALGOAPP_CLIENT_ID", "id")
	t.Setenv("PROGRESS_INTERVAL", "1s")

	cfg := NewConfig()

	assert.False(t, cfg.Importers.RemoteMedia)
	assert.Equal(t, "id", cfg.AlgoApp.ClientID)
	assert.Equal(t, time.Second, cfg.Importers.ProgressInterval)
}

func TestNewConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copycat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("noji_token: from-file\n"), 0o600))
	t.Setenv("COPYCAT_CONFIG", path)

	cfg := NewConfig()
	assert.Equal(t, "from-file", cfg.Noji.Token)
}

func TestImporterOptions(t *testing.T) {
	cfg := NewConfig()
	cfg.Noji.Token = "noji"
	cfg.Noji.AnkiProToken = "pro"

	assert.Equal(t, "noji", cfg.ImporterOptions(SourceNoji).Token)
	assert.Equal(t, "pro", cfg.ImporterOptions(SourceAnkiPro).Token)
	assert.Equal(t, DefaultAnkiAppBlobURL, cfg.ImporterOptions(SourceAnkiApp).BlobURL)
	assert.Equal(t, DefaultAlgoAppAPIURL, cfg.ImporterOptions(SourceAlgoApp).APIURL)

	opts := cfg.ImporterOptions(SourceAnkiApp)
	cfg.Importers.RemoteMedia = false
	assert.True(t, opts.RemoteMedia, "snapshot is not affected by later changes")
}

func TestSource_Valid(t *testing.T) {
	assert.True(t, SourceNoji.Valid())
	assert.False(t, Source("anki").Valid())
}
