package settingsstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/crypto"
	"github.com/abdnh/anki-copycat-importer/internal/database"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

func setupTestStore(t *testing.T) (*SettingsStore, *config.Config) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Importers: config.Importers{RemoteMedia: true, DownloadMedia: true},
		AnkiApp:   config.AnkiApp{BlobURL: config.DefaultAnkiAppBlobURL},
		AlgoApp:   config.AlgoApp{APIURL: config.DefaultAlgoAppAPIURL, ClientID: "env-id"},
		Noji:      config.Noji{APIURL: config.DefaultNojiAPIURL, Token: "env-noji-token"},
	}
	return New(db, cfg), cfg
}

func TestImporterOptions_Defaults(t *testing.T) {
	store, _ := setupTestStore(t)

	opts, err := store.ImporterOptions(config.SourceNoji)
	require.NoError(t, err)
	assert.Equal(t, config.SourceNoji, opts.Source)
	assert.True(t, opts.RemoteMedia)
	assert.True(t, opts.DownloadMedia)
	assert.Equal(t, "env-noji-token", opts.Token)
	assert.Equal(t, config.DefaultNojiAPIURL, opts.APIURL)

	opts, err = store.ImporterOptions(config.SourceAnkiPro)
	require.NoError(t, err)
	assert.Empty(t, opts.Token)
}

func TestImporterOptions_DatabaseOverridesConfig(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.SetRemoteMedia(false))
	require.NoError(t, store.SetDownloadMedia(false))
	require.NoError(t, store.SetSanitizeHTML(true))
	require.NoError(t, store.SetToken(config.SourceAnkiPro, "db-ankipro"))
	require.NoError(t, store.SetAlgoAppCredentials("db-id", "db-token", "2.0"))

	opts, err := store.ImporterOptions(config.SourceAnkiPro)
	require.NoError(t, err)
	assert.False(t, opts.RemoteMedia)
	assert.False(t, opts.DownloadMedia)
	assert.True(t, opts.SanitizeHTML)
	assert.Equal(t, "db-ankipro", opts.Token)

	opts, err = store.ImporterOptions(config.SourceAlgoApp)
	require.NoError(t, err)
	assert.Equal(t, "db-id", opts.ClientID)
	assert.Equal(t, "db-token", opts.ClientToken)
	assert.Equal(t, "2.0", opts.ClientVersion)
	assert.Empty(t, opts.Token)
}

func TestImporterOptions_SnapshotIsCopy(t *testing.T) {
	store, _ := setupTestStore(t)

	opts, err := store.ImporterOptions(config.SourceAnkiApp)
	require.NoError(t, err)
	require.NoError(t, store.SetRemoteMedia(false))

	assert.True(t, opts.RemoteMedia)
}

func TestClearCredentials(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.SetToken(config.SourceNoji, "db-noji"))
	require.NoError(t, store.SetAlgoAppCredentials("db-id", "db-token", "2.0"))
	require.NoError(t, store.ClearCredentials(config.SourceNoji))
	require.NoError(t, store.ClearCredentials(config.SourceAlgoApp))

	opts, err := store.ImporterOptions(config.SourceNoji)
	require.NoError(t, err)
	assert.Equal(t, "env-noji-token", opts.Token)

	opts, err = store.ImporterOptions(config.SourceAlgoApp)
	require.NoError(t, err)
	assert.Equal(t, "env-id", opts.ClientID)
	assert.Empty(t, opts.ClientToken)

	assert.Error(t, store.SetToken(config.SourceAnkiApp, "x"))
}

func TestGetImporterSettingsInfo(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.SetToken(config.SourceNoji, "abcd1234efgh5678"))
	require.NoError(t, store.SetSanitizeHTML(true))

	info, err := store.GetImporterSettingsInfo()
	require.NoError(t, err)
	assert.Equal(t, BoolInfo{Value: true, Source: SourceConfig}, info.RemoteMedia)
	assert.Equal(t, BoolInfo{Value: true, Source: SourceDatabase}, info.SanitizeHTML)
	assert.Equal(t, TokenInfo{Value: "abcd****5678", Source: SourceDatabase, IsSet: true}, info.NojiToken)
	assert.Equal(t, TokenInfo{Value: "env-id", Source: SourceConfig, IsSet: true}, info.AlgoAppClientID)
	assert.Equal(t, TokenInfo{Source: SourceConfig}, info.AnkiProToken)
}

func TestUpdateImporterSettings(t *testing.T) {
	store, _ := setupTestStore(t)
	off := false
	token := "new-token"

	require.NoError(t, store.UpdateImporterSettings(ImporterSettingsUpdate{
		DownloadMedia: &off,
		AnkiProToken:  &token,
	}))

	opts, err := store.ImporterOptions(config.SourceAnkiPro)
	require.NoError(t, err)
	assert.False(t, opts.DownloadMedia)
	assert.True(t, opts.RemoteMedia)
	assert.Equal(t, "new-token", opts.Token)

	// An empty credential falls back to the configuration
	empty := ""
	require.NoError(t, store.UpdateImporterSettings(ImporterSettingsUpdate{NojiToken: &empty}))
	opts, err = store.ImporterOptions(config.SourceNoji)
	require.NoError(t, err)
	assert.Equal(t, "env-noji-token", opts.Token)

	require.NoError(t, store.UpdateImporterSettings(ImporterSettingsUpdate{}))
}

func TestBoolSetting_InvalidValueFallsBack(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.repo.SetSetting(entities.SettingKeyRemoteMedia, "maybe"))
	v, src, err := store.boolSetting(entities.SettingKeyRemoteMedia, true)
	require.NoError(t, err)
	assert.True(t, v)
	assert.Equal(t, SourceConfig, src)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", maskToken(""))
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcdefghwxyz"))
}

func TestCredentials_SealedAtRest(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewSealerFromBase64(key)
	require.NoError(t, err)
	store := New(db, &config.Config{}, WithSealer(sealer))

	require.NoError(t, store.SetToken(config.SourceNoji, "noji-secret"))
	require.NoError(t, store.SetAlgoAppCredentials("id", "algo-secret", "1.0"))

	raw, ok, err := store.repo.GetValue(entities.SettingKeyNojiToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, crypto.IsSealed(raw))
	assert.NotContains(t, raw, "noji-secret")

	// client ids are not secret
	raw, _, err = store.repo.GetValue(entities.SettingKeyAlgoAppClientID)
	require.NoError(t, err)
	assert.Equal(t, "id", raw)

	opts, err := store.ImporterOptions(config.SourceNoji)
	require.NoError(t, err)
	assert.Equal(t, "noji-secret", opts.Token)

	opts, err = store.ImporterOptions(config.SourceAlgoApp)
	require.NoError(t, err)
	assert.Equal(t, "algo-secret", opts.ClientToken)

	// without the key the sealed value cannot be used
	_, err = New(db, &config.Config{}).ImporterOptions(config.SourceNoji)
	assert.ErrorIs(t, err, crypto.ErrNoKeyForSealed)
}
