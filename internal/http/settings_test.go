package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/settingsstore"
)

func TestSettingsController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	settings := &StubSettings{Info: settingsstore.ImporterSettingsInfo{
		NojiToken: settingsstore.TokenInfo{Value: "abcd****", Source: settingsstore.SourceConfig, IsSet: true},
	}}
	audit := &StubAudit{}
	router := NewRouter(RouterConfig{Settings: settings, Audit: audit})

	w := doJSON(router, "GET", "/api/settings/importers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"abcd****"`)

	w = doJSON(router, "PUT", "/api/settings/importers", map[string]any{
		"remote_media": false,
		"noji_token":   "new-secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, settings.Updated)
	assert.Equal(t, "new-secret", *settings.Updated.NojiToken)

	var info settingsstore.ImporterSettingsInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.False(t, info.RemoteMedia.Value)
	assert.Equal(t, settingsstore.SourceDatabase, info.RemoteMedia.Source)

	require.Len(t, audit.Settings, 1)
	assert.Equal(t, "importers_update: Updated remote_media, noji_token", audit.Settings[0])
	assert.NotContains(t, audit.Settings[0], "new-secret")
}

func TestSettingsController_EmptyUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{Settings: &StubSettings{}})

	w := doJSON(router, "PUT", "/api/settings/importers", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "PUT", "/api/settings/importers", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &StubAudit{Events: []entities.AuditEvent{{ID: 1, EventType: entities.AuditEventImport, Source: "noji"}}}
	router := NewRouter(RouterConfig{Audit: audit})

	w := doJSON(router, "GET", "/api/audit?source=noji&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "noji", audit.Source)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 10, resp.Limit)
	assert.False(t, resp.HasMore)
	assert.Equal(t, 1, resp.TotalPages)
}
