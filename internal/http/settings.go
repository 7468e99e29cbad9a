package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abdnh/anki-copycat-importer/internal/settingsstore"
)

// SettingsController exposes the saved importer settings.
type SettingsController struct {
	settings ImporterSettings
	audit    AuditLog
}

func NewSettingsController(settings ImporterSettings, audit AuditLog) *SettingsController {
	return &SettingsController{settings: settings, audit: audit}
}

// GetImporterSettings handles GET /api/settings/importers
// Secrets are masked.
func (sc *SettingsController) GetImporterSettings(c *gin.Context) {
	info, err := sc.settings.GetImporterSettingsInfo()
	if err != nil {
		respondInternalError(c, err, "get importer settings")
		return
	}
	c.JSON(http.StatusOK, info)
}

// UpdateImporterSettings handles PUT /api/settings/importers
// Fields left out are unchanged; an empty credential clears the saved one.
func (sc *SettingsController) UpdateImporterSettings(c *gin.Context) {
	var u settingsstore.ImporterSettingsUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	changed := changedSettings(u)
	if len(changed) == 0 {
		respondBadRequest(c, "no settings to update")
		return
	}
	if err := sc.settings.UpdateImporterSettings(u); err != nil {
		respondInternalError(c, err, "update importer settings")
		return
	}
	if sc.audit != nil {
		sc.audit.LogSettings(c.Request.Context(), "importers_update", "Updated "+strings.Join(changed, ", "))
	}

	info, err := sc.settings.GetImporterSettingsInfo()
	if err != nil {
		respondInternalError(c, err, "get importer settings")
		return
	}
	c.JSON(http.StatusOK, info)
}

// changedSettings names the fields set in u. Values are left out so that
// secrets do not reach the audit log.
func changedSettings(u settingsstore.ImporterSettingsUpdate) []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(u.RemoteMedia != nil, "remote_media")
	add(u.DownloadMedia != nil, "download_media")
	add(u.SanitizeHTML != nil, "sanitize_html")
	add(u.AlgoAppClientID != nil, "algoapp_client_id")
	add(u.AlgoAppClientToken != nil, "algoapp_client_token")
	add(u.AlgoAppClientVersion != nil, "algoapp_client_version")
	add(u.NojiToken != nil, "noji_token")
	add(u.AnkiProToken != nil, "ankipro_token")
	return names
}
