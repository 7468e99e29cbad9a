package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeyRemoteMedia   = "importers_remote_media"
	SettingKeyDownloadMedia = "importers_download_media"
	SettingKeySanitizeHTML  = "importers_sanitize_html"

	// AnkiApp online credentials
	SettingKeyAlgoAppClientID      = "algoapp_client_id"
	SettingKeyAlgoAppClientToken   = "algoapp_client_token"
	SettingKeyAlgoAppClientVersion = "algoapp_client_version"

	SettingKeyNojiToken    = "noji_token"
	SettingKeyAnkiProToken = "ankipro_token"
)
