package settingsstore

import (
	"fmt"
	"strconv"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

// ImporterOptions returns the options snapshot for one run of source: the
// loaded configuration with the choices saved in the database on top.
func (s *SettingsStore) ImporterOptions(source config.Source) (config.ImporterOptions, error) {
	opts := s.cfg.ImporterOptions(source)

	var err error
	if opts.RemoteMedia, _, err = s.boolSetting(entities.SettingKeyRemoteMedia, opts.RemoteMedia); err != nil {
		return opts, fmt.Errorf("failed to read importer settings: %w", err)
	}
	if opts.DownloadMedia, _, err = s.boolSetting(entities.SettingKeyDownloadMedia, opts.DownloadMedia); err != nil {
		return opts, fmt.Errorf("failed to read importer settings: %w", err)
	}
	if opts.SanitizeHTML, _, err = s.boolSetting(entities.SettingKeySanitizeHTML, opts.SanitizeHTML); err != nil {
		return opts, fmt.Errorf("failed to read importer settings: %w", err)
	}

	switch source {
	case config.SourceAlgoApp:
		for _, f := range []struct {
			key string
			dst *string
		}{
			{entities.SettingKeyAlgoAppClientID, &opts.ClientID},
			{entities.SettingKeyAlgoAppClientToken, &opts.ClientToken},
			{entities.SettingKeyAlgoAppClientVersion, &opts.ClientVersion},
		} {
			if *f.dst, _, err = s.stringSetting(f.key, *f.dst); err != nil {
				return opts, fmt.Errorf("failed to read credentials: %w", err)
			}
		}
	case config.SourceNoji, config.SourceAnkiPro:
		if opts.Token, _, err = s.stringSetting(tokenKey(source), opts.Token); err != nil {
			return opts, fmt.Errorf("failed to read credentials: %w", err)
		}
	}
	return opts, nil
}

func tokenKey(source config.Source) string {
	if source == config.SourceAnkiPro {
		return entities.SettingKeyAnkiProToken
	}
	return entities.SettingKeyNojiToken
}

// BoolInfo is a toggle with the place its value comes from.
type BoolInfo struct {
	Value  bool   `json:"value"`
	Source string `json:"source"` // "database" or "config"
}

// TokenInfo is a credential masked for display.
type TokenInfo struct {
	Value  string `json:"value"`
	Source string `json:"source"`
	IsSet  bool   `json:"is_set"`
}

// ImporterSettingsInfo is the effective importer configuration with the
// source of each value.
type ImporterSettingsInfo struct {
	RemoteMedia   BoolInfo `json:"remote_media"`
	DownloadMedia BoolInfo `json:"download_media"`
	SanitizeHTML  BoolInfo `json:"sanitize_html"`

	AlgoAppClientID      TokenInfo `json:"algoapp_client_id"`
	AlgoAppClientToken   TokenInfo `json:"algoapp_client_token"`
	AlgoAppClientVersion TokenInfo `json:"algoapp_client_version"`
	NojiToken            TokenInfo `json:"noji_token"`
	AnkiProToken         TokenInfo `json:"ankipro_token"`
}

func (s *SettingsStore) boolInfo(key string, fallback bool) (BoolInfo, error) {
	v, src, err := s.boolSetting(key, fallback)
	return BoolInfo{Value: v, Source: src}, err
}

func (s *SettingsStore) tokenInfo(key, fallback string, mask bool) (TokenInfo, error) {
	v, src, err := s.stringSetting(key, fallback)
	if mask {
		return TokenInfo{Value: maskToken(v), Source: src, IsSet: v != ""}, err
	}
	return TokenInfo{Value: v, Source: src, IsSet: v != ""}, err
}

// GetImporterSettingsInfo returns the importer settings with secrets masked.
func (s *SettingsStore) GetImporterSettingsInfo() (ImporterSettingsInfo, error) {
	var info ImporterSettingsInfo
	bools := []struct {
		dst      *BoolInfo
		key      string
		fallback bool
	}{
		{&info.RemoteMedia, entities.SettingKeyRemoteMedia, s.cfg.Importers.RemoteMedia},
		{&info.DownloadMedia, entities.SettingKeyDownloadMedia, s.cfg.Importers.DownloadMedia},
		{&info.SanitizeHTML, entities.SettingKeySanitizeHTML, s.cfg.Importers.SanitizeHTML},
	}
	for _, b := range bools {
		v, err := s.boolInfo(b.key, b.fallback)
		if err != nil {
			return info, fmt.Errorf("failed to read importer settings: %w", err)
		}
		*b.dst = v
	}
	tokens := []struct {
		dst      *TokenInfo
		key      string
		fallback string
		mask     bool
	}{
		{&info.AlgoAppClientID, entities.SettingKeyAlgoAppClientID, s.cfg.AlgoApp.ClientID, false},
		{&info.AlgoAppClientToken, entities.SettingKeyAlgoAppClientToken, s.cfg.AlgoApp.ClientToken, true},
		{&info.AlgoAppClientVersion, entities.SettingKeyAlgoAppClientVersion, s.cfg.AlgoApp.ClientVersion, false},
		{&info.NojiToken, entities.SettingKeyNojiToken, s.cfg.Noji.Token, true},
		{&info.AnkiProToken, entities.SettingKeyAnkiProToken, s.cfg.Noji.AnkiProToken, true},
	}
	for _, tk := range tokens {
		v, err := s.tokenInfo(tk.key, tk.fallback, tk.mask)
		if err != nil {
			return info, fmt.Errorf("failed to read importer settings: %w", err)
		}
		*tk.dst = v
	}
	return info, nil
}

// ImporterSettingsUpdate holds the settings to change. Nil fields are left
// as they are; an empty credential clears the database value.
type ImporterSettingsUpdate struct {
	RemoteMedia          *bool   `json:"remote_media"`
	DownloadMedia        *bool   `json:"download_media"`
	SanitizeHTML         *bool   `json:"sanitize_html"`
	AlgoAppClientID      *string `json:"algoapp_client_id"`
	AlgoAppClientToken   *string `json:"algoapp_client_token"`
	AlgoAppClientVersion *string `json:"algoapp_client_version"`
	NojiToken            *string `json:"noji_token"`
	AnkiProToken         *string `json:"ankipro_token"`
}

// UpdateImporterSettings saves the set fields of u in one transaction.
func (s *SettingsStore) UpdateImporterSettings(u ImporterSettingsUpdate) error {
	values := map[string]string{}
	for key, b := range map[string]*bool{
		entities.SettingKeyRemoteMedia:   u.RemoteMedia,
		entities.SettingKeyDownloadMedia: u.DownloadMedia,
		entities.SettingKeySanitizeHTML:  u.SanitizeHTML,
	} {
		if b != nil {
			values[key] = strconv.FormatBool(*b)
		}
	}
	for key, str := range map[string]*string{
		entities.SettingKeyAlgoAppClientID:      u.AlgoAppClientID,
		entities.SettingKeyAlgoAppClientToken:   u.AlgoAppClientToken,
		entities.SettingKeyAlgoAppClientVersion: u.AlgoAppClientVersion,
		entities.SettingKeyNojiToken:            u.NojiToken,
		entities.SettingKeyAnkiProToken:         u.AnkiProToken,
	} {
		if str != nil {
			values[key] = *str
		}
	}
	if len(values) == 0 {
		return nil
	}
	return s.save(values)
}

// SetRemoteMedia saves whether AnkiApp media missing locally is fetched from
// the blob server.
func (s *SettingsStore) SetRemoteMedia(enabled bool) error {
	return s.setBool(entities.SettingKeyRemoteMedia, enabled)
}

// SetDownloadMedia saves whether Noji/AnkiPro attachments are downloaded.
func (s *SettingsStore) SetDownloadMedia(enabled bool) error {
	return s.setBool(entities.SettingKeyDownloadMedia, enabled)
}

func (s *SettingsStore) SetSanitizeHTML(enabled bool) error {
	return s.setBool(entities.SettingKeySanitizeHTML, enabled)
}

// SetAlgoAppCredentials saves the AnkiApp online client credentials.
func (s *SettingsStore) SetAlgoAppCredentials(clientID, clientToken, clientVersion string) error {
	return s.save(map[string]string{
		entities.SettingKeyAlgoAppClientID:      clientID,
		entities.SettingKeyAlgoAppClientToken:   clientToken,
		entities.SettingKeyAlgoAppClientVersion: clientVersion,
	})
}

// SetToken saves the login token of a Noji or AnkiPro account.
func (s *SettingsStore) SetToken(source config.Source, token string) error {
	if source != config.SourceNoji && source != config.SourceAnkiPro {
		return fmt.Errorf("source %q does not use a token", source)
	}
	return s.save(map[string]string{tokenKey(source): token})
}

// ClearCredentials removes the saved credentials of source, reverting to
// the configuration.
func (s *SettingsStore) ClearCredentials(source config.Source) error {
	var keys []string
	switch source {
	case config.SourceAlgoApp:
		keys = []string{
			entities.SettingKeyAlgoAppClientID,
			entities.SettingKeyAlgoAppClientToken,
			entities.SettingKeyAlgoAppClientVersion,
		}
	case config.SourceNoji, config.SourceAnkiPro:
		keys = []string{tokenKey(source)}
	}
	for _, key := range keys {
		if err := s.repo.DeleteSetting(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	return nil
}
