package settingsstore

import (
	"fmt"
	"strconv"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/crypto"
	"github.com/abdnh/anki-copycat-importer/internal/database"
	"github.com/abdnh/anki-copycat-importer/internal/database/settings"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

// Setting sources, in priority order.
const (
	SourceDatabase = "database"
	SourceConfig   = "config" // config file, environment or built-in default
)

// Priority: database > config (file or environment) > default
type SettingsStore struct {
	repo   *settings.Repository
	cfg    *config.Config
	sealer *crypto.Sealer
}

type Option func(*SettingsStore)

// WithSealer encrypts credentials before they are saved.
func WithSealer(sealer *crypto.Sealer) Option {
	return func(s *SettingsStore) { s.sealer = sealer }
}

func New(db *database.Database, cfg *config.Config, opts ...Option) *SettingsStore {
	s := &SettingsStore{repo: settings.NewRepository(db.DB), cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	return s
}

// stringSetting returns the database value of key when it is set and not
// empty, else fallback.
func (s *SettingsStore) stringSetting(key, fallback string) (string, string, error) {
	value, ok, err := s.repo.GetValue(key)
	if err != nil {
		return "", "", err
	}
	if ok && value != "" {
		plain, err := s.sealer.Open(value)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", key, err)
		}
		return plain, SourceDatabase, nil
	}
	return fallback, SourceConfig, nil
}

func (s *SettingsStore) boolSetting(key string, fallback bool) (bool, string, error) {
	value, ok, err := s.repo.GetValue(key)
	if err != nil {
		return false, "", err
	}
	if ok && value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b, SourceDatabase, nil
		}
	}
	return fallback, SourceConfig, nil
}

// secretKeys are sealed when a sealer is configured.
var secretKeys = map[string]bool{
	entities.SettingKeyAlgoAppClientToken: true,
	entities.SettingKeyNojiToken:          true,
	entities.SettingKeyAnkiProToken:       true,
}

// save writes values in one transaction, sealing credentials first.
func (s *SettingsStore) save(values map[string]string) error {
	if s.sealer != nil {
		for key, value := range values {
			if !secretKeys[key] {
				continue
			}
			sealed, err := s.sealer.Seal(value)
			if err != nil {
				return fmt.Errorf("failed to encrypt %s: %w", key, err)
			}
			values[key] = sealed
		}
	}
	return s.repo.SetSettings(values)
}

func (s *SettingsStore) setBool(key string, value bool) error {
	return s.repo.SetSetting(key, strconv.FormatBool(value))
}

// maskToken returns a masked version of the token for display
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
