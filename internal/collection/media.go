package collection

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/database/media"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/utils"
)

// hashPrefixLength is the number of hex digits of the content hash added to
// a name taken by a different file.
const hashPrefixLength = 8

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create media folder: %w", err)
	}
	return nil
}

// WriteMedia stores data in the media folder under a sanitized form of name.
// When a file with that name and the same content exists, its name is
// returned. When the name holds different content, the file is stored under
// the name with a "-<hash prefix>" suffix.
func (c *Collection) WriteMedia(ctx context.Context, name string, data []byte) (string, error) {
	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	repo := media.NewRepository(c.tx(ctx))
	base := utils.SanitizeMediaFilename(name)
	for _, candidate := range []string{base, utils.AddFilenameSuffix(base, "-"+hash[:hashPrefixLength])} {
		existing, err := c.existingHash(repo, candidate)
		if err != nil {
			return "", err
		}
		switch existing {
		case "":
			if err := c.store(repo, candidate, hash, data); err != nil {
				return "", err
			}
			if candidate != name {
				logutil.GetLogger(ctx).Debug("media file renamed", zap.String("name", name), zap.String("stored", candidate))
			}
			return candidate, nil
		case hash:
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to find a free name for media file %q", name)
}

// existingHash returns the content hash of the media file called name, or
// "" when there is none. Files found in the folder without a record are
// hashed from disk.
func (c *Collection) existingHash(repo *media.Repository, name string) (string, error) {
	file, err := repo.GetMediaByName(name)
	if err == nil {
		return file.SHA1, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up media file %q: %w", name, err)
	}
	data, err := os.ReadFile(filepath.Join(c.mediaDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read media file %q: %w", name, err)
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Collection) store(repo *media.Repository, name, hash string, data []byte) error {
	path := filepath.Join(c.mediaDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write media file %q: %w", name, err)
	}
	if err := repo.RecordMedia(&entities.MediaFile{Name: name, SHA1: hash, Size: len(data)}); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to record media file %q: %w", name, err)
	}
	return nil
}

// ReadMedia returns the content of a stored media file.
func (c *Collection) ReadMedia(name string) ([]byte, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid media file name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(c.mediaDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read media file %q: %w", name, err)
	}
	return data, nil
}
