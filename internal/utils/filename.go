package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// MaxMediaFilenameLength is the longest media filename in bytes.
const MaxMediaFilenameLength = 120

// SanitizeMediaFilename turns a name from an import source into one that is
// safe to store in the media folder and to reference from field HTML. The
// result is NFC normalized and keeps the extension when it has to be
// shortened.
func SanitizeMediaFilename(filename string) string {
	filename = norm.NFC.String(filename)

	// Remove invalid filename characters
	filename = invalidFilenameChars.ReplaceAllString(filename, "")

	// Collapse whitespace
	filename = multipleSpaces.ReplaceAllString(filename, " ")

	// Leading dots hide files and trailing dots or spaces are dropped on Windows
	filename = strings.TrimLeft(filename, ". ")
	filename = strings.TrimRight(filename, ". ")

	if len(filename) > MaxMediaFilenameLength {
		ext := filepath.Ext(filename)
		if len(ext) > 10 {
			ext = ""
		}
		base := truncateUTF8(strings.TrimSuffix(filename, ext), MaxMediaFilenameLength-len(ext))
		filename = strings.TrimRight(base, ". ") + ext
	}

	// Ensure it's not empty
	if filename == "" {
		filename = "media"
	}

	return filename
}

// AddFilenameSuffix inserts suffix before the extension of filename.
// Example: ("pic.png", "-1a2b") -> "pic-1a2b.png"
func AddFilenameSuffix(filename, suffix string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext) + suffix + ext
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
