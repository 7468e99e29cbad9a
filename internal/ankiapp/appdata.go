package ankiapp

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DefaultDataFolder returns the AnkiApp data folder of the current user, or
// an empty string when none exists.
func DefaultDataFolder() string {
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			candidates = append(candidates, filepath.Join(appData, "AnkiApp"))
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates,
				filepath.Join(home, "Library", "Application Support", "AnkiApp"),
				// App Store version
				filepath.Join(home, "Library", "Containers", "com.ankiapp.client", "Data", "Documents", "ankiapp"),
			)
		}
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// AppData is an AnkiApp data folder.
type AppData struct {
	Path string
}

// SQLiteDBs returns the database files registered in
// databases/Databases.db, using the first file of each origin folder.
func (a AppData) SQLiteDBs() ([]string, error) {
	databasesPath := filepath.Join(a.Path, "databases")
	index := filepath.Join(databasesPath, "Databases.db")
	if _, err := os.Stat(index); err != nil {
		return nil, nil
	}

	db, err := sqlx.Open("sqlite3", "file:"+index+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", index, err)
	}
	defer db.Close()

	var origins []string
	if err := db.Select(&origins, "SELECT origin FROM Databases"); err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	var paths []string
	for _, origin := range origins {
		entries, err := os.ReadDir(filepath.Join(databasesPath, origin))
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !e.IsDir() {
				paths = append(paths, filepath.Join(databasesPath, origin, e.Name()))
				break
			}
		}
	}
	return paths, nil
}

// IndexedDB is a LevelDB folder with its blob folder.
type IndexedDB struct {
	LevelDB string
	Blobs   string
}

// IndexedDBs returns the IndexedDB folders that have a matching blob folder.
func (a AppData) IndexedDBs() []IndexedDB {
	matches, _ := filepath.Glob(filepath.Join(a.Path, "IndexedDB", "*.leveldb"))
	sort.Strings(matches)

	var out []IndexedDB
	for _, ldb := range matches {
		if !isDir(ldb) {
			continue
		}
		blobs := strings.TrimSuffix(ldb, ".leveldb") + ".blob"
		if isDir(blobs) {
			out = append(out, IndexedDB{LevelDB: ldb, Blobs: blobs})
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
