package importers

import (
	"fmt"
	"strings"
)

// PathType is the kind of a user-selected input.
type PathType int

const (
	// DataDir is the application data folder.
	DataDir PathType = iota + 1
	// DBPath is a single database file.
	DBPath
	// XMLZip is an XML export archive.
	XMLZip
)

func (t PathType) String() string {
	switch t {
	case DataDir:
		return "dir"
	case DBPath:
		return "db"
	case XMLZip:
		return "zip"
	default:
		return fmt.Sprintf("pathtype(%d)", int(t))
	}
}

// ParsePathType accepts the names returned by PathType.String.
func ParsePathType(s string) (PathType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dir", "data", "datadir":
		return DataDir, nil
	case "db", "sqlite", "database":
		return DBPath, nil
	case "zip", "xml":
		return XMLZip, nil
	default:
		return 0, fmt.Errorf("unknown input type %q", s)
	}
}

// PathInfo is one input chosen by the user.
type PathInfo struct {
	Path string
	Type PathType
}
