package config

// Default locations of the target collection
const (
	// DefaultCollectionPath is the default path of the collection database
	DefaultCollectionPath = "./collection.db"

	// DefaultMediaDir is the default folder media files are written to
	DefaultMediaDir = "./collection.media"

	// DefaultTasksDBPath is the default path of the background queue database
	DefaultTasksDBPath = "./tasks.db"
)

// Default endpoints of the remote sources
const (
	DefaultAnkiAppBlobURL = "https://blobs.ankiapp.com/"
	DefaultAlgoAppAPIURL  = "https://api.ankiapp.com/"
	DefaultNojiAPIURL     = "https://api-proxy-us.noji.io/api/"
)
