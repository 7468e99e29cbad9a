package services

import (
	"github.com/abdnh/anki-copycat-importer/internal/algoapp"
	"github.com/abdnh/anki-copycat-importer/internal/ankiapp"
	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/noji"
)

// ImporterFactory builds the importer for one run.
type ImporterFactory func(opts config.ImporterOptions, req Request, collection importers.Collection, progress importers.Progress) (importers.Importer, error)

// DefaultFactories returns the importer of every supported source.
func DefaultFactories() map[config.Source]ImporterFactory {
	return map[config.Source]ImporterFactory{
		config.SourceAnkiApp: newAnkiAppImporter,
		config.SourceAlgoApp: func(opts config.ImporterOptions, _ Request, coll importers.Collection, progress importers.Progress) (importers.Importer, error) {
			return algoapp.New(opts, coll, progress)
		},
		config.SourceNoji: func(opts config.ImporterOptions, _ Request, coll importers.Collection, progress importers.Progress) (importers.Importer, error) {
			return noji.New(noji.Noji, opts, coll, progress)
		},
		config.SourceAnkiPro: func(opts config.ImporterOptions, _ Request, coll importers.Collection, progress importers.Progress) (importers.Importer, error) {
			return noji.New(noji.AnkiPro, opts, coll, progress)
		},
	}
}

func newAnkiAppImporter(opts config.ImporterOptions, req Request, coll importers.Collection, progress importers.Progress) (importers.Importer, error) {
	paths, err := req.PathInfos()
	if err != nil {
		return nil, err
	}
	return ankiapp.New(opts, paths, coll, progress)
}
