// Package interfaces documents the extension points of the importer.
//
// # Interface Categories
//
// ## Import Contracts (internal/importers)
//
//   - Importer: one import source; Import returns the number of cards created
//   - Collection: the target collection (decks, note types, notes, media)
//   - Progress: progress reports and cooperative cancellation
//
// ## Media (internal/media)
//
//   - Store: writes media files into the collection
//   - Fetcher: downloads media that is referenced but not shipped locally
//
// ## Service Wiring
//
//   - services.OptionsProvider, services.ImportAuditor, services.Enqueuer
//   - tasks.ImportRunner and the maintenance cleaners
//   - http.ImportRunner, http.ImporterSettings, http.AuditLog,
//     http.CollectionStats, http.MaintenanceTrigger
//
// # Adding a New Import Source
//
//  1. Add a config.Source and its options in internal/config.
//
//  2. Create a package with an Importer built on importers.Writer:
//
//     type Importer struct {
//         opts       config.ImporterOptions
//         collection importers.Collection
//         progress   importers.Progress
//         warnings   importers.Warnings
//     }
//
//     func (i *Importer) Import(ctx context.Context) (int, error) {
//         session := importers.NewSession(i.progress, i.opts.ProgressInterval)
//         w := importers.NewWriter(i.collection, session, resolver, &i.warnings)
//         // create decks, note types, then cards
//     }
//
//     var _ importers.Importer = (*Importer)(nil)
//
//  3. Register a factory in services.DefaultFactories.
//
//  4. Add the HTTP route in internal/http/router.go and the command in
//     internal/cli/import.go.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the checks spanning packages.
package interfaces
