// Package importers holds the contracts shared by every source importer and
// the phases that write extracted data into the target collection.
//
// # Architecture
//
// An import run goes through a fixed sequence of states:
//
//	ExtractDecks → ExtractNoteTypes → ExtractMedia → ExtractCards →
//	CreateDecks → CreateNoteTypes → WriteMediaFiles → CreateCards → Done
//
// Local sources (ankiapp) run the extract states in full before any write.
// Remote sources (noji, algoapp) page through their API one deck at a time
// and run the create states for that deck right after extracting it.
//
// Every state starts with a cancellation check through Session, and the
// Writer reports progress at a bounded rate while creating cards. Nothing is
// rolled back: a canceled or failed run leaves whatever was already created
// in the collection.
//
// # Adding a New Source
//
//  1. Create a package that reads the source into Deck, notetype.NoteType,
//     media.Media and Card values.
//
//  2. Implement Importer:
//
//	type Importer struct {
//		warnings importers.Warnings
//		// ...
//	}
//
//	func (i *Importer) Import(ctx context.Context) (int, error) {
//		session := importers.NewSession(i.progress, i.opts.ProgressInterval)
//		w := importers.NewWriter(i.collection, session, resolver, &i.warnings)
//		// extract, then w.CreateDecks, w.CreateNoteTypes, w.WriteMedia, w.CreateCards
//	}
//
//	// Compile-time check
//	var _ importers.Importer = (*Importer)(nil)
//
//  3. Register a factory in services.ImportService.
package importers
