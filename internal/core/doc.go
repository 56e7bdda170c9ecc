// Package core runs roster sessions: it loads save documents into a master
// collection and serves sorted, filtered views of it.
//
// It is independent of any transport. The web server, the terminal browser
// and the command line tool all drive the same [Service].
//
// # Loading
//
// [Service.Load] runs two steps strictly in order:
//
//  1. Fetch the item catalog from the configured [CatalogSource].
//  2. Stream the save document through [WrapForStreaming] into the savefile
//     reader, which extracts one record per living person.
//
// Every load is stamped with a generation number when it starts. A load
// commits only if no newer load has started since; otherwise it returns
// [ErrLoadSuperseded] and its result is dropped. A committed load replaces
// the master collection and resets sorting and filtering.
//
// # Views
//
// [Service.SortBy], [Service.SetFilters] and [Service.ClearFilters] update
// the view configuration and return the recomputed [ViewState] in one step.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - SAVE001-SAVE003: save document structure
//   - CAT001: catalog retrieval
//   - LOAD001-LOAD002: load lifecycle
//   - VIEW001-VIEW003: sort and filter requests
//   - HIST001-HIST002, DB004: load history
//   - FILE001, FILE004, UPL004, UPL005, RATE001: request handling
//
// # History
//
// With a [HistoryStore] configured, each committed load is recorded with its
// records. [Service.StartHistoryPruner] deletes entries past the retention
// window.
package core
