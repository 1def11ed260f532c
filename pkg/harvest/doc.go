// Package harvest is the resumable extraction engine.
//
// One Engine runs one listing at a time. RunOnce loads the persisted
// progress, opens the seed URL, grows the listing to cursor+quota entries and
// walks the candidates from the cursor with a strictly sequential per-entry
// state machine:
//
//	resolve identity -> seen? -> open panel -> enrich -> outreach -> sink -> checkpoint
//
// Entry-scoped failures (missing reference, panel timeout, generation error)
// are absorbed: the cursor still moves past the entry. Run-scoped failures
// (listing, sink, store, driver, cancellation) stop the run and are reported
// in the RunSummary. The checkpoint for an entry is written only after the
// sink accepted its record.
//
// A pass that ends with the listing exhausted and nothing emitted resets the
// cursor to 0, keeping the seen set, so the next run rescans from the top.
package harvest
