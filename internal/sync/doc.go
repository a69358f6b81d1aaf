// Package sync runs publish passes over legislative records.
//
// A pass moves every candidate record through the same phases:
//
//   - FETCHING: vote summaries for the cursor, then vote details, then the bills
//     those votes reference
//   - RESOLVING: the stored snapshot, or a first sighting
//   - DECIDING: whether published fields changed
//   - ACTING: publish when there is no post yet, amend otherwise
//   - PERSISTING: save the merged snapshot
//
// Votes are processed before bills so a bill's vote references point at stored
// snapshots. A failure of one record never stops the others; it stays unsaved and is
// retried by the next pass. Listing failures and credential failures abort the pass.
//
// The sync/coordinator subpackage schedules passes and persists their status.
package sync
