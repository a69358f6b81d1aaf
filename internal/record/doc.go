// Package record defines the legislative records kept in sync: bills and roll-call
// votes.
//
// Each record has a stable provider-assigned ID, a set of published fields whose change
// requires the public post to be amended, and Bookkeeping that tracks the post itself.
// Bookkeeping never takes part in change detection.
package record
