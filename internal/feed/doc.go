// Package feed fetches podcast RSS documents with conditional requests and
// admits newly published episodes into the ledger. Fetches carry the ETag and
// Last-Modified validators from the previous poll so unchanged feeds cost a
// single 304 round trip.
package feed
