// Package audit stores the append-only trail of mutations made through the
// API: who did what to which record, and when.
//
// Entries are written asynchronously by the API layer and read back by
// administrators with filters and pagination.
package audit
