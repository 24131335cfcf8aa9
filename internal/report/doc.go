// Package report builds the read-only dashboard figures and the canned
// queries (projects by coordinator, grants by agency, productions by year).
package report
