// Package project manages research projects, their members and the grants
// allocated to them.
//
// Every project has exactly one coordinator, who must be a DOCENTE or ADMIN
// participant. The repository enforces this on create and on coordinator
// change; the coordinator is also the owner used by authorisation checks.
//
// # Thread Safety
//
// SQLRepository is safe for concurrent use; multi-statement writes run in a
// single transaction.
package project
