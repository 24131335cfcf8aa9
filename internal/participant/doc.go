// Package participant stores the people registered in SIGPesq: faculty,
// students, technical staff and administrators.
//
// A participant is identified by CPF and doubles as a login account; the
// AccountStore adapter exposes the credential side to the auth package.
package participant
