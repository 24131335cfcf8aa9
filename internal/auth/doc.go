// Package auth provides authentication and authorisation for SIGPesq Core.
//
// It is built from four pieces that handlers compose through Service:
//   - Hasher: Argon2id credential hashing with a bounded worker budget so slow
//     hashes never starve other requests. Legacy bcrypt artifacts still verify.
//   - Codec: HS256 JWT issue/verify. A token is valid iff its signature
//     verifies under the server key and the current time is before exp.
//   - Resolver: turns an "Authorization: Bearer" header into a Principal using
//     only the token claims (no storage lookup).
//   - Decide/Authorize: pure role and ownership rules per Operation.
//
// There is no session table, refresh token or revocation list. A token stays
// valid until it expires, and a role change reaches the caller on their next
// login. Both windows are bounded by the token TTL.
package auth
