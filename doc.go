// Package paedu provides the account and capability layer for the
// Alfred-PAEdu school community service: a credential store with login
// attempt throttling, a purpose-tagged token codec, an authentication
// gate, and the account lifecycle flows built on top of them.
//
// Credentials:
//   - CredentialStore resolves an identifier (id, email, or username)
//     against the Users repository and checks the bcrypt password hash.
//     Unknown identifiers and wrong passwords report the same credential
//     failure so callers cannot probe for accounts.
//
// Tokens:
//   - Codec mints and redeems signed capability tokens. Every token
//     carries a purpose (auth, confirm, reset, change_login) and Redeem
//     rejects a token presented for any other purpose. TTLs default to
//     an hour, confirmations to two.
//
// Gate:
//   - middleware/gate authenticates every request that is not exempted
//     by an explicit route policy. HTTP Basic identifiers go through the
//     credential store; bearer tokens through the codec. The resolved
//     session is stored in router locals and the request context.
//
// Lifecycle:
//   - Command handlers implement registration, confirmation, password
//     reset, and login change. Each flow mints a single purpose token and
//     redeems it exactly where that purpose is expected.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     lifecycle handlers to describe login, registration, confirmation,
//     and reset events. Sinks run best-effort (errors are logged) so you
//     can forward to a database or queue without blocking authentication.
package paedu
