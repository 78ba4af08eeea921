// Package devapi is a local stand-in for the remote iuran API, used for
// development and end-to-end tests of the client core.
//
// It serves POST /login, GET /me and POST /logout over Redis-backed seed
// accounts with Argon2id password hashes. Tokens are HS256 JWTs; failed
// logins are throttled per email and per client IP.
package devapi
