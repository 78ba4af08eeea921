// Package stores holds the development API's Redis-backed records: seeded
// accounts and revoked tokens.
package stores
