// Package jwt issues and verifies HS256 access tokens for the development API
// and lets clients peek at a stored token's expiry without verifying it.
package jwt
