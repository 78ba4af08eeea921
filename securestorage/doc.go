// Package securestorage encrypts values at rest on top of a [kv.Store].
//
// Values are written as [Prefix] followed by an OpenSSL-compatible,
// passphrase-based AES-256-CBC ciphertext. Reads strip the prefix and decrypt;
// values without the prefix are legacy plaintext and are returned unchanged.
//
// # Failure model
//
// Encryption failures downgrade to a plaintext write and decryption failures
// read as "absent". Neither is ever returned to the caller; both are logged and
// reported as [Event] values so operators can see confidentiality downgrades.
//
// # Key ownership
//
// [Storage.Protect] hands out the only write capability for a key. The auth
// token key is protected by the session package at construction time.
package securestorage
