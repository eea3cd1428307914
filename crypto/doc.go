// Package crypto provides the cryptographic primitives of the security
// core: passphrase-based authenticated encryption for at-rest secrets,
// secure random tokens and nonces, one-way hashing, and timing-safe
// comparison.
//
// Encrypted blobs use the wire format "ivHex:tagHex:ciphertextHex". Any
// other shape is rejected with ErrMalformedBlob before key derivation runs;
// a failed authentication tag surfaces as ErrDecryptFailed so callers can
// tell corrupted storage apart from a wrong passphrase.
package crypto
