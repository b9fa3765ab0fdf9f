package crypto

import "errors"

var (
	// ErrIntegrity means AEAD authentication failed: the ciphertext, nonce or
	// associated data was modified, or the wrong key was used. Decryption
	// fails closed; no partial plaintext is ever returned.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrChecksumMismatch means the independent SHA-256 checksum does not
	// match the ciphertext: corruption or tampering in transit or at rest.
	ErrChecksumMismatch = errors.New("ciphertext checksum mismatch")

	// ErrKeyRingClosed means the ring's key material has been scrubbed.
	ErrKeyRingClosed = errors.New("key ring is closed")

	// ErrUnknownDataType means no subkey exists for the requested data type.
	ErrUnknownDataType = errors.New("unknown data type")
)
