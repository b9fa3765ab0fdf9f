// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package crypto

import "github.com/owlivion-tech/owlivion-mail-sub001/models"

// KeyRing derives one symmetric key per data type from an account master
// secret and performs authenticated encryption with those keys. Compromise of
// one data type's key never yields another's: each subkey comes from an
// independent HKDF expansion, and the AEAD additionally binds the data type
// and record id as associated data.
//
// Implementations must fail closed: any bit flip in ciphertext, nonce or
// associated data yields an integrity error, never garbled plaintext.
type KeyRing interface {
	// Seal encrypts plaintext under the data type's derived key with a fresh
	// random 96-bit nonce. It returns the base64 ciphertext, the base64
	// nonce, and the hex SHA-256 checksum of the raw ciphertext.
	Seal(dataType models.DataType, recordID string, plaintext []byte) (ciphertext, nonce, checksum string, err error)

	// Open authenticates and decrypts a sealed record. The checksum is
	// verified before decryption so transport corruption is distinguishable
	// from key mismatch.
	Open(dataType models.DataType, recordID string, ciphertext, nonce, checksum string) ([]byte, error)

	// Closed reports whether the ring's key material has been scrubbed.
	// The scheduler skips unattended runs while the ring is closed.
	Closed() bool

	// Close wipes every derived key from memory. The ring is unusable
	// afterwards; all operations return ErrKeyRingClosed.
	Close()
}
