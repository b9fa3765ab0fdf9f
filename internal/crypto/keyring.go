// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

// Package crypto implements the engine's cryptography module: Argon2id
// master-secret derivation, HKDF-SHA256 per-data-type subkeys, AES-256-GCM
// authenticated encryption with detached nonces, and independent SHA-256
// ciphertext checksums that let the server reject tampered payloads without
// ever holding a key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

const (
	// NonceSize is the AES-GCM nonce length: 96 bits, unique per encryption.
	NonceSize = 12

	keySize  = 32 // 256 bits
	saltSize = 16

	// hkdfInfoPrefix domain-separates subkeys of this protocol version from
	// any other use of the same master secret.
	hkdfInfoPrefix = "owlivion/sync/v1:"
)

// keyRing is the private implementation of [KeyRing]. Subkeys are derived
// once at construction; the master secret never outlives NewKeyRing.
type keyRing struct {
	mu     sync.RWMutex
	keys   map[models.DataType][]byte
	closed bool
}

// DeriveMasterSecret derives the 256-bit account master secret from the
// passphrase and the per-account salt using Argon2id with the OWASP (2024)
// parameters: 1 iteration, 64 MiB, 4 threads. The result exists only in
// client memory and is never transmitted.
func DeriveMasterSecret(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, keySize)
}

// DeriveAuthHash derives the server-verifiable authentication value from the
// login and passphrase. The salt is fixed per login, not the per-account
// encryption salt: the auth hash must be computable before the server has
// ever been contacted, and it must share no derivation path with any
// encryption key.
func DeriveAuthHash(login, passphrase string) string {
	salt := sha256.Sum256([]byte("owlivion/auth/v1:" + login))
	sum := argon2.IDKey([]byte(passphrase), salt[:saltSize], 1, 64*1024, 4, keySize)
	return base64.StdEncoding.EncodeToString(sum)
}

// GenerateSalt reads 16 random bytes from the OS CSPRNG.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// NewKeyRing expands masterSecret into one independent 256-bit subkey per
// data type via HKDF-SHA256. The caller keeps ownership of masterSecret and
// should wipe it after this call (see [WithSecret]).
func NewKeyRing(masterSecret []byte) (KeyRing, error) {
	if len(masterSecret) != keySize {
		return nil, fmt.Errorf("master secret must be %d bytes, got %d", keySize, len(masterSecret))
	}

	keys := make(map[models.DataType][]byte, len(models.AllDataTypes()))
	for _, dt := range models.AllDataTypes() {
		key := make([]byte, keySize)
		r := hkdf.New(sha256.New, masterSecret, nil, []byte(hkdfInfoPrefix+dt.String()))
		if _, err := io.ReadFull(r, key); err != nil {
			for _, k := range keys {
				Wipe(k)
			}
			return nil, fmt.Errorf("derive %s subkey: %w", dt, err)
		}
		keys[dt] = key
	}

	return &keyRing{keys: keys}, nil
}

// Seal implements [KeyRing].
func (k *keyRing) Seal(dataType models.DataType, recordID string, plaintext []byte) (string, string, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	gcm, err := k.aead(dataType)
	if err != nil {
		return "", "", "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, aad(dataType, recordID))

	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(nonce),
		Checksum(ciphertext),
		nil
}

// Open implements [KeyRing]. The checksum is verified before any key is
// touched: a mismatch means the ciphertext was corrupted or tampered with in
// transit and is reported as [ErrChecksumMismatch]; an authentication-tag
// failure under a correct checksum is reported as [ErrIntegrity].
func (k *keyRing) Open(dataType models.DataType, recordID string, ciphertext, nonce, checksum string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rawCiphertext, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	rawNonce, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	if len(rawNonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", ErrIntegrity, NonceSize)
	}

	if !VerifyChecksum(rawCiphertext, checksum) {
		return nil, ErrChecksumMismatch
	}

	gcm, err := k.aead(dataType)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, rawNonce, rawCiphertext, aad(dataType, recordID))
	if err != nil {
		// Wrong key, wrong data type, flipped bit: all fail closed here.
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	return plaintext, nil
}

// Closed implements [KeyRing].
func (k *keyRing) Closed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.closed
}

// Close implements [KeyRing]. Every subkey is overwritten with zeros before
// the map is dropped.
func (k *keyRing) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return
	}
	for _, key := range k.keys {
		Wipe(key)
	}
	k.keys = nil
	k.closed = true
}

// aead builds the AES-256-GCM cipher for the data type's subkey.
// Callers must hold at least a read lock.
func (k *keyRing) aead(dataType models.DataType) (cipher.AEAD, error) {
	if k.closed {
		return nil, ErrKeyRingClosed
	}
	key, ok := k.keys[dataType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, dataType)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return gcm, nil
}

// aad binds a ciphertext to its data type and record id, so a blob copied
// between record ids or data types fails authentication deterministically.
func aad(dataType models.DataType, recordID string) []byte {
	return []byte(dataType.String() + "\x00" + recordID)
}

// Checksum returns the hex SHA-256 digest of the raw ciphertext. Computed
// independently of the AEAD tag so the server can verify it key-free.
func Checksum(ciphertext []byte) string {
	sum := sha256.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum compares in constant time.
func VerifyChecksum(ciphertext []byte, checksum string) bool {
	sum := sha256.Sum256(ciphertext)
	expected, err := hex.DecodeString(checksum)
	if err != nil {
		return false
	}
	return hmac.Equal(sum[:], expected)
}

// Wipe overwrites b with zeros. Used for every derived key and decrypted
// secret when it goes out of scope.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WithSecret runs fn over secret and guarantees the secret is wiped
// afterwards, including when fn panics.
func WithSecret(secret []byte, fn func([]byte) error) error {
	defer Wipe(secret)
	return fn(secret)
}
