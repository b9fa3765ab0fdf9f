package models

import "time"

// User represents an account entity used for authentication and for scoping
// synchronized data. Credential fields carry derived values only — never a
// plaintext password and never the master secret.
type User struct {
	// UserID is the internal unique identifier of the user.
	UserID int64 `json:"-"`

	// Login is the unique account identifier (the mail address).
	Login string `json:"login"`

	// AuthHash is the server-verifiable authentication value derived from the
	// account passphrase. It cannot be used to decrypt any synced record.
	AuthHash string `json:"auth_hash,omitempty"`

	// EncryptionSalt is the per-account salt for client-side master-secret
	// derivation. Stored server-side so every device derives the same keys.
	EncryptionSalt string `json:"encryption_salt,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table associated with the User model.
func (u User) TableName() string {
	return "users"
}

// Credentials is the register/login request body. Platform describes the
// calling installation so the server can register the device on first login.
type Credentials struct {
	Login    string `json:"login"`
	AuthHash string `json:"auth_hash"`
	DeviceID string `json:"device_id,omitempty"`
	Platform string `json:"platform,omitempty"`
}
