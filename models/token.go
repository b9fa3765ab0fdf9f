package models

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Token wraps a JWT access token with the claims the sync API cares about.
//
// It embeds [jwt.Token] for low-level operations and [jwt.RegisteredClaims]
// for the standard claim set. The device identifier rides in a private claim
// so that every authenticated sync call can be attributed to a device without
// an extra lookup.
type Token struct {
	*jwt.Token `json:"-"`

	jwt.RegisteredClaims

	// DeviceID identifies the client installation the token was issued to.
	DeviceID string `json:"did,omitempty"`

	// SignedString is the compact JWS form (header.payload.signature).
	SignedString string `json:"-"`

	// UserID is a cached, parsed copy of the "sub" claim.
	UserID int64 `json:"-"`
}

// GetUserID extracts the user identifier from the "sub" claim and parses it
// as a base-10 int64.
func (t *Token) GetUserID() (int64, error) {
	userIDString, err := t.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("error extracting UserID from token: %w", err)
	}

	userID, err := strconv.ParseInt(userIDString, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error converting UserID from token to int64: %w", err)
	}

	return userID, nil
}

// String returns the compact JWS serialization of the token.
// It implements [fmt.Stringer].
func (t *Token) String() string {
	return t.SignedString
}

// TokenPair is the login/refresh response body: a short-lived access token
// plus a long-lived refresh token bound to the device.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
