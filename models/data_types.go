// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package models

import "fmt"

// DataType identifies one of the synchronized record categories. The set is
// closed: every value that crosses a package or wire boundary must pass
// [DataType.Valid], and each category is encrypted under its own derived key.
type DataType string

const (
	DataTypeAccounts    DataType = "accounts"
	DataTypeContacts    DataType = "contacts"
	DataTypePreferences DataType = "preferences"
	DataTypeSignatures  DataType = "signatures"
)

// AllDataTypes lists every supported category in the order the sync cycle
// processes them.
func AllDataTypes() []DataType {
	return []DataType{DataTypeAccounts, DataTypeContacts, DataTypePreferences, DataTypeSignatures}
}

// Valid reports whether d is one of the supported categories.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeAccounts, DataTypeContacts, DataTypePreferences, DataTypeSignatures:
		return true
	}
	return false
}

func (d DataType) String() string { return string(d) }

// ParseDataType converts a wire string into a [DataType]. Unknown values are
// rejected before any state is touched.
func ParseDataType(s string) (DataType, error) {
	d := DataType(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return d, nil
}
