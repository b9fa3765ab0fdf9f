package models

import "time"

// Contact is the plaintext shape of a "contacts" record on the device side.
// The field set is fixed so the conflict resolver can do a deterministic
// field-level three-way merge.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Notes     string    `json:"notes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactField names one mergeable field of a [Contact]. UpdatedAt is
// bookkeeping and is excluded from merge decisions.
type ContactField string

const (
	ContactFieldName    ContactField = "name"
	ContactFieldEmail   ContactField = "email"
	ContactFieldPhone   ContactField = "phone"
	ContactFieldCompany ContactField = "company"
	ContactFieldNotes   ContactField = "notes"
)

// ChangedFields returns the set of fields on which c differs from base.
func (c Contact) ChangedFields(base Contact) map[ContactField]bool {
	changed := make(map[ContactField]bool)
	if c.Name != base.Name {
		changed[ContactFieldName] = true
	}
	if c.Email != base.Email {
		changed[ContactFieldEmail] = true
	}
	if c.Phone != base.Phone {
		changed[ContactFieldPhone] = true
	}
	if c.Company != base.Company {
		changed[ContactFieldCompany] = true
	}
	if c.Notes != base.Notes {
		changed[ContactFieldNotes] = true
	}
	return changed
}

// Apply copies the named field's value from src into c.
func (c *Contact) Apply(field ContactField, src Contact) {
	switch field {
	case ContactFieldName:
		c.Name = src.Name
	case ContactFieldEmail:
		c.Email = src.Email
	case ContactFieldPhone:
		c.Phone = src.Phone
	case ContactFieldCompany:
		c.Company = src.Company
	case ContactFieldNotes:
		c.Notes = src.Notes
	}
}
