// Package contact defines the contact record shared by the format adapters,
// the merge engine and the deduplicator.
package contact

import (
	"strings"

	"github.com/smileynet/vcardclean/internal/phone"
)

// PhoneSlots is the number of phone numbers a Record can hold.
const PhoneSlots = 3

// Record is one contact.
type Record struct {
	Name     string
	FullName string
	// Phones holds canonical numbers. Slot 0 is the primary number.
	Phones [PhoneSlots]string
	// Extra carries the remaining card attributes through unchanged.
	// It never takes part in merge or dedup decisions.
	Extra Extras
}

// Primary returns the primary phone number.
func (r Record) Primary() string {
	return r.Phones[0]
}

// AddPhone stores p in the first empty slot. It reports false when every
// slot is taken.
func (r *Record) AddPhone(p string) bool {
	for i := range r.Phones {
		if r.Phones[i] == "" {
			r.Phones[i] = p
			return true
		}
	}
	return false
}

// ApplyDefaults fills in missing names. Name falls back to the primary
// phone; FullName falls back to Name, then to the primary phone.
func (r *Record) ApplyDefaults() {
	if isBlank(r.Name) {
		r.Name = r.Primary()
	}
	if isBlank(r.FullName) {
		r.FullName = r.Name
	}
	if isBlank(r.FullName) {
		r.FullName = r.Primary()
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Extra = r.Extra.Clone()
	return r
}

// PhoneKey returns a comparable key over the three phone slots.
func (r Record) PhoneKey() [PhoneSlots]string {
	return r.Phones
}

// SamePhones reports whether a and b hold the same three phone slots.
// Empty slots compare equal to each other, so two records without any phone
// number are the same.
func SamePhones(a, b Record) bool {
	return a.PhoneKey() == b.PhoneKey()
}

// IsMobile reports whether a canonical number is a mobile number.
func IsMobile(p string) bool {
	return phone.IsMobile(p)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
