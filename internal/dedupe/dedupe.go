// Package dedupe removes contact records that carry the same phone numbers.
package dedupe

import (
	"strings"

	"github.com/smileynet/vcardclean/internal/contact"
)

// Dedupe returns records without duplicates, keeping the first occurrence of
// each and preserving order. Two records are duplicates when their three
// phone slots are equal; empty slots match empty slots, so all records
// without phone numbers collapse into the first of them.
func Dedupe(records []contact.Record) []contact.Record {
	seen := make(map[[contact.PhoneSlots]string]struct{}, len(records))
	out := make([]contact.Record, 0, len(records))
	for _, r := range records {
		key := r.PhoneKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Duplicate is a phone number that appears more than once.
type Duplicate struct {
	Phone string
	Count int
}

// Census counts every non-blank phone number across all slots of all records
// and returns those seen more than once, in order of first appearance.
func Census(records []contact.Record) []Duplicate {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		for _, p := range r.Phones {
			if strings.TrimSpace(p) == "" {
				continue
			}
			if counts[p] == 0 {
				order = append(order, p)
			}
			counts[p]++
		}
	}

	var dups []Duplicate
	for _, p := range order {
		if n := counts[p]; n > 1 {
			dups = append(dups, Duplicate{Phone: p, Count: n})
		}
	}
	return dups
}
