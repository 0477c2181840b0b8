// Package merge folds contact records that share a display name into one.
package merge

import (
	"strings"

	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/diag"
)

// Merge groups records by FullName and folds each group into one record.
//
// Records without a FullName or a primary phone are dropped. Groups appear in
// the order their first member was seen. Within a group the first member wins
// every non-phone field; up to two further distinct primary numbers from the
// other members are moved into its free phone slots, and numbers that do not
// fit are reported to sink as merge overflows. When the primary number is not
// a mobile number but slot 2 (or else slot 3) is, the two are swapped.
//
// The input slice and its records are not modified.
func Merge(records []contact.Record, sink diag.Sink) []contact.Record {
	sink = diag.OrDiscard(sink)

	var order []string
	groups := make(map[string][]contact.Record)
	for _, r := range records {
		if r.FullName == "" || r.Primary() == "" {
			continue
		}
		if _, seen := groups[r.FullName]; !seen {
			order = append(order, r.FullName)
		}
		groups[r.FullName] = append(groups[r.FullName], r)
	}

	out := make([]contact.Record, 0, len(order))
	for _, name := range order {
		out = append(out, fold(groups[name], sink))
	}
	return out
}

// fold merges one group. members is never empty.
func fold(members []contact.Record, sink diag.Sink) contact.Record {
	main := members[0].Clone()
	primary := main.Primary()

	second := firstDiffering(members, 1, -1, primary)
	if second < 0 {
		return main
	}

	switch p := members[second].Primary(); {
	case isBlank(main.Phones[1]):
		main.Phones[1] = p
	case isBlank(main.Phones[2]):
		main.Phones[2] = p
	default:
		overflow(sink, p, main.FullName)
	}

	// The third scan restarts at the group's third member, not after second,
	// so a candidate sitting between the two is never looked at.
	if third := firstDiffering(members, 2, second, primary); third >= 0 {
		p := members[third].Primary()
		if isBlank(main.Phones[2]) {
			main.Phones[2] = p
		} else {
			overflow(sink, p, main.FullName)
		}
	}

	preferMobile(&main)
	return main
}

// firstDiffering returns the index of the first member at or after from,
// other than skip, whose primary phone is set and differs from primary.
// It returns -1 when there is none.
func firstDiffering(members []contact.Record, from, skip int, primary string) int {
	for i := from; i < len(members); i++ {
		if i == skip {
			continue
		}
		if p := members[i].Primary(); p != "" && p != primary {
			return i
		}
	}
	return -1
}

// preferMobile moves a mobile number into slot 1 when slot 1 holds none.
// Slot 2 is checked before slot 3 and at most one swap happens.
func preferMobile(r *contact.Record) {
	tel1, tel2, tel3 := r.Phones[0], r.Phones[1], r.Phones[2]
	switch {
	case !contact.IsMobile(tel1) && contact.IsMobile(tel2):
		r.Phones[0], r.Phones[1] = tel2, tel1
	case !contact.IsMobile(tel1) && contact.IsMobile(tel3):
		r.Phones[0], r.Phones[2] = tel3, tel1
	}
}

func overflow(sink diag.Sink, phone, fullName string) {
	sink.Emit(diag.Event{Kind: diag.MergeOverflow, Phone: phone, FullName: fullName})
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
