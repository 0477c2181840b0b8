// Package phone canonicalizes raw phone strings to the local dialing form.
//
// Canonical numbers contain only digits and start with 0. Numbers that cannot
// be brought into that form are returned as-is and reported as invalid so the
// caller can emit a diagnostic.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	countryCode    = "+972"
	trunkPrefix    = "0"
	carrierPrefix  = "013"
	legacyCarrier  = "012"
	intlPrefix     = "00"
	mobilePrefix   = "05"
	longDistance   = "1"
	longDistLen    = 11
	localLen       = 10
	localLenPrefix = "0131"
)

var digitRun = regexp.MustCompile(`\+?\d+`)

// Normalize returns the canonical form of raw and whether it is valid.
// An empty result means raw held no usable number. valid is false when the
// number could not be brought into a 0-prefixed form; the value is still
// returned unchanged in that case. Non-blank input without any digits is
// such a number: it comes back empty and invalid.
//
// The rules are applied in order, each one to the output of the previous:
// +972 becomes 0, any other + becomes 013, 012 becomes 013, 00 becomes 013,
// an 11 digit number starting with 1 gets 013 prepended, and a 10 digit
// number still lacking the leading 0 gets 0131 prepended.
func Normalize(raw string) (canonical string, valid bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}

	v := digitRun.FindString(raw)

	if strings.HasPrefix(v, countryCode) {
		v = trunkPrefix + v[len(countryCode):]
	}
	if strings.HasPrefix(v, "+") {
		v = carrierPrefix + v[1:]
	}
	if strings.HasPrefix(v, legacyCarrier) {
		v = carrierPrefix + v[len(legacyCarrier):]
	}
	if strings.HasPrefix(v, intlPrefix) {
		v = carrierPrefix + v[len(intlPrefix):]
	}
	if strings.HasPrefix(v, longDistance) && len(v) == longDistLen {
		v = carrierPrefix + v
	}
	if !strings.HasPrefix(v, trunkPrefix) {
		if len(v) == localLen {
			return localLenPrefix + v, true
		}
		return v, false
	}
	return v, true
}

// IsMobile reports whether a canonical number is a mobile number.
func IsMobile(canonical string) bool {
	return strings.HasPrefix(canonical, mobilePrefix)
}

// Region guesses the ISO region of a number that failed normalization by
// reading its leading digits as an international country code. It returns ""
// when no region matches.
func Region(number string) string {
	v := strings.TrimPrefix(digitRun.FindString(number), "+")
	if v == "" {
		return ""
	}
	num, err := phonenumbers.Parse("+"+v, "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}
