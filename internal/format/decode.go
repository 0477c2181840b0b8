package format

import (
	"bytes"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/phone"
)

// QuotedPrintable is the ENCODING parameter value that triggers decoding.
const QuotedPrintable = "QUOTED-PRINTABLE"

// Params holds property parameters keyed by upper-case name.
type Params map[string]string

// ParseParams parses ";"-separated parameters such as
// "CHARSET=UTF-8;ENCODING=QUOTED-PRINTABLE". Bare values (vCard 2.1 style,
// e.g. "CELL" or "QUOTED-PRINTABLE") are stored under TYPE, or under
// ENCODING when they name an encoding.
func ParseParams(s string) Params {
	p := Params{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			val = key
			key = "TYPE"
			if strings.EqualFold(val, QuotedPrintable) || strings.EqualFold(val, "BASE64") {
				key = "ENCODING"
			}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, exists := p[key]; exists {
			p[key] += "," + val
			continue
		}
		p[key] = val
	}
	return p
}

// IsQuotedPrintable reports whether the parameters declare quoted-printable.
func (p Params) IsQuotedPrintable() bool {
	return strings.EqualFold(p["ENCODING"], QuotedPrintable)
}

// DecodeValue applies the parameters' transfer encoding and charset to value
// and returns UTF-8 text. Values without an encoding or charset are returned
// unchanged.
func DecodeValue(value string, p Params) (string, error) {
	raw := []byte(value)
	if p.IsQuotedPrintable() {
		b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(value)))
		if err != nil {
			return value, fmt.Errorf("format: decoding quoted-printable: %w", err)
		}
		raw = bytes.TrimRight(b, "\x00")
	}
	return toUTF8(raw, p["CHARSET"])
}

func toUTF8(b []byte, charset string) (string, error) {
	charset = strings.TrimSpace(charset)
	if charset == "" || strings.EqualFold(charset, "UTF-8") || strings.EqualFold(charset, "US-ASCII") {
		return string(b), nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return string(b), fmt.Errorf("format: unsupported charset %q", charset)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b), fmt.Errorf("format: decoding charset %s: %w", charset, err)
	}
	return string(out), nil
}

// NormalizePhone canonicalizes raw and reports a malformed number to sink.
func NormalizePhone(raw string, sink diag.Sink) string {
	canonical, valid := phone.Normalize(raw)
	if !valid {
		diag.OrDiscard(sink).Emit(diag.Event{
			Kind:   diag.InvalidPhone,
			Phone:  canonical,
			Region: phone.Region(canonical),
		})
	}
	return canonical
}
