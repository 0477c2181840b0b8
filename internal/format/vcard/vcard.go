// Package vcard reads and writes contact lists in the vCard text format.
package vcard

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/format"
)

// Name is the registry name of the vCard codec.
const Name = "vcf"

const maxLine = 16 << 20

// Codec implements format.Codec for vCard files.
type Codec struct{}

var _ format.Codec = Codec{}

// New returns a vCard codec.
func New() format.Codec { return Codec{} }

// Name returns "vcf".
func (Codec) Name() string { return Name }

// Ext returns "vcf".
func (Codec) Ext() string { return "vcf" }

// Decode parses every BEGIN:VCARD ... END:VCARD block in r.
//
// N, FN and TEL fill the record; the first value of each known optional
// attribute goes to Extra; everything else is ignored. Values are decoded
// according to their ENCODING and CHARSET parameters. TEL values are
// normalized and fill the phone slots in order; a card's fourth and later
// numbers are dropped.
func (Codec) Decode(r io.Reader, sink diag.Sink) ([]contact.Record, error) {
	lines, err := unfold(r)
	if err != nil {
		return nil, fmt.Errorf("vcard: reading: %w", err)
	}

	var (
		records []contact.Record
		current *contact.Record
	)
	for _, line := range lines {
		prop, ok := parseLine(line)
		if !ok {
			continue
		}
		switch {
		case prop.name == "BEGIN" && strings.EqualFold(prop.value, "VCARD"):
			current = &contact.Record{}
		case current == nil:
			continue
		case prop.name == "END" && strings.EqualFold(prop.value, "VCARD"):
			current.ApplyDefaults()
			records = append(records, *current)
			current = nil
		case prop.name == "N":
			current.Name = unwrapGivenName(strings.TrimSpace(decode(prop)))
		case prop.name == "FN":
			current.FullName = strings.TrimSpace(decode(prop))
		case prop.name == "TEL":
			current.AddPhone(format.NormalizePhone(prop.value, sink))
		case prop.name == "VERSION":
			// Re-emitted by Encode.
		case contact.IsExtraKey(prop.name):
			if !current.Extra.Has(prop.name) {
				current.Extra.Set(prop.name, decode(prop))
			}
		}
	}
	return records, nil
}

// decode returns the property value decoded to UTF-8 and unescaped, or the
// raw value when decoding fails.
func decode(p property) string {
	v, err := format.DecodeValue(p.value, p.params)
	if err != nil {
		return p.value
	}
	return unescape(v)
}

var escaper = strings.NewReplacer(`\`, `\\`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`)

// escape keeps a value on one content line: line breaks become \n and
// backslashes are doubled.
func escape(v string) string {
	return escaper.Replace(v)
}

// unescape reverses escape. Other backslash sequences are left alone, since
// older exports use backslashes literally.
func unescape(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			switch v[i+1] {
			case 'n', 'N':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// Encode writes one card per record. Blank fields are skipped; phones are
// labeled CELL, HOME and WORK by slot.
func (Codec) Encode(w io.Writer, records []contact.Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		writeCard(bw, rec)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("vcard: writing: %w", err)
	}
	return nil
}

var phoneLabels = [contact.PhoneSlots]string{"TEL;TYPE=CELL", "TEL;TYPE=HOME", "TEL;TYPE=WORK"}

func writeCard(w *bufio.Writer, rec contact.Record) {
	put := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		_, _ = w.WriteString(key + ":" + escape(value) + "\n")
	}

	put("BEGIN", "VCARD")
	put("VERSION", "3.0")
	put("N", wrapGivenName(strings.TrimSpace(rec.Name)))
	put("FN", rec.FullName)
	for i, p := range rec.Phones {
		put(phoneLabels[i], p)
	}
	rec.Extra.Each(func(key, value string) {
		if key == "VERSION" {
			return
		}
		put(key, value)
	})
	put("END", "VCARD")
}

// wrapGivenName turns an unstructured name into the given-name form ";name".
// Names that already carry components are written as they are.
func wrapGivenName(name string) string {
	if name == "" || strings.Contains(name, ";") {
		return name
	}
	return ";" + name
}

// unwrapGivenName reverses wrapGivenName.
func unwrapGivenName(name string) string {
	rest, ok := strings.CutPrefix(name, ";")
	if ok && rest != "" && !strings.Contains(rest, ";") {
		return rest
	}
	return name
}
