// Package csvfile reads and writes contact lists as CSV with one column per
// record field.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/diag"
	"github.com/smileynet/vcardclean/internal/format"
)

// Name is the registry name of the CSV codec.
const Name = "csv"

// Fixed leading columns.
const (
	ColName     = "Name"
	ColFullName = "FullName"
	ColTel      = "Tel"
	ColTel2     = "Tel2"
	ColTel3     = "Tel3"
)

var phoneColumns = [contact.PhoneSlots]string{ColTel, ColTel2, ColTel3}

// Header returns the column names in emission order.
func Header() []string {
	h := []string{ColName, ColFullName, ColTel, ColTel2, ColTel3}
	for _, k := range contact.ExtraKeys {
		h = append(h, columnFor(k))
	}
	return h
}

// columnFor maps an extra key to its column name.
func columnFor(key string) string {
	if key == "EMAIL" {
		return "Email"
	}
	return strings.ReplaceAll(key, "-", "_")
}

// keyFor maps a column name back to an extra key, or "" when the column is
// not an extra attribute.
func keyFor(column string) string {
	k := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(column), "_", "-"))
	if contact.IsExtraKey(k) {
		return k
	}
	return ""
}

// Codec implements format.Codec for CSV files.
type Codec struct{}

var _ format.Codec = Codec{}

// New returns a CSV codec.
func New() format.Codec { return Codec{} }

// Name returns "csv".
func (Codec) Name() string { return Name }

// Ext returns "csv".
func (Codec) Ext() string { return "csv" }

// Decode reads a header row followed by one record per row. Columns are
// matched by name without regard to case; unknown columns are ignored and
// missing ones read as empty.
func (Codec) Decode(r io.Reader, sink diag.Sink) ([]contact.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: reading header: %w", err)
	}
	cols := indexHeader(header)

	var records []contact.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: reading row %d: %w", len(records)+2, err)
		}
		records = append(records, decodeRow(row, cols, sink))
	}
	return records, nil
}

type columns struct {
	name, fullName int
	phones         [contact.PhoneSlots]int
	extras         map[string]int
}

func indexHeader(header []string) columns {
	c := columns{name: -1, fullName: -1, phones: [contact.PhoneSlots]int{-1, -1, -1}, extras: map[string]int{}}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, ColName):
			c.name = i
		case strings.EqualFold(h, ColFullName):
			c.fullName = i
		case phoneSlot(h) >= 0:
			c.phones[phoneSlot(h)] = i
		default:
			if k := keyFor(h); k != "" {
				if _, dup := c.extras[k]; !dup {
					c.extras[k] = i
				}
			}
		}
	}
	return c
}

func phoneSlot(column string) int {
	for slot, col := range phoneColumns {
		if strings.EqualFold(column, col) {
			return slot
		}
	}
	return -1
}

func decodeRow(row []string, c columns, sink diag.Sink) contact.Record {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec := contact.Record{
		Name:     decodeTagged(cell(c.name)),
		FullName: decodeTagged(cell(c.fullName)),
	}
	for slot, i := range c.phones {
		rec.Phones[slot] = format.NormalizePhone(cell(i), sink)
	}
	for _, k := range contact.ExtraKeys {
		if i, ok := c.extras[k]; ok {
			rec.Extra.Set(k, decodeTagged(cell(i)))
		}
	}
	rec.ApplyDefaults()
	return rec
}

// decodeTagged decodes cells exported with their vCard parameters still
// attached, e.g. "CHARSET=UTF-8;ENCODING=QUOTED-PRINTABLE:=D7=A9". Other
// cells are returned unchanged.
func decodeTagged(v string) string {
	head, value, ok := strings.Cut(v, ":")
	if !ok || !strings.Contains(strings.ToUpper(head), "ENCODING="+format.QuotedPrintable) {
		return v
	}
	decoded, err := format.DecodeValue(value, format.ParseParams(head))
	if err != nil {
		return v
	}
	return decoded
}

// Encode writes the header and one row per record, quoting every field.
func (Codec) Encode(w io.Writer, records []contact.Record) error {
	bw := bufio.NewWriter(w)
	writeRow(bw, Header())
	for _, rec := range records {
		writeRow(bw, encodeRow(rec))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("csv: writing: %w", err)
	}
	return nil
}

func encodeRow(rec contact.Record) []string {
	row := []string{rec.Name, rec.FullName, rec.Phones[0], rec.Phones[1], rec.Phones[2]}
	for _, k := range contact.ExtraKeys {
		row = append(row, rec.Extra.Get(k))
	}
	return row
}

// writeRow writes fields always quoted. encoding/csv only quotes when needed.
func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			_ = w.WriteByte(',')
		}
		_ = w.WriteByte('"')
		_, _ = w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		_ = w.WriteByte('"')
	}
	_, _ = w.WriteString("\r\n")
}
