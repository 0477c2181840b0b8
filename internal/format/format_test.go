package format

import (
	"errors"
	"io"
	"testing"

	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/diag"
)

type stubCodec struct{ name, ext string }

func (s stubCodec) Name() string { return s.name }
func (s stubCodec) Ext() string  { return s.ext }
func (s stubCodec) Decode(io.Reader, diag.Sink) ([]contact.Record, error) {
	return nil, nil
}
func (s stubCodec) Encode(io.Writer, []contact.Record) error { return nil }

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("vcf", func() Codec { return stubCodec{"vcf", "vcf"} })
	r.Register("csv", func() Codec { return stubCodec{"csv", "csv"} })
	return r
}

func TestRegistry(t *testing.T) {
	t.Run("new by name", func(t *testing.T) {
		c, err := newTestRegistry().New("VCF")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Name() != "vcf" {
			t.Errorf("Name() = %q, want %q", c.Name(), "vcf")
		}
	})

	t.Run("unknown format returns UnknownFormatError", func(t *testing.T) {
		_, err := newTestRegistry().New("xlsx")
		var ufe *UnknownFormatError
		if !errors.As(err, &ufe) {
			t.Fatalf("expected *UnknownFormatError, got %T", err)
		}
		if ufe.Name != "xlsx" {
			t.Errorf("Name = %q, want %q", ufe.Name, "xlsx")
		}
		if len(ufe.Available) != 2 || ufe.Available[0] != "csv" || ufe.Available[1] != "vcf" {
			t.Errorf("Available = %v, want [csv vcf]", ufe.Available)
		}
		if got := ufe.Error(); got != `unknown format "xlsx" (available: csv, vcf)` {
			t.Errorf("Error() = %q", got)
		}
		if !errors.Is(err, ErrUnknownFormat) {
			t.Error("errors.Is(err, ErrUnknownFormat) = false")
		}
	})

	t.Run("for path uses extension", func(t *testing.T) {
		c, err := newTestRegistry().ForPath("/tmp/contacts.VCF")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Name() != "vcf" {
			t.Errorf("Name() = %q, want %q", c.Name(), "vcf")
		}
	})

	t.Run("for path falls back", func(t *testing.T) {
		r := newTestRegistry()
		r.SetFallback("csv")
		c, err := r.ForPath("contacts.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Name() != "csv" {
			t.Errorf("Name() = %q, want %q", c.Name(), "csv")
		}
	})

	t.Run("for path without fallback errors", func(t *testing.T) {
		if _, err := newTestRegistry().ForPath("contacts.txt"); err == nil {
			t.Error("expected error for unknown extension without fallback")
		}
	})

	t.Run("register panics on empty name", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		NewRegistry().Register("", func() Codec { return stubCodec{} })
	})
}

func TestParseParams(t *testing.T) {
	p := ParseParams("CHARSET=UTF-8;ENCODING=QUOTED-PRINTABLE;type=cell;TYPE=pref")
	if p["CHARSET"] != "UTF-8" {
		t.Errorf("CHARSET = %q", p["CHARSET"])
	}
	if !p.IsQuotedPrintable() {
		t.Error("IsQuotedPrintable = false, want true")
	}
	if p["TYPE"] != "cell,pref" {
		t.Errorf("TYPE = %q, want %q", p["TYPE"], "cell,pref")
	}

	bare := ParseParams("CELL;QUOTED-PRINTABLE")
	if bare["TYPE"] != "CELL" || !bare.IsQuotedPrintable() {
		t.Errorf("bare params = %v", bare)
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		params Params
		want   string
	}{
		{
			name:  "plain value untouched",
			value: "Bob=20Smith",
			want:  "Bob=20Smith",
		},
		{
			name:   "quoted printable utf-8",
			value:  "=D7=A9=D7=9C=D7=95=D7=9D",
			params: Params{"ENCODING": QuotedPrintable, "CHARSET": "UTF-8"},
			want:   "שלום",
		},
		{
			name:   "quoted printable ascii",
			value:  "Bob=20Smith",
			params: Params{"ENCODING": "quoted-printable"},
			want:   "Bob Smith",
		},
		{
			name:   "quoted printable iso-8859-8",
			value:  "=F9=EC=E5=ED",
			params: Params{"ENCODING": QuotedPrintable, "CHARSET": "ISO-8859-8"},
			want:   "שלום",
		},
		{
			name:   "latin1 without transfer encoding",
			value:  "Caf\xe9",
			params: Params{"CHARSET": "ISO-8859-1"},
			want:   "Café",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.value, tt.params)
			if err != nil {
				t.Fatalf("DecodeValue error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeValue = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeValue_UnknownCharset(t *testing.T) {
	got, err := DecodeValue("abc", Params{"CHARSET": "X-NOPE"})
	if err == nil {
		t.Fatal("expected error for unknown charset")
	}
	if got != "abc" {
		t.Errorf("value = %q, want raw value back", got)
	}
}

func TestNormalizePhone_ReportsInvalid(t *testing.T) {
	var sink diag.Collector
	if got := NormalizePhone("+972501234567", &sink); got != "0501234567" {
		t.Errorf("NormalizePhone = %q, want %q", got, "0501234567")
	}
	if got := NormalizePhone("12345", &sink); got != "12345" {
		t.Errorf("NormalizePhone = %q, want %q", got, "12345")
	}
	events := sink.OfKind(diag.InvalidPhone)
	if len(events) != 1 || events[0].Phone != "12345" {
		t.Errorf("invalid events = %+v, want one for 12345", events)
	}
}

func TestNormalizePhone_ReportsValueWithoutDigits(t *testing.T) {
	var sink diag.Collector
	if got := NormalizePhone("unknown", &sink); got != "" {
		t.Errorf("NormalizePhone = %q, want empty", got)
	}
	if got := NormalizePhone("  ", &sink); got != "" {
		t.Errorf("NormalizePhone(blank) = %q, want empty", got)
	}
	if n := sink.Count(diag.InvalidPhone); n != 1 {
		t.Errorf("invalid events = %d, want 1 (blank input is not reported)", n)
	}
}
