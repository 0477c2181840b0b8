package vcard

import (
	"bufio"
	"io"
	"strings"

	"github.com/smileynet/vcardclean/internal/format"
)

// property is one content line split into its parts.
type property struct {
	name   string // upper-case, group prefix removed
	params format.Params
	value  string
}

// parseLine splits "group.NAME;PARAM=x:value". It reports false for lines
// without a colon or name.
func parseLine(line string) (property, bool) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return property{}, false
	}
	name, params, _ := strings.Cut(head, ";")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return property{}, false
	}
	return property{
		name:   name,
		params: format.ParseParams(params),
		value:  strings.TrimRight(value, "\r"),
	}, true
}

// unfold reads r into logical lines. A physical line starting with a space or
// tab continues the previous one; a quoted-printable line ending in "=" is a
// soft break and continues on the next line.
func unfold(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		lines []string
		soft  bool
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		n := len(lines)
		switch {
		case soft && n > 0:
			lines[n-1] += line
		case n > 0 && line != "" && (line[0] == ' ' || line[0] == '\t'):
			lines[n-1] += line[1:]
		default:
			lines = append(lines, line)
		}

		last := lines[len(lines)-1]
		soft = strings.HasSuffix(last, "=") && isQuotedPrintable(last)
		if soft {
			lines[len(lines)-1] = strings.TrimSuffix(last, "=")
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func isQuotedPrintable(line string) bool {
	head, _, ok := strings.Cut(line, ":")
	return ok && strings.Contains(strings.ToUpper(head), format.QuotedPrintable)
}
