// Package format defines the codecs that translate contact files to and from
// records, and a registry to look them up by name or file extension.
package format

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smileynet/vcardclean/internal/contact"
	"github.com/smileynet/vcardclean/internal/diag"
)

// Codec parses and renders one contact file format.
type Codec interface {
	// Name returns the format identifier (e.g. "vcf").
	Name() string
	// Ext returns the file extension without the dot.
	Ext() string
	// Decode reads records. Phone slots come back normalized with names
	// defaulted; malformed numbers are reported to sink.
	Decode(r io.Reader, sink diag.Sink) ([]contact.Record, error)
	// Encode writes records.
	Encode(w io.Writer, records []contact.Record) error
}

// Factory creates a codec.
type Factory func() Codec

// Registry maps format names to codec factories.
// It is not safe for concurrent use; registration should happen at startup.
type Registry struct {
	factories map[string]Factory
	exts      map[string]string
	fallback  string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		exts:      make(map[string]string),
	}
}

// Register adds a named codec factory, overwriting any earlier one. The
// codec's extension is mapped to name for ForPath.
// Panics if name is empty or f is nil (programmer error).
func (r *Registry) Register(name string, f Factory) {
	if name == "" {
		panic("format: Register called with empty name")
	}
	if f == nil {
		panic("format: Register called with nil factory")
	}
	r.factories[name] = f
	r.exts[strings.ToLower(f().Ext())] = name
}

// SetFallback names the format ForPath uses for unknown extensions.
func (r *Registry) SetFallback(name string) {
	r.fallback = name
}

// New returns the codec registered under name.
func (r *Registry) New(name string) (Codec, error) {
	f, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, &UnknownFormatError{Name: name, Available: r.Available()}
	}
	return f(), nil
}

// ForPath picks a codec from the file extension of path, falling back to the
// registry's fallback format.
func (r *Registry) ForPath(path string) (Codec, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if name, ok := r.exts[ext]; ok {
		return r.New(name)
	}
	if r.fallback == "" {
		return nil, &UnknownFormatError{Name: ext, Available: r.Available()}
	}
	return r.New(r.fallback)
}

// Available returns registered format names in sorted order.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrUnknownFormat matches every UnknownFormatError under errors.Is.
var ErrUnknownFormat = errors.New("format: unknown format")

// UnknownFormatError indicates a format name is not registered.
type UnknownFormatError struct {
	Name      string
	Available []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Is reports whether target is ErrUnknownFormat.
func (e *UnknownFormatError) Is(target error) bool {
	return target == ErrUnknownFormat
}
