package pipeline

import (
	"github.com/smileynet/vcardclean/internal/format"
	"github.com/smileynet/vcardclean/internal/format/csvfile"
	"github.com/smileynet/vcardclean/internal/format/vcard"
)

// RegisterBuiltins adds the vCard and CSV codecs to reg. Files with an
// unrecognized extension are read as CSV.
func RegisterBuiltins(reg *format.Registry) {
	reg.Register(vcard.Name, vcard.New)
	reg.Register(csvfile.Name, csvfile.New)
	reg.SetFallback(csvfile.Name)
}

// DefaultCodecs returns a registry holding the built-in codecs.
func DefaultCodecs() *format.Registry {
	reg := format.NewRegistry()
	RegisterBuiltins(reg)
	return reg
}
