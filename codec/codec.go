// Package codec centralizes the record encoding used by persisted
// vocabularies and databases.
//
// Persisted files are self-describing: the file header stores the codec name,
// and the loader selects the codec by name. Changing the default codec is a
// breaking-change boundary for newly-written files only.
package codec

import "io"

// Delim is a structural token in a record stream: one of '{', '}', '[', ']'.
// Decoders normalize their native delimiter types to this one so callers can
// switch codecs without caring which JSON implementation backs them.
type Delim rune

func (d Delim) String() string { return string(rune(d)) }

// Decoder reads a record stream one token or record at a time. It never
// buffers the whole document, which is what keeps loading linear in the
// number of records.
type Decoder interface {
	// Token returns the next token: Delim, string, float64, bool or nil.
	Token() (any, error)
	// More reports whether the current array or object has more elements.
	More() bool
	// Decode reads the next complete value into v.
	Decode(v any) error
}

// Codec encodes and decodes records. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	NewDecoder(r io.Reader) Decoder
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used for newly-written files. Existing files are
// opened with whatever codec their header names.
var Default Codec = GoJSON{}
