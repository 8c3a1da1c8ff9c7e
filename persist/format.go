// Package persist implements the on-disk format for vocabularies and
// databases: a small binary header followed by a compressed hierarchical
// record stream, loaded by a single-pass streaming reader that runs in time
// linear in the number of records.
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/codec"
)

const (
	// Magic identifies vocabulary/database files (ASCII "DBW2").
	Magic = 0x44425732
	// Version is the current file format version.
	Version = 1
)

var (
	// ErrInvalidMagic is returned for files that are not in this format.
	ErrInvalidMagic = errors.New("persist: invalid magic number")
	// ErrInvalidVersion is returned for files written by a newer format.
	ErrInvalidVersion = errors.New("persist: unsupported format version")
)

// FormatError describes a structurally broken file: a missing required
// field, a dangling node reference, an undecodable descriptor. Loading stops
// at the first such error and never returns a partially-built result.
type FormatError struct {
	Field  string
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("persist: malformed file: %s: %s", e.Field, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

func formatErr(field, reason string, cause error) *FormatError {
	return &FormatError{Field: field, Reason: reason, cause: cause}
}

// Compression selects the payload compression.
type Compression uint8

const (
	// NoCompression stores the record stream raw.
	NoCompression Compression = iota
	// Gzip is the default; trained vocabularies have always shipped
	// gzip-compressed.
	Gzip
	// LZ4 trades a larger file for faster load.
	LZ4
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Gzip:
		return "gzip"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Valid reports whether c is a defined compression scheme.
func (c Compression) Valid() bool { return c <= LZ4 }

// header is the self-describing fixed preamble: magic, version, compression
// and the codec name the payload was written with.
type header struct {
	version     uint32
	compression Compression
	codecName   string
}

func writeHeader(w io.Writer, h header) error {
	var buf [9]byte
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.version)
	buf[8] = byte(h.compression)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	name := []byte(h.codecName)
	if len(name) > 255 {
		return formatErr("codec", "codec name too long", nil)
	}
	if _, err := w.Write([]byte{byte(len(name))}); err != nil {
		return err
	}
	_, err := w.Write(name)
	return err
}

func readHeader(r io.Reader) (header, error) {
	var buf [10]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return header{}, formatErr("header", "truncated header", err)
	}
	if binary.LittleEndian.Uint32(buf[0:]) != Magic {
		return header{}, ErrInvalidMagic
	}
	h := header{
		version:     binary.LittleEndian.Uint32(buf[4:]),
		compression: Compression(buf[8]),
	}
	if h.version > Version {
		return header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, h.version)
	}
	if !h.compression.Valid() {
		return header{}, formatErr("header", fmt.Sprintf("unknown compression %d", buf[8]), nil)
	}
	name := make([]byte, buf[9])
	if _, err := io.ReadFull(r, name); err != nil {
		return header{}, formatErr("header", "truncated codec name", err)
	}
	h.codecName = string(name)
	return h, nil
}

func (h header) codec() (codec.Codec, error) {
	c, ok := codec.ByName(h.codecName)
	if !ok {
		return nil, formatErr("codec", fmt.Sprintf("unknown codec %q", h.codecName), nil)
	}
	return c, nil
}

// compressor wraps w per the scheme. The returned closer must be closed
// before the underlying writer to flush compressed trailers.
func (c Compression) compressor(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case NoCompression:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("persist: unknown compression %d", uint8(c))
	}
}

func (c Compression) decompressor(r io.Reader) (io.Reader, error) {
	switch c {
	case NoCompression:
		return r, nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, formatErr("payload", "bad gzip stream", err)
		}
		return zr, nil
	case LZ4:
		return lz4.NewReader(r), nil
	default:
		return nil, fmt.Errorf("persist: unknown compression %d", uint8(c))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
