package descriptor

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Binary implements Trait for fixed-length binary descriptors under the
// Hamming metric. The zero value is not usable; construct with NewBinary.
type Binary struct {
	length int
}

var _ Trait = Binary{}

// NewBinary creates a Binary trait for descriptors of length bytes
// (8*length bits). Typical values: 32 for ORB, 48 or 64 for BRISK.
func NewBinary(length int) (Binary, error) {
	if length < 1 {
		return Binary{}, fmt.Errorf("descriptor: invalid length %d", length)
	}
	return Binary{length: length}, nil
}

// MustBinary is NewBinary that panics on an invalid length. Intended for
// package-level variables and tests.
func MustBinary(length int) Binary {
	b, err := NewBinary(length)
	if err != nil {
		panic(err)
	}
	return b
}

// Length returns the descriptor length in bytes.
func (t Binary) Length() int { return t.length }

// Validate checks that d has the configured length.
func (t Binary) Validate(d Descriptor) error {
	if len(d) != t.length {
		return &ErrLengthMismatch{Expected: t.length, Actual: len(d)}
	}
	return nil
}

// Distance returns the Hamming distance between a and b: the number of
// differing bits, computed as the population count of the bytewise XOR.
// Both descriptors must have the configured length.
func (t Binary) Distance(a, b Descriptor) float64 {
	return float64(hamming(a, b))
}

// hamming processes 8-byte words with a byte tail.
func hamming(a, b []byte) int {
	n := len(a)
	total := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		x := binary.LittleEndian.Uint64(a[i:])
		y := binary.LittleEndian.Uint64(b[i:])
		total += bits.OnesCount64(x ^ y)
	}
	for ; i < n; i++ {
		total += bits.OnesCount8(a[i] ^ b[i])
	}
	return total
}

// Centroid returns the majority-vote aggregate of ds: per bit position, the
// result bit is set iff strictly more than half of the inputs have it set.
// A tie (exactly half) leaves the bit unset. This is not a true mean under
// the Hamming metric, only a close approximation, but it is the aggregation
// the file format and all existing trained vocabularies are built on.
//
// Centroid panics on an empty input; callers cluster non-empty sets only.
func (t Binary) Centroid(ds []Descriptor) Descriptor {
	if len(ds) == 0 {
		panic("descriptor: centroid of empty set")
	}
	if len(ds) == 1 {
		return ds[0].Clone()
	}

	counts := make([]int, t.length*8)
	for _, d := range ds {
		for i := 0; i < t.length; i++ {
			byteVal := d[i]
			for b := 0; b < 8; b++ {
				if byteVal&(1<<b) != 0 {
					counts[i*8+b]++
				}
			}
		}
	}

	half := len(ds) / 2
	out := make(Descriptor, t.length)
	for i := 0; i < t.length; i++ {
		for b := 0; b < 8; b++ {
			if counts[i*8+b] > half {
				out[i] |= 1 << b
			}
		}
	}
	return out
}

// Encode renders d as space-separated decimal byte values, the textual node
// form used by persisted vocabularies.
func (t Binary) Encode(d Descriptor) string {
	var sb strings.Builder
	sb.Grow(len(d) * 4)
	for i, v := range d {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	return sb.String()
}

// Decode parses the form produced by Encode. The token count must match the
// configured length exactly and every token must be a byte value.
func (t Binary) Decode(s string) (Descriptor, error) {
	fields := strings.Fields(s)
	if len(fields) != t.length {
		return nil, fmt.Errorf("descriptor: expected %d byte tokens, got %d", t.length, len(fields))
	}
	d := make(Descriptor, t.length)
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("descriptor: bad byte token %q at position %d: %w", f, i, err)
		}
		d[i] = byte(v)
	}
	return d, nil
}

// DenseMatrix expands each descriptor into one row of 8*Length() float32
// columns, one column per bit, for interoperability with generic numeric
// tooling. Each cell holds the raw masked bit value (0 or 1<<b within its
// byte), not a 0/1 indicator. Existing persisted artifacts were produced
// with this scaling, so it is kept bit-compatible rather than cleaned up.
func DenseMatrix(t Trait, ds []Descriptor) [][]float32 {
	if len(ds) == 0 {
		return nil
	}
	cols := t.Length() * 8
	mat := make([][]float32, len(ds))
	for i, d := range ds {
		row := make([]float32, cols)
		for j := 0; j < t.Length(); j++ {
			for b := 0; b < 8; b++ {
				row[j*8+b] = float32(d[j] & (1 << b))
			}
		}
		mat[i] = row
	}
	return mat
}

// ErrLengthMismatch indicates a descriptor whose length does not match the
// trait's configured length. It is a configuration-class failure: the
// descriptor set was produced for a different descriptor type.
type ErrLengthMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("descriptor length mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}
