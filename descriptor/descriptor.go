// Package descriptor defines the aggregation contract a fixed-length feature
// descriptor type must satisfy to participate in a vocabulary tree, and
// provides the binary (Hamming-space) implementation used for descriptors
// such as ORB and BRISK.
package descriptor

// Descriptor is an opaque fixed-length feature descriptor. For binary
// descriptors it is the raw bit-string, one bit per dimension. Descriptors
// are value types: code that stores one must copy it if the caller may
// reuse the backing slice.
type Descriptor []byte

// Clone returns an independent copy of d.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	c := make(Descriptor, len(d))
	copy(c, d)
	return c
}

// Trait is the set of operations the tree builder and quantizer need from a
// descriptor type. Implementations must be safe for concurrent use; all
// methods are pure functions of their inputs.
type Trait interface {
	// Length returns the descriptor length in bytes.
	Length() int

	// Distance returns the distance between two descriptors of equal
	// length. It must be a true metric: symmetric, zero iff the inputs are
	// bitwise equal, and satisfying the triangle inequality.
	Distance(a, b Descriptor) float64

	// Centroid returns a representative descriptor for a non-empty
	// collection. The result must not depend on the order of the input.
	Centroid(ds []Descriptor) Descriptor

	// Encode returns a lossless textual form of d.
	Encode(d Descriptor) string

	// Decode parses the textual form produced by Encode. Malformed input
	// must produce an error, never a truncated descriptor.
	Decode(s string) (Descriptor, error)
}
