// Package bow implements sparse bag-of-words vectors over visual word ids,
// together with the weighting and scoring schemes used to compare them.
package bow

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// WordID identifies a visual word: a leaf of the vocabulary tree. Word ids
// are 0-based and contiguous within one vocabulary.
type WordID uint32

// Entry is one non-zero component of a bag-of-words vector.
type Entry struct {
	Word   WordID
	Weight float64
}

// Vector is a sparse bag-of-words vector: entries sorted by ascending word
// id, word ids unique, weight non-negative. The canonical comparable form is
// normalized under the norm required by the scoring scheme in use.
type Vector []Entry

// Weight returns the weight of word w, or 0 if w is not present.
func (v Vector) Weight(w WordID) float64 {
	i := sort.Search(len(v), func(i int) bool { return v[i].Word >= w })
	if i < len(v) && v[i].Word == w {
		return v[i].Weight
	}
	return 0
}

// String renders the vector as "<w1, x1> <w2, x2> ...".
func (v Vector) String() string {
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "<%d, %g>", e.Word, e.Weight)
	}
	return sb.String()
}

// Norm selects the vector normalization applied after accumulation.
type Norm int

const (
	// NormL1 scales entries so their absolute values sum to 1.
	NormL1 Norm = iota
	// NormL2 scales entries to unit Euclidean length.
	NormL2
)

// Normalize scales v in place to unit norm. An all-zero (or empty) vector is
// returned unchanged: there is nothing meaningful to scale it by.
func (v Vector) Normalize(n Norm) Vector {
	var total float64
	switch n {
	case NormL2:
		for _, e := range v {
			total += e.Weight * e.Weight
		}
		total = math.Sqrt(total)
	default:
		for _, e := range v {
			total += math.Abs(e.Weight)
		}
	}
	if total == 0 {
		return v
	}
	for i := range v {
		v[i].Weight /= total
	}
	return v
}

// Builder accumulates word weights before flattening into a Vector.
type Builder map[WordID]float64

// Add accumulates weight onto word w.
func (b Builder) Add(w WordID, weight float64) {
	b[w] += weight
}

// AddIfNew sets word w to weight only if w has not been seen yet.
// Presence-style weighting schemes use this instead of Add.
func (b Builder) AddIfNew(w WordID, weight float64) {
	if _, ok := b[w]; !ok {
		b[w] = weight
	}
}

// Vector flattens the builder into a sorted, normalized Vector. Zero-weight
// words are dropped.
func (b Builder) Vector(n Norm) Vector {
	v := make(Vector, 0, len(b))
	for w, weight := range b {
		if weight != 0 {
			v = append(v, Entry{Word: w, Weight: weight})
		}
	}
	sort.Slice(v, func(i, j int) bool { return v[i].Word < v[j].Word })
	return v.Normalize(n)
}
