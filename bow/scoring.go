package bow

import (
	"fmt"
	"math"
)

// WeightingType selects how word occurrences accumulate into vector weights.
type WeightingType int

const (
	// TFIDF weights each occurrence by the word's inverse document
	// frequency. The default and usually the best choice.
	TFIDF WeightingType = iota
	// TF weights by raw term frequency only.
	TF
	// IDF ignores frequency: a word present at all gets its idf once.
	IDF
	// Binary ignores both: a word present at all gets weight 1.
	Binary
)

func (w WeightingType) String() string {
	switch w {
	case TFIDF:
		return "tf-idf"
	case TF:
		return "tf"
	case IDF:
		return "idf"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("unknown(%d)", int(w))
	}
}

// Valid reports whether w is a defined weighting type.
func (w WeightingType) Valid() bool {
	return w >= TFIDF && w <= Binary
}

// Presence reports whether the scheme records only word presence, ignoring
// repeat occurrences within one image.
func (w WeightingType) Presence() bool {
	return w == IDF || w == Binary
}

// UsesIDF reports whether word weights carry inverse document frequency.
func (w WeightingType) UsesIDF() bool {
	return w == TFIDF || w == IDF
}

// ScoringType selects the similarity measure between two bag-of-words
// vectors. Every scheme is symmetric and maximal (score 1) when comparing a
// non-empty normalized vector with itself.
type ScoringType int

const (
	// L1Norm scores 1 - 0.5*Σ|a-b| over L1-normalized vectors. Range [0,1].
	L1Norm ScoringType = iota
	// L2Norm scores 1 - sqrt(1 - a·b) over L2-normalized vectors.
	L2Norm
	// DotProduct scores the plain dot product of L2-normalized vectors
	// (cosine similarity; [0,1] for non-negative weights).
	DotProduct
	// Bhattacharyya scores Σ sqrt(a_i*b_i) over L1-normalized vectors.
	Bhattacharyya
)

func (s ScoringType) String() string {
	switch s {
	case L1Norm:
		return "L1-norm"
	case L2Norm:
		return "L2-norm"
	case DotProduct:
		return "dot product"
	case Bhattacharyya:
		return "Bhattacharyya"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Valid reports whether s is a defined scoring type.
func (s ScoringType) Valid() bool {
	return s >= L1Norm && s <= Bhattacharyya
}

// Norm returns the normalization the scheme requires on both vectors.
func (s ScoringType) Norm() Norm {
	switch s {
	case L2Norm, DotProduct:
		return NormL2
	default:
		return NormL1
	}
}

// PartialTerm returns the contribution of one shared word, with weights qw
// and dw in the two vectors, to the accumulated partial score. Words present
// in only one vector contribute nothing: for every scheme the full score is
// recoverable from shared words alone (given normalized inputs), which is
// what lets a database query visit only the probe's posting lists.
func (s ScoringType) PartialTerm(qw, dw float64) float64 {
	switch s {
	case L1Norm:
		return math.Abs(qw-dw) - math.Abs(qw) - math.Abs(dw)
	case L2Norm, DotProduct:
		return qw * dw
	case Bhattacharyya:
		return math.Sqrt(qw * dw)
	default:
		return 0
	}
}

// Finalize converts an accumulated sum of PartialTerm values into the final
// score.
func (s ScoringType) Finalize(acc float64) float64 {
	switch s {
	case L1Norm:
		// For L1-normalized a, b:
		//   1 - 0.5*Σ|a-b| = -0.5 * Σ_shared (|a-b| - |a| - |b|)
		return -acc / 2
	case L2Norm:
		if acc >= 1 {
			return 1
		}
		return 1 - math.Sqrt(1-acc)
	default:
		return acc
	}
}

// Score computes the similarity of two normalized vectors in time
// proportional to the number of non-zero entries of each (a sorted merge;
// the full vocabulary is never iterated).
func (s ScoringType) Score(a, b Vector) float64 {
	var acc float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Word == b[j].Word:
			acc += s.PartialTerm(a[i].Weight, b[j].Weight)
			i++
			j++
		case a[i].Word < b[j].Word:
			i++
		default:
			j++
		}
	}
	return s.Finalize(acc)
}
