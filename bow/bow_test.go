package bow

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderVector(t *testing.T) {
	b := Builder{}
	b.Add(7, 1)
	b.Add(2, 2)
	b.Add(7, 1)

	v := b.Vector(NormL1)
	require.Len(t, v, 2)
	assert.Equal(t, WordID(2), v[0].Word)
	assert.Equal(t, WordID(7), v[1].Word)
	assert.InDelta(t, 0.5, v[0].Weight, 1e-12)
	assert.InDelta(t, 0.5, v[1].Weight, 1e-12)
}

func TestBuilderAddIfNew(t *testing.T) {
	b := Builder{}
	b.AddIfNew(3, 2)
	b.AddIfNew(3, 5)

	v := b.Vector(NormL1)
	require.Len(t, v, 1)
	assert.InDelta(t, 1.0, v[0].Weight, 1e-12)
}

func TestBuilderDropsZeroWeights(t *testing.T) {
	b := Builder{}
	b.Add(1, 0) // e.g. tf * idf with idf == 0
	b.Add(2, 3)

	v := b.Vector(NormL1)
	require.Len(t, v, 1)
	assert.Equal(t, WordID(2), v[0].Word)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	var v Vector
	assert.Empty(t, v.Normalize(NormL1))

	v = Vector{{Word: 1, Weight: 0}}
	got := v.Normalize(NormL2)
	assert.Zero(t, got[0].Weight)
}

func TestNormalizeL2(t *testing.T) {
	v := Vector{{Word: 0, Weight: 3}, {Word: 1, Weight: 4}}.Normalize(NormL2)
	assert.InDelta(t, 0.6, v[0].Weight, 1e-12)
	assert.InDelta(t, 0.8, v[1].Weight, 1e-12)
}

func TestWeight(t *testing.T) {
	v := Vector{{Word: 2, Weight: 0.25}, {Word: 9, Weight: 0.75}}
	assert.Equal(t, 0.25, v.Weight(2))
	assert.Equal(t, 0.75, v.Weight(9))
	assert.Zero(t, v.Weight(5))
}

func randomVector(rng *rand.Rand, maxWords int, n Norm) Vector {
	b := Builder{}
	for i := 0; i < 1+rng.Intn(maxWords); i++ {
		b.Add(WordID(rng.Intn(maxWords*2)), rng.Float64()+0.01)
	}
	return b.Vector(n)
}

func TestScoreSelfMaximal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for _, s := range []ScoringType{L1Norm, L2Norm, DotProduct, Bhattacharyya} {
		t.Run(s.String(), func(t *testing.T) {
			for i := 0; i < 50; i++ {
				v := randomVector(rng, 20, s.Norm())
				assert.InDelta(t, 1.0, s.Score(v, v), 1e-9)
			}
		})
	}
}

func TestScoreSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	for _, s := range []ScoringType{L1Norm, L2Norm, DotProduct, Bhattacharyya} {
		t.Run(s.String(), func(t *testing.T) {
			for i := 0; i < 50; i++ {
				a := randomVector(rng, 20, s.Norm())
				b := randomVector(rng, 20, s.Norm())
				assert.InDelta(t, s.Score(a, b), s.Score(b, a), 1e-12)
			}
		})
	}
}

func TestL1ScoreMatchesDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	// The sparse merge must agree with the textbook 1 - 0.5*Σ|a-b| over the
	// union of keys.
	for i := 0; i < 50; i++ {
		a := randomVector(rng, 15, NormL1)
		b := randomVector(rng, 15, NormL1)

		seen := map[WordID]struct{}{}
		for _, e := range a {
			seen[e.Word] = struct{}{}
		}
		for _, e := range b {
			seen[e.Word] = struct{}{}
		}
		var sum float64
		for w := range seen {
			sum += math.Abs(a.Weight(w) - b.Weight(w))
		}
		want := 1 - 0.5*sum

		assert.InDelta(t, want, L1Norm.Score(a, b), 1e-9)
	}
}

func TestL1ScoreRange(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	for i := 0; i < 100; i++ {
		a := randomVector(rng, 10, NormL1)
		b := randomVector(rng, 10, NormL1)
		s := L1Norm.Score(a, b)
		assert.GreaterOrEqual(t, s, -1e-12)
		assert.LessOrEqual(t, s, 1+1e-12)
	}
}

func TestDisjointVectorsScoreZero(t *testing.T) {
	a := Vector{{Word: 0, Weight: 1}}
	b := Vector{{Word: 1, Weight: 1}}

	assert.InDelta(t, 0.0, L1Norm.Score(a, b), 1e-12)
	assert.InDelta(t, 0.0, DotProduct.Score(a, b), 1e-12)
	assert.InDelta(t, 0.0, Bhattacharyya.Score(a, b), 1e-12)
}

func TestScoringNorms(t *testing.T) {
	assert.Equal(t, NormL1, L1Norm.Norm())
	assert.Equal(t, NormL2, L2Norm.Norm())
	assert.Equal(t, NormL2, DotProduct.Norm())
	assert.Equal(t, NormL1, Bhattacharyya.Norm())
}

func TestTypeValidity(t *testing.T) {
	assert.True(t, TFIDF.Valid())
	assert.True(t, Binary.Valid())
	assert.False(t, WeightingType(99).Valid())

	assert.True(t, L1Norm.Valid())
	assert.False(t, ScoringType(-1).Valid())
}

func TestWeightingProperties(t *testing.T) {
	assert.True(t, TFIDF.UsesIDF())
	assert.True(t, IDF.UsesIDF())
	assert.False(t, TF.UsesIDF())
	assert.False(t, Binary.UsesIDF())

	assert.True(t, IDF.Presence())
	assert.True(t, Binary.Presence())
	assert.False(t, TFIDF.Presence())
}
