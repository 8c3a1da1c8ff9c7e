package vocab

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
)

var testTrait = descriptor.MustBinary(1)

// twoClusterImage returns 8 one-byte descriptors forming two well-separated
// clusters of four.
func twoClusterImage() []descriptor.Descriptor {
	return []descriptor.Descriptor{
		{0x00}, {0x01}, {0x02}, {0x03},
		{0xFC}, {0xFD}, {0xFE}, {0xFF},
	}
}

func buildTest(t *testing.T, params Params, images [][]descriptor.Descriptor) *Vocabulary {
	t.Helper()
	v, err := Build(context.Background(), testTrait, images, params, Options{})
	require.NoError(t, err)
	return v
}

func TestBuildValidation(t *testing.T) {
	ctx := context.Background()
	images := [][]descriptor.Descriptor{twoClusterImage()}

	_, err := Build(ctx, testTrait, images, Params{K: 1, Depth: 2}, Options{})
	assert.ErrorIs(t, err, ErrInvalidBranching)

	_, err = Build(ctx, testTrait, images, Params{K: 2, Depth: 0}, Options{})
	assert.ErrorIs(t, err, ErrInvalidDepth)

	_, err = Build(ctx, testTrait, nil, Params{K: 2, Depth: 2}, Options{})
	assert.ErrorIs(t, err, ErrEmptyTraining)

	_, err = Build(ctx, testTrait, [][]descriptor.Descriptor{{}}, Params{K: 2, Depth: 2}, Options{})
	assert.ErrorIs(t, err, ErrEmptyTraining)
}

func TestBuildRejectsWrongLength(t *testing.T) {
	images := [][]descriptor.Descriptor{{{1, 2}}} // 2 bytes against a 1-byte trait

	_, err := Build(context.Background(), testTrait, images, Params{K: 2, Depth: 2}, Options{})

	var lm *descriptor.ErrLengthMismatch
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, 1, lm.Expected)
	assert.Equal(t, 2, lm.Actual)
}

func TestSmallVocabularyShape(t *testing.T) {
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TFIDF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{twoClusterImage()})

	assert.Equal(t, 4, v.Size())
	assert.Equal(t, 2, v.K())
	assert.Equal(t, 2, v.Depth())
	// root + 2 + 4
	assert.Equal(t, 7, v.NodeCount())

	// Single training image: every word occurs in it, so idf = ln(1/1) = 0.
	for w := 0; w < v.Size(); w++ {
		idf, ok := v.WordIDF(bow.WordID(w))
		require.True(t, ok)
		assert.Zero(t, idf)
	}
}

func TestEveryLeafAtExactDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tr := descriptor.MustBinary(4)
	images := make([][]descriptor.Descriptor, 5)
	for i := range images {
		images[i] = make([]descriptor.Descriptor, 30)
		for j := range images[i] {
			images[i][j] = make(descriptor.Descriptor, 4)
			rng.Read(images[i][j])
		}
	}

	v, err := Build(context.Background(), tr, images,
		Params{K: 3, Depth: 3, Weighting: bow.TFIDF, Scoring: bow.L1Norm}, Options{})
	require.NoError(t, err)
	require.NotZero(t, v.Size())

	// Walk each word's parent chain to the root; the tree invariant is
	// exactly L child-selection steps from root to any leaf.
	parents := map[NodeID]NodeID{}
	require.NoError(t, v.NodeRecords(func(r NodeRecord) error {
		parents[r.ID] = r.Parent
		return nil
	}))
	require.NoError(t, v.WordRecords(func(w WordRecord) error {
		depth := 0
		for n := w.Node; n != 0; n = parents[n] {
			depth++
		}
		assert.Equal(t, v.Depth(), depth, "word %d", w.Word)
		return nil
	}))
}

func TestBuildDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	tr := descriptor.MustBinary(8)
	images := make([][]descriptor.Descriptor, 4)
	for i := range images {
		images[i] = make([]descriptor.Descriptor, 50)
		for j := range images[i] {
			images[i][j] = make(descriptor.Descriptor, 8)
			rng.Read(images[i][j])
		}
	}
	params := Params{K: 4, Depth: 2, Weighting: bow.TFIDF, Scoring: bow.L1Norm}

	dump := func(v *Vocabulary) ([]NodeRecord, []WordRecord) {
		var ns []NodeRecord
		var ws []WordRecord
		require.NoError(t, v.NodeRecords(func(r NodeRecord) error { ns = append(ns, r); return nil }))
		require.NoError(t, v.WordRecords(func(r WordRecord) error { ws = append(ws, r); return nil }))
		return ns, ws
	}

	// Parallel subtree construction must not leak scheduling order into the
	// result: same input, same tree, bit for bit.
	v1, err := Build(context.Background(), tr, images, params, Options{Parallelism: 8})
	require.NoError(t, err)
	v2, err := Build(context.Background(), tr, images, params, Options{Parallelism: 1})
	require.NoError(t, err)

	n1, w1 := dump(v1)
	n2, w2 := dump(v2)
	assert.Equal(t, n1, n2)
	assert.Equal(t, w1, w2)
}

func TestTransformStable(t *testing.T) {
	image := twoClusterImage()
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{image})

	a, err := v.Transform(image)
	require.NoError(t, err)
	b, err := v.Transform(image)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
	assert.InDelta(t, 1.0, v.Score(a, b), 1e-12)
}

func TestTransformNormalized(t *testing.T) {
	image := twoClusterImage()
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{image})

	vec, err := v.Transform(image)
	require.NoError(t, err)

	var sum float64
	for _, e := range vec {
		assert.GreaterOrEqual(t, e.Weight, 0.0)
		sum += e.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestTransformEmptySet(t *testing.T) {
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{twoClusterImage()})

	vec, err := v.Transform(nil)
	require.NoError(t, err)
	assert.Empty(t, vec)
}

func TestTransformRejectsWrongLength(t *testing.T) {
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{twoClusterImage()})

	_, err := v.Transform([]descriptor.Descriptor{{1, 2, 3}})
	var lm *descriptor.ErrLengthMismatch
	assert.ErrorAs(t, err, &lm)
}

func TestTransformPresenceSchemes(t *testing.T) {
	// Two images with disjoint clusters; K:2 Depth:1 makes one word per
	// cluster. Under the presence schemes repeats of a word's descriptors
	// must contribute exactly once.
	images := [][]descriptor.Descriptor{
		{{0x00}, {0x01}, {0x02}, {0x03}},
		{{0xFC}, {0xFD}, {0xFE}, {0xFF}},
	}
	for _, weighting := range []bow.WeightingType{bow.IDF, bow.Binary} {
		t.Run(weighting.String(), func(t *testing.T) {
			v := buildTest(t, Params{K: 2, Depth: 1, Weighting: weighting, Scoring: bow.L1Norm}, images)

			base, err := v.Transform([]descriptor.Descriptor{{0x00}, {0xFF}})
			require.NoError(t, err)
			repeated, err := v.Transform([]descriptor.Descriptor{{0x00}, {0x00}, {0xFF}, {0x01}, {0xFF}})
			require.NoError(t, err)

			assert.Equal(t, base, repeated)
			require.Len(t, base, 2)
			for _, e := range base {
				assert.InDelta(t, 0.5, e.Weight, 1e-12)
			}
		})
	}
}

func TestWordDescriptorCopies(t *testing.T) {
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{twoClusterImage()})

	d, ok := v.WordDescriptor(0)
	require.True(t, ok)
	require.NotEmpty(t, d)

	pristine := d.Clone()
	d[0] ^= 0xFF

	again, ok := v.WordDescriptor(0)
	require.True(t, ok)
	assert.Equal(t, pristine, again)
}

func TestTransformWithFeatures(t *testing.T) {
	image := twoClusterImage()
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{image})

	vec, fv, err := v.TransformWithFeatures(image, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	require.NotEmpty(t, fv)

	// Every descriptor index appears exactly once, in order within a node.
	seen := map[int]bool{}
	for _, fe := range fv {
		require.True(t, sortedInts(fe.Indices))
		for _, i := range fe.Indices {
			assert.False(t, seen[i], "index %d recorded twice", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, len(image))

	// levelsUp = L routes everything to the root.
	_, fvRoot, err := v.TransformWithFeatures(image, v.Depth())
	require.NoError(t, err)
	require.Len(t, fvRoot, 1)
	assert.Equal(t, NodeID(0), fvRoot[0].Node)
	assert.Len(t, fvRoot[0].Indices, len(image))
}

func sortedInts(xs []int) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			return false
		}
	}
	return true
}

func TestIDFAcrossImages(t *testing.T) {
	// Two disjoint images: each word occurs in exactly one of them, so
	// idf = ln(2/1) for every word.
	imgA := []descriptor.Descriptor{{0x00}, {0x01}, {0x02}, {0x03}}
	imgB := []descriptor.Descriptor{{0xFC}, {0xFD}, {0xFE}, {0xFF}}

	v := buildTest(t, Params{K: 2, Depth: 1, Weighting: bow.TFIDF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{imgA, imgB})

	require.Equal(t, 2, v.Size())
	for w := 0; w < v.Size(); w++ {
		idf, ok := v.WordIDF(bow.WordID(w))
		require.True(t, ok)
		assert.InDelta(t, 0.6931, idf, 1e-3)
	}
}

func TestAssembleRoundTrip(t *testing.T) {
	image := twoClusterImage()
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{image})

	nodes, words := recordsOf(t, v)
	rebuilt, err := Assemble(testTrait, v.Params(), nodes, words)
	require.NoError(t, err)

	assert.Equal(t, v.Size(), rebuilt.Size())
	assert.Equal(t, v.NodeCount(), rebuilt.NodeCount())

	want, err := v.Transform(image)
	require.NoError(t, err)
	got, err := rebuilt.Transform(image)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAssembleDanglingParent(t *testing.T) {
	image := twoClusterImage()
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{image})

	nodes, words := recordsOf(t, v)
	// Point a node at a parent id that no record defines.
	broken := nodes.Ref(2)
	require.NotNil(t, broken)
	broken.Parent = 999

	_, err := Assemble(testTrait, v.Params(), nodes, words)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined parent")
}

func TestAssembleUndefinedWordNode(t *testing.T) {
	image := twoClusterImage()
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{image})

	nodes, words := recordsOf(t, v)
	words[0].Node = 999

	_, err := Assemble(testTrait, v.Params(), nodes, words)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined node")
}

func TestString(t *testing.T) {
	v := buildTest(t, Params{K: 2, Depth: 2, Weighting: bow.TFIDF, Scoring: bow.L1Norm},
		[][]descriptor.Descriptor{twoClusterImage()})
	assert.Contains(t, v.String(), "k = 2")
	assert.Contains(t, v.String(), "Number of words = 4")
}
