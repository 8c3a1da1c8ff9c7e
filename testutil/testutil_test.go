package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
)

func TestRNGReproducible(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	assert.Equal(t, a.Descriptors(10, 32), b.Descriptors(10, 32))

	a.Reset()
	c := NewRNG(a.Seed())
	assert.Equal(t, a.Descriptor(32), c.Descriptor(32))
}

func TestPerturbFlipsExactly(t *testing.T) {
	rng := NewRNG(1)
	trait := descriptor.MustBinary(32)

	d := rng.Descriptor(32)
	for _, flips := range []int{0, 1, 7, 64} {
		p := rng.Perturb(d, flips)
		assert.Equal(t, float64(flips), trait.Distance(d, p))
	}
}

func TestClusteredImages(t *testing.T) {
	rng := NewRNG(7)
	imgs := rng.ClusteredImages(6, 10, 3, 32, 4)
	require.Len(t, imgs, 6)
	for _, img := range imgs {
		require.Len(t, img, 10)
	}

	// Images from the same cluster stay close; different clusters are far
	// apart with overwhelming probability at 256 bits.
	trait := descriptor.MustBinary(32)
	same := trait.Distance(imgs[0][0], imgs[3][0])
	other := trait.Distance(imgs[0][0], imgs[1][0])
	assert.Less(t, same, other)
}
