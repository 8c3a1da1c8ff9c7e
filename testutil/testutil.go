// Package testutil provides helpers for tests and benchmarks: seeded random
// binary descriptors and clustered synthetic corpora with known structure.
//
// It is intended for use in tests only.
package testutil

import (
	"math/rand"
	"sync"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
)

// RNG is a seeded, thread-safe random source for reproducible tests.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates an RNG with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewSource(seed)), seed: seed}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 { return r.seed }

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Descriptor returns one uniformly random descriptor of the given byte
// length.
func (r *RNG) Descriptor(length int) descriptor.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := make(descriptor.Descriptor, length)
	r.rand.Read(d)
	return d
}

// Descriptors returns n uniformly random descriptors.
func (r *RNG) Descriptors(n, length int) []descriptor.Descriptor {
	ds := make([]descriptor.Descriptor, n)
	for i := range ds {
		ds[i] = r.Descriptor(length)
	}
	return ds
}

// Perturb returns a copy of d with exactly flips uniformly chosen bits
// inverted. Useful for building descriptors a known Hamming distance apart.
func (r *RNG) Perturb(d descriptor.Descriptor, flips int) descriptor.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := d.Clone()
	seen := make(map[int]bool, flips)
	for len(seen) < flips {
		bit := r.rand.Intn(len(out) * 8)
		if seen[bit] {
			continue
		}
		seen[bit] = true
		out[bit/8] ^= 1 << (bit % 8)
	}
	return out
}

// ClusteredImages generates synthetic images of perImage descriptors each,
// drawn from a fixed set of cluster centers with up to noise bit flips per
// descriptor. Image i draws from cluster i%clusters, so images with equal
// index modulo clusters are near-duplicates of each other.
func (r *RNG) ClusteredImages(images, perImage, clusters, length, noise int) [][]descriptor.Descriptor {
	centers := r.Descriptors(clusters, length)
	out := make([][]descriptor.Descriptor, images)
	for i := range out {
		center := centers[i%clusters]
		ds := make([]descriptor.Descriptor, perImage)
		for j := range ds {
			ds[j] = r.Perturb(center, r.Intn(noise+1))
		}
		out[i] = ds
	}
	return out
}
