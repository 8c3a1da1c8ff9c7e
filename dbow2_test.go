package dbow2_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/testutil"
)

func TestEndToEndRetrieval(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(99)
	images := rng.ClusteredImages(12, 20, 4, 32, 8)

	trait, err := dbow2.NewBinary(32)
	require.NoError(t, err)

	voc, err := dbow2.Train(ctx, trait, images, dbow2.Params{
		K:         3,
		Depth:     3,
		Weighting: dbow2.TFIDF,
		Scoring:   dbow2.L1Norm,
	})
	require.NoError(t, err)
	require.Greater(t, voc.Size(), 0)

	db := dbow2.NewDatabase(voc, dbow2.WithDirectIndex(1))
	for _, img := range images {
		_, err := db.Add(img)
		require.NoError(t, err)
	}

	// A near-duplicate of image 0 (same cluster as entries 0, 4, 8) must
	// rank a same-cluster entry first.
	query := make([]dbow2.Descriptor, len(images[0]))
	for i, d := range images[0] {
		query[i] = rng.Perturb(d, 2)
	}
	results, err := db.Query(query, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, []dbow2.EntryID{0, 4, 8}, results[0].Entry)
}

func TestTrainValidation(t *testing.T) {
	ctx := context.Background()
	trait, err := dbow2.NewBinary(32)
	require.NoError(t, err)

	_, err = dbow2.Train(ctx, trait, nil, dbow2.Params{K: 3, Depth: 3})
	assert.ErrorIs(t, err, dbow2.ErrEmptyTraining)

	images := testutil.NewRNG(1).ClusteredImages(2, 5, 2, 32, 4)
	_, err = dbow2.Train(ctx, trait, images, dbow2.Params{K: 1, Depth: 3})
	assert.ErrorIs(t, err, dbow2.ErrInvalidBranching)

	_, err = dbow2.Train(ctx, trait, images, dbow2.Params{K: 3, Depth: 0})
	assert.ErrorIs(t, err, dbow2.ErrInvalidDepth)
}

func TestMetricsCollection(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(5)
	images := rng.ClusteredImages(4, 10, 2, 32, 4)

	trait, err := dbow2.NewBinary(32)
	require.NoError(t, err)
	voc, err := dbow2.Train(ctx, trait, images, dbow2.Params{
		K: 2, Depth: 2, Weighting: dbow2.TFIDF, Scoring: dbow2.L1Norm,
	})
	require.NoError(t, err)

	var metrics dbow2.BasicMetricsCollector
	db := dbow2.NewDatabase(voc, dbow2.WithMetrics(&metrics))
	for _, img := range images {
		_, err := db.Add(img)
		require.NoError(t, err)
	}
	_, err = db.Query(images[0], 2)
	require.NoError(t, err)

	stats := metrics.Stats()
	assert.Equal(t, int64(4), stats.AddCount)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Zero(t, stats.AddErrors)
}
