package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/blobstore"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	db := buildTestDatabase(t)

	require.NoError(t, SaveVocabularyTo(ctx, store, "voc.dbw2", db.Vocabulary()))
	require.NoError(t, SaveDatabaseTo(ctx, store, "db.dbw2", db))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.dbw2", "voc.dbw2"}, names)

	info, err := StatFrom(ctx, store, "voc.dbw2")
	require.NoError(t, err)
	assert.Equal(t, db.Vocabulary().Size(), info.WordCount)

	voc, err := LoadVocabularyFrom(ctx, store, "voc.dbw2", descriptor.MustBinary(1))
	require.NoError(t, err)
	assert.Equal(t, db.Vocabulary().Size(), voc.Size())

	got, err := LoadDatabaseFrom(ctx, store, "db.dbw2", descriptor.MustBinary(1))
	require.NoError(t, err)
	assert.Equal(t, db.Size(), got.Size())

	_, err = LoadDatabaseFrom(ctx, store, "nope.dbw2", descriptor.MustBinary(1))
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
