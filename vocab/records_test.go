package vocab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/internal/arena"
)

// recordsOf dumps a vocabulary into the flat forms the loader works with.
func recordsOf(t *testing.T, v *Vocabulary) (*arena.Slice[NodeRecord], []WordRecord) {
	t.Helper()

	nodes := arena.New[NodeRecord](0)
	require.NoError(t, v.NodeRecords(func(r NodeRecord) error {
		nodes.Put(uint32(r.ID), r)
		return nil
	}))

	var words []WordRecord
	require.NoError(t, v.WordRecords(func(r WordRecord) error {
		words = append(words, r)
		return nil
	}))
	return nodes, words
}
