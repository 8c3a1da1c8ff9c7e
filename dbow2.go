package dbow2

import (
	"context"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/database"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// Descriptor is a single binary local descriptor.
type Descriptor = descriptor.Descriptor

// Trait describes one descriptor family. NewBinary covers the usual binary
// descriptors; custom families implement the interface directly.
type Trait = descriptor.Trait

// NewBinary returns the trait for binary descriptors of the given byte
// length (32 for 256-bit ORB, 48 for BRISK, 64 for 512-bit BRIEF).
func NewBinary(length int) (descriptor.Binary, error) { return descriptor.NewBinary(length) }

// WordID identifies one visual word of a vocabulary.
type WordID = bow.WordID

// Vector is a sparse bag-of-words vector, sorted by word id.
type Vector = bow.Vector

// Weighting schemes for word vector entries.
const (
	TFIDF = bow.TFIDF
	TF    = bow.TF
	IDF   = bow.IDF
	// BinaryWeighting gives every present word weight 1.
	BinaryWeighting = bow.Binary
)

// Scoring schemes for comparing word vectors.
const (
	L1Norm        = bow.L1Norm
	L2Norm        = bow.L2Norm
	DotProduct    = bow.DotProduct
	Bhattacharyya = bow.Bhattacharyya
)

// Params configures vocabulary training: branching factor K, tree Depth and
// the weighting and scoring schemes baked into the vocabulary.
type Params = vocab.Params

// Vocabulary is a trained hierarchical visual vocabulary.
type Vocabulary = vocab.Vocabulary

// TrainOptions tunes the training run (parallelism, k-means iterations,
// logging). The zero value is not usable; start from DefaultTrainOptions.
type TrainOptions = vocab.Options

// DefaultTrainOptions is a sensible starting point for Train.
var DefaultTrainOptions = vocab.DefaultOptions

// Train builds a vocabulary from training images, one descriptor set per
// image, with default options.
func Train(ctx context.Context, trait Trait, images [][]Descriptor, params Params) (*Vocabulary, error) {
	return vocab.Build(ctx, trait, images, params, DefaultTrainOptions)
}

// TrainWithOptions is Train with explicit options.
func TrainWithOptions(ctx context.Context, trait Trait, images [][]Descriptor, params Params, opts TrainOptions) (*Vocabulary, error) {
	return vocab.Build(ctx, trait, images, params, opts)
}

// EntryID identifies one image stored in a Database.
type EntryID = database.EntryID

// Database is an inverted-index image database over a shared vocabulary.
type Database = database.Database

// QueryResults is a ranked list of database entries.
type QueryResults = database.QueryResults

// DatabaseOption configures NewDatabase.
type DatabaseOption = database.Option

// WithDirectIndex enables per-entry feature bookkeeping for geometric
// verification; levels counts tree levels above the leaves.
func WithDirectIndex(levels int) DatabaseOption { return database.WithDirectIndex(levels) }

// WithLogger attaches a structured logger to the database.
func WithLogger(l *Logger) DatabaseOption {
	if l == nil {
		return database.WithLogger(nil)
	}
	return database.WithLogger(l.Logger)
}

// WithMetrics attaches a metrics collector to the database.
func WithMetrics(m MetricsCollector) DatabaseOption { return database.WithMetrics(m) }

// NewDatabase creates an empty database over voc.
func NewDatabase(voc *Vocabulary, opts ...DatabaseOption) *Database {
	return database.New(voc, opts...)
}
