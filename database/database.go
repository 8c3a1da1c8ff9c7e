// Package database implements the searchable image database: an inverted
// index from visual words to posting lists, backed by a shared read-only
// vocabulary, with an optional direct index for feature correspondences.
package database

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// EntryID identifies an image stored in the database. Ids are assigned
// sequentially by Add, starting at 0.
type EntryID uint32

// IFPair is one posting: an entry and the weight the indexed word has in it.
type IFPair struct {
	Entry  EntryID
	Weight float64
}

// ErrNoDirectIndex is returned by direct-index lookups on a database that
// was created without one.
var ErrNoDirectIndex = errors.New("database: direct index not enabled")

// ErrUnknownEntry is returned when an entry id was never added.
var ErrUnknownEntry = errors.New("database: unknown entry")

// Metrics receives operation timings. Implementations must be safe for
// concurrent use. See the root package for ready-made collectors.
type Metrics interface {
	RecordAdd(duration time.Duration, err error)
	RecordQuery(duration time.Duration, err error)
}

// Option configures a Database at construction.
type Option func(*Database)

// WithDirectIndex enables the direct index. For every stored image the
// database additionally records which tree node (levels above the leaves)
// each original descriptor was routed to. It is not needed for scoring.
func WithDirectIndex(levels int) Option {
	return func(db *Database) {
		db.useDirect = true
		db.directLevels = levels
	}
}

// WithLogger sets the structured logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(db *Database) { db.logger = l }
}

// WithMetrics sets the metrics collector. Nil disables collection.
func WithMetrics(m Metrics) Option {
	return func(db *Database) { db.metrics = m }
}

// Database is an inverted-index image database. Add appends under a write
// lock; Query reads under a read lock and sees a snapshot of the entries
// committed when it started. The vocabulary is shared and never mutated.
type Database struct {
	mu  sync.RWMutex
	voc *vocab.Vocabulary

	index   [][]IFPair    // word id -> posting list
	vectors []bow.Vector  // entry id -> its stored vector
	direct  []vocab.FeatureVector

	useDirect    bool
	directLevels int

	logger  *slog.Logger
	metrics Metrics
}

// New creates an empty database over voc. The vocabulary must be fully built
// or loaded; the database holds it for its whole lifetime and never copies
// or mutates it.
func New(voc *vocab.Vocabulary, opts ...Option) *Database {
	db := &Database{
		voc:   voc,
		index: make([][]IFPair, voc.Size()),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Vocabulary returns the shared vocabulary.
func (db *Database) Vocabulary() *vocab.Vocabulary { return db.voc }

// Size returns the number of stored entries.
func (db *Database) Size() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vectors)
}

// DirectIndexEnabled reports whether the direct index is recorded.
func (db *Database) DirectIndexEnabled() bool { return db.useDirect }

// DirectIndexLevels returns the configured levels above the leaves.
func (db *Database) DirectIndexLevels() int { return db.directLevels }

func (db *Database) String() string {
	return fmt.Sprintf("Database: Entries = %d, Using direct index = %t, %s",
		db.Size(), db.useDirect, db.voc)
}

// Add quantizes the descriptor set, stores its weighted word vector in the
// inverted index, and returns the new entry id. Prior entries are never
// touched: each posting list only grows, in ascending entry order.
func (db *Database) Add(ds []descriptor.Descriptor) (EntryID, error) {
	start := time.Now()
	id, err := db.add(ds)
	if db.metrics != nil {
		db.metrics.RecordAdd(time.Since(start), err)
	}
	return id, err
}

func (db *Database) add(ds []descriptor.Descriptor) (EntryID, error) {
	var (
		vec bow.Vector
		fv  vocab.FeatureVector
		err error
	)
	if db.useDirect {
		vec, fv, err = db.voc.TransformWithFeatures(ds, db.directLevels)
	} else {
		vec, err = db.voc.Transform(ds)
	}
	if err != nil {
		return 0, err
	}
	return db.commit(vec, fv)
}

// AddVector stores an already-quantized vector (and, when the direct index
// is enabled, its feature vector). Persistence replays entries through this
// path; it is also useful when the caller has already transformed the image.
func (db *Database) AddVector(vec bow.Vector, fv vocab.FeatureVector) (EntryID, error) {
	for _, e := range vec {
		if int(e.Word) >= db.voc.Size() {
			return 0, fmt.Errorf("database: word %d out of range for vocabulary of %d words", e.Word, db.voc.Size())
		}
	}
	return db.commit(vec, fv)
}

func (db *Database) commit(vec bow.Vector, fv vocab.FeatureVector) (EntryID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id := EntryID(len(db.vectors))
	db.vectors = append(db.vectors, vec)
	for _, e := range vec {
		db.index[e.Word] = append(db.index[e.Word], IFPair{Entry: id, Weight: e.Weight})
	}
	if db.useDirect {
		db.direct = append(db.direct, fv)
	}

	if db.logger != nil {
		db.logger.Debug("entry added", slog.Uint64("entry", uint64(id)), slog.Int("words", len(vec)))
	}
	return id, nil
}

// Result is one ranked query answer.
type Result struct {
	Entry EntryID
	Score float64
}

// QueryResults is a ranked result list, best first.
type QueryResults []Result

func (qr QueryResults) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d results:", len(qr))
	for _, r := range qr {
		fmt.Fprintf(&sb, " <Entry: %d, Score: %g>", r.Entry, r.Score)
	}
	return sb.String()
}

// Query quantizes the probe and ranks stored entries by similarity under the
// vocabulary's scoring scheme. Only the posting lists of the probe's
// non-zero words are visited, never the full corpus. maxResults bounds the
// returned list; zero or negative means all matches. An empty database (or a
// probe sharing no words with it) yields an empty list.
func (db *Database) Query(ds []descriptor.Descriptor, maxResults int) (QueryResults, error) {
	start := time.Now()
	qr, err := db.query(ds, maxResults)
	if db.metrics != nil {
		db.metrics.RecordQuery(time.Since(start), err)
	}
	return qr, err
}

func (db *Database) query(ds []descriptor.Descriptor, maxResults int) (QueryResults, error) {
	vec, err := db.voc.Transform(ds)
	if err != nil {
		return nil, err
	}
	return db.QueryVector(vec, maxResults), nil
}

// QueryVector ranks stored entries against an already-quantized probe.
func (db *Database) QueryVector(vec bow.Vector, maxResults int) QueryResults {
	scoring := db.voc.Scoring()

	db.mu.RLock()
	acc := map[EntryID]float64{}
	for _, e := range vec {
		for _, p := range db.index[e.Word] {
			acc[p.Entry] += scoring.PartialTerm(e.Weight, p.Weight)
		}
	}
	db.mu.RUnlock()

	results := make(QueryResults, 0, len(acc))
	for id, a := range acc {
		results = append(results, Result{Entry: id, Score: scoring.Finalize(a)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry < results[j].Entry
	})
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// DirectIndexEntry returns a copy of the feature vector recorded for an
// entry.
func (db *Database) DirectIndexEntry(id EntryID) (vocab.FeatureVector, error) {
	if !db.useDirect {
		return nil, ErrNoDirectIndex
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if int(id) >= len(db.direct) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}
	return db.direct[id].Clone(), nil
}

// Correspondence groups the descriptor indices of two entries that were
// routed through the same tree node: candidate feature matches for
// geometric verification.
type Correspondence struct {
	Node vocab.NodeID
	A, B []int
}

// Correspondences intersects the direct-index entries of a and b at the
// configured tree level.
func (db *Database) Correspondences(a, b EntryID) ([]Correspondence, error) {
	fa, err := db.DirectIndexEntry(a)
	if err != nil {
		return nil, err
	}
	fb, err := db.DirectIndexEntry(b)
	if err != nil {
		return nil, err
	}

	var out []Correspondence
	i, j := 0, 0
	for i < len(fa) && j < len(fb) {
		switch {
		case fa[i].Node == fb[j].Node:
			out = append(out, Correspondence{Node: fa[i].Node, A: fa[i].Indices, B: fb[j].Indices})
			i++
			j++
		case fa[i].Node < fb[j].Node:
			i++
		default:
			j++
		}
	}
	return out, nil
}

// EntryRecord is the persisted form of one stored image.
type EntryRecord struct {
	ID       EntryID
	Vector   bow.Vector
	Features vocab.FeatureVector
}

// EntryRecords calls fn for every stored entry in ascending id order. It is
// the iteration order of the persisted entry stream; replaying the records
// through AddVector reproduces an identical database.
func (db *Database) EntryRecords(fn func(EntryRecord) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for i, vec := range db.vectors {
		rec := EntryRecord{ID: EntryID(i), Vector: vec}
		if db.useDirect {
			rec.Features = db.direct[i]
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
