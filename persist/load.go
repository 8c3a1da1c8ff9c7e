package persist

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/codec"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/database"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/internal/arena"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// ProgressFunc observes load progress: stage is "nodes", "words" or
// "entries", pct is in [0,100]. Purely observational; it cannot affect the
// load. Calls are throttled to a bounded frequency.
type ProgressFunc func(stage string, pct float64)

// LoadOption configures loading.
type LoadOption func(*loadOptions)

type loadOptions struct {
	progress ProgressFunc
	interval time.Duration
	dbOpts   []database.Option
}

// WithProgress installs a progress observer.
func WithProgress(fn ProgressFunc) LoadOption {
	return func(o *loadOptions) { o.progress = fn }
}

// WithProgressInterval bounds how often the observer is called.
// The default is 200ms.
func WithProgressInterval(d time.Duration) LoadOption {
	return func(o *loadOptions) { o.interval = d }
}

// WithDatabaseOptions passes extra options (logger, metrics) to the database
// a LoadDatabase call constructs. Direct-index settings come from the file.
func WithDatabaseOptions(opts ...database.Option) LoadOption {
	return func(o *loadOptions) { o.dbOpts = append(o.dbOpts, opts...) }
}

func applyLoadOptions(opts []LoadOption) loadOptions {
	o := loadOptions{interval: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LoadVocabulary reads a vocabulary written by SaveVocabulary. The trait
// must match the descriptor type the vocabulary was built for.
func LoadVocabulary(r io.Reader, trait descriptor.Trait, opts ...LoadOption) (*vocab.Vocabulary, error) {
	l, err := newLoader(r, trait, opts)
	if err != nil {
		return nil, err
	}
	voc, _, err := l.readDocument(false)
	return voc, err
}

// LoadDatabase reads a database (vocabulary included) written by
// SaveDatabase.
func LoadDatabase(r io.Reader, trait descriptor.Trait, opts ...LoadOption) (*database.Database, error) {
	l, err := newLoader(r, trait, opts)
	if err != nil {
		return nil, err
	}
	_, db, err := l.readDocument(true)
	return db, err
}

// LoadVocabularyFile reads a vocabulary from path.
func LoadVocabularyFile(path string, trait descriptor.Trait, opts ...LoadOption) (*vocab.Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadVocabulary(f, trait, opts...)
}

// LoadDatabaseFile reads a database from path.
func LoadDatabaseFile(path string, trait descriptor.Trait, opts ...LoadOption) (*database.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadDatabase(f, trait, opts...)
}

// loader walks the record stream in one forward pass. Each record is placed
// where it belongs in O(1) amortized time: node records go straight into an
// id-indexed arena (grown geometrically on demand), word and entry records
// are plain ordered appends. Nothing is ever located by re-scanning the
// serialized source, so total load cost is linear in the record count.
type loader struct {
	dec     codec.Decoder
	trait   descriptor.Trait
	opts    loadOptions
	limiter *rate.Limiter
}

func newLoader(r io.Reader, trait descriptor.Trait, opts []LoadOption) (*loader, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	c, err := h.codec()
	if err != nil {
		return nil, err
	}
	zr, err := h.compression.decompressor(r)
	if err != nil {
		return nil, err
	}
	o := applyLoadOptions(opts)
	return &loader{
		dec:     c.NewDecoder(zr),
		trait:   trait,
		opts:    o,
		limiter: rate.NewLimiter(rate.Every(o.interval), 1),
	}, nil
}

func (l *loader) report(stage string, n, total int) {
	if l.opts.progress == nil || total <= 0 {
		return
	}
	if l.limiter.Allow() {
		l.opts.progress(stage, 100*float64(n)/float64(total))
	}
}

func (l *loader) done(stage string) {
	if l.opts.progress != nil {
		l.opts.progress(stage, 100)
	}
}

func (l *loader) expectDelim(d codec.Delim, field string) error {
	tok, err := l.dec.Token()
	if err != nil {
		return formatErr(field, "unexpected end of stream", err)
	}
	if got, ok := tok.(codec.Delim); !ok || got != d {
		return formatErr(field, fmt.Sprintf("expected %q, got %v", d, tok), nil)
	}
	return nil
}

func (l *loader) key(field string) (string, error) {
	tok, err := l.dec.Token()
	if err != nil {
		return "", formatErr(field, "unexpected end of stream", err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", formatErr(field, fmt.Sprintf("expected object key, got %v", tok), nil)
	}
	return s, nil
}

func (l *loader) skip(field string) error {
	var v any
	if err := l.dec.Decode(&v); err != nil {
		return formatErr(field, "undecodable value", err)
	}
	return nil
}

func decodeScalar[T any](l *loader, field string, dst *T) error {
	if err := l.dec.Decode(dst); err != nil {
		return formatErr(field, "bad value", err)
	}
	return nil
}

func (l *loader) readDocument(wantDB bool) (*vocab.Vocabulary, *database.Database, error) {
	if err := l.expectDelim('{', "document"); err != nil {
		return nil, nil, err
	}

	var (
		voc *vocab.Vocabulary
		db  *database.Database
	)
	for l.dec.More() {
		k, err := l.key("document")
		if err != nil {
			return nil, nil, err
		}
		switch k {
		case "vocabulary":
			if voc, err = l.readVocabulary(); err != nil {
				return nil, nil, err
			}
		case "database":
			if voc == nil {
				return nil, nil, formatErr("database", "database section precedes vocabulary", nil)
			}
			if db, err = l.readDatabase(voc); err != nil {
				return nil, nil, err
			}
		default:
			if err := l.skip(k); err != nil {
				return nil, nil, err
			}
		}
	}
	if err := l.expectDelim('}', "document"); err != nil {
		return nil, nil, err
	}

	if voc == nil {
		return nil, nil, formatErr("vocabulary", "missing required section", nil)
	}
	if wantDB && db == nil {
		return nil, nil, formatErr("database", "missing required section", nil)
	}
	return voc, db, nil
}

func (l *loader) readVocabulary() (*vocab.Vocabulary, error) {
	if err := l.expectDelim('{', "vocabulary"); err != nil {
		return nil, err
	}

	var (
		params    vocab.Params
		nodeCount = -1
		wordCount = -1
		nodes     *arena.Slice[vocab.NodeRecord]
		words     []vocab.WordRecord
		seen      = map[string]bool{}
	)

	for l.dec.More() {
		k, err := l.key("vocabulary")
		if err != nil {
			return nil, err
		}
		seen[k] = true
		switch k {
		case "k":
			err = decodeScalar(l, k, &params.K)
		case "L":
			err = decodeScalar(l, k, &params.Depth)
		case "weightingType":
			var w int
			if err = decodeScalar(l, k, &w); err == nil {
				params.Weighting = bow.WeightingType(w)
			}
		case "scoringType":
			var s int
			if err = decodeScalar(l, k, &s); err == nil {
				params.Scoring = bow.ScoringType(s)
			}
		case "descriptorLength":
			var length int
			if err = decodeScalar(l, k, &length); err == nil && length != l.trait.Length() {
				err = formatErr(k, fmt.Sprintf("file holds %d-byte descriptors, trait expects %d", length, l.trait.Length()), nil)
			}
		case "nodeCount":
			err = decodeScalar(l, k, &nodeCount)
		case "wordCount":
			err = decodeScalar(l, k, &wordCount)
		case "nodes":
			nodes, err = l.readNodes(nodeCount)
		case "words":
			words, err = l.readWords(wordCount)
		default:
			err = l.skip(k)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := l.expectDelim('}', "vocabulary"); err != nil {
		return nil, err
	}

	for _, required := range []string{"k", "L", "weightingType", "scoringType", "nodes", "words"} {
		if !seen[required] {
			return nil, formatErr(required, "missing required field", nil)
		}
	}

	voc, err := vocab.Assemble(l.trait, params, nodes, words)
	if err != nil {
		return nil, formatErr("vocabulary", err.Error(), err)
	}
	return voc, nil
}

// readNodes consumes the node array in stored order. Each record lands at
// its id in the arena without any lookup into the source stream.
func (l *loader) readNodes(hint int) (*arena.Slice[vocab.NodeRecord], error) {
	if err := l.expectDelim('[', "nodes"); err != nil {
		return nil, err
	}
	if hint < 0 {
		hint = 0
	}
	nodes := arena.New[vocab.NodeRecord](hint + 1)

	count := 0
	for l.dec.More() {
		var nr nodeRecord
		if err := l.dec.Decode(&nr); err != nil {
			return nil, formatErr("nodes", "bad node record", err)
		}
		d, err := l.trait.Decode(nr.Descriptor)
		if err != nil {
			return nil, formatErr("nodes", fmt.Sprintf("node %d: bad descriptor", nr.NodeID), err)
		}
		nodes.Put(nr.NodeID, vocab.NodeRecord{
			ID:         vocab.NodeID(nr.NodeID),
			Parent:     vocab.NodeID(nr.ParentID),
			Weight:     nr.Weight,
			Descriptor: d,
		})
		count++
		l.report("nodes", count, hint)
	}
	if err := l.expectDelim(']', "nodes"); err != nil {
		return nil, err
	}
	l.done("nodes")
	return nodes, nil
}

// readWords collects the word array. Words are never looked up during
// loading, so a plain ordered append suffices.
func (l *loader) readWords(hint int) ([]vocab.WordRecord, error) {
	if err := l.expectDelim('[', "words"); err != nil {
		return nil, err
	}
	if hint < 0 {
		hint = 0
	}
	words := make([]vocab.WordRecord, 0, hint)

	for l.dec.More() {
		var wr wordRecord
		if err := l.dec.Decode(&wr); err != nil {
			return nil, formatErr("words", "bad word record", err)
		}
		words = append(words, vocab.WordRecord{Word: bow.WordID(wr.WordID), Node: vocab.NodeID(wr.NodeID)})
		l.report("words", len(words), hint)
	}
	if err := l.expectDelim(']', "words"); err != nil {
		return nil, err
	}
	l.done("words")
	return words, nil
}

func (l *loader) readDatabase(voc *vocab.Vocabulary) (*database.Database, error) {
	if err := l.expectDelim('{', "database"); err != nil {
		return nil, err
	}

	var (
		useDirect  bool
		levels     int
		entryCount = -1
		db         *database.Database
	)
	for l.dec.More() {
		k, err := l.key("database")
		if err != nil {
			return nil, err
		}
		switch k {
		case "usingDirectIndex":
			err = decodeScalar(l, k, &useDirect)
		case "directIndexLevels":
			err = decodeScalar(l, k, &levels)
		case "entryCount":
			err = decodeScalar(l, k, &entryCount)
		case "entries":
			opts := append([]database.Option{}, l.opts.dbOpts...)
			if useDirect {
				opts = append(opts, database.WithDirectIndex(levels))
			}
			db = database.New(voc, opts...)
			err = l.readEntries(db, entryCount)
		default:
			err = l.skip(k)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := l.expectDelim('}', "database"); err != nil {
		return nil, err
	}

	if db == nil {
		return nil, formatErr("entries", "missing required field", nil)
	}
	return db, nil
}

// readEntries replays the stored entries through the database in file
// order, reproducing identical posting lists.
func (l *loader) readEntries(db *database.Database, hint int) error {
	if err := l.expectDelim('[', "entries"); err != nil {
		return err
	}
	count := 0
	for l.dec.More() {
		var er entryRecord
		if err := l.dec.Decode(&er); err != nil {
			return formatErr("entries", "bad entry record", err)
		}

		vec := make(bow.Vector, 0, len(er.Words))
		for _, w := range er.Words {
			vec = append(vec, bow.Entry{Word: bow.WordID(w.Word), Weight: w.Weight})
		}
		sort.Slice(vec, func(i, j int) bool { return vec[i].Word < vec[j].Word })

		var fv vocab.FeatureVector
		for _, f := range er.Features {
			fv = append(fv, vocab.FeatureEntry{Node: vocab.NodeID(f.Node), Indices: f.Indices})
		}

		id, err := db.AddVector(vec, fv)
		if err != nil {
			return formatErr("entries", fmt.Sprintf("entry %d rejected", er.EntryID), err)
		}
		if uint32(id) != er.EntryID {
			return formatErr("entries", fmt.Sprintf("entry ids not sequential: stored %d, assigned %d", er.EntryID, id), nil)
		}
		count++
		l.report("entries", count, hint)
	}
	if err := l.expectDelim(']', "entries"); err != nil {
		return err
	}
	l.done("entries")
	return nil
}
