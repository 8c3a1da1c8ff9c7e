package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/codec"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/database"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// SaveOption configures how a file is written.
type SaveOption func(*saveOptions)

type saveOptions struct {
	codec       codec.Codec
	compression Compression
}

// WithCodec selects the record codec. If nil, codec.Default is used.
func WithCodec(c codec.Codec) SaveOption {
	return func(o *saveOptions) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression selects the payload compression. Gzip is the default.
func WithCompression(c Compression) SaveOption {
	return func(o *saveOptions) { o.compression = c }
}

func applySaveOptions(opts []SaveOption) saveOptions {
	o := saveOptions{codec: codec.Default, compression: Gzip}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// nodeRecord is the wire form of one tree node.
type nodeRecord struct {
	NodeID     uint32  `json:"nodeId"`
	ParentID   uint32  `json:"parentId"`
	Weight     float64 `json:"weight"`
	Descriptor string  `json:"descriptor"`
}

// wordRecord is the wire form of one word.
type wordRecord struct {
	WordID uint32 `json:"wordId"`
	NodeID uint32 `json:"nodeId"`
}

// weightRecord is one non-zero component of a stored entry's vector.
type weightRecord struct {
	Word   uint32  `json:"w"`
	Weight float64 `json:"v"`
}

// featureRecord lists the descriptor indices an entry routed through a node.
type featureRecord struct {
	Node    uint32 `json:"n"`
	Indices []int  `json:"i"`
}

// entryRecord is the wire form of one stored image.
type entryRecord struct {
	EntryID  uint32          `json:"entryId"`
	Words    []weightRecord  `json:"words"`
	Features []featureRecord `json:"features,omitempty"`
}

// streamWriter emits the hierarchical record stream without ever holding
// more than one record in memory.
type streamWriter struct {
	w     *bufio.Writer
	codec codec.Codec
	err   error
}

func (sw *streamWriter) raw(s string) {
	if sw.err == nil {
		_, sw.err = sw.w.WriteString(s)
	}
}

func (sw *streamWriter) record(v any) {
	if sw.err != nil {
		return
	}
	b, err := sw.codec.Marshal(v)
	if err != nil {
		sw.err = err
		return
	}
	_, sw.err = sw.w.Write(b)
}

// SaveVocabulary writes voc to w in the persisted vocabulary format.
func SaveVocabulary(w io.Writer, voc *vocab.Vocabulary, opts ...SaveOption) error {
	o := applySaveOptions(opts)
	return save(w, o, func(sw *streamWriter) error {
		sw.raw(`{"vocabulary":`)
		if err := writeVocabularySection(sw, voc); err != nil {
			return err
		}
		sw.raw(`}`)
		return sw.err
	})
}

// SaveDatabase writes db, including its vocabulary, to w.
func SaveDatabase(w io.Writer, db *database.Database, opts ...SaveOption) error {
	o := applySaveOptions(opts)
	return save(w, o, func(sw *streamWriter) error {
		sw.raw(`{"vocabulary":`)
		if err := writeVocabularySection(sw, db.Vocabulary()); err != nil {
			return err
		}
		sw.raw(`,"database":`)
		if err := writeDatabaseSection(sw, db); err != nil {
			return err
		}
		sw.raw(`}`)
		return sw.err
	})
}

func save(w io.Writer, o saveOptions, body func(*streamWriter) error) error {
	if err := writeHeader(w, header{version: Version, compression: o.compression, codecName: o.codec.Name()}); err != nil {
		return err
	}
	zw, err := o.compression.compressor(w)
	if err != nil {
		return err
	}
	sw := &streamWriter{w: bufio.NewWriter(zw), codec: o.codec}
	if err := body(sw); err != nil {
		return err
	}
	if sw.err != nil {
		return sw.err
	}
	if err := sw.w.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

func writeVocabularySection(sw *streamWriter, voc *vocab.Vocabulary) error {
	p := voc.Params()
	sw.raw(fmt.Sprintf(`{"k":%d,"L":%d,"weightingType":%d,"scoringType":%d,"descriptorLength":%d,"nodeCount":%d,"wordCount":%d`,
		p.K, p.Depth, int(p.Weighting), int(p.Scoring), voc.Trait().Length(), voc.NodeCount()-1, voc.Size()))

	sw.raw(`,"nodes":[`)
	first := true
	err := voc.NodeRecords(func(r vocab.NodeRecord) error {
		if !first {
			sw.raw(",")
		}
		first = false
		sw.record(nodeRecord{
			NodeID:     uint32(r.ID),
			ParentID:   uint32(r.Parent),
			Weight:     r.Weight,
			Descriptor: voc.Trait().Encode(r.Descriptor),
		})
		return sw.err
	})
	if err != nil {
		return err
	}

	sw.raw(`],"words":[`)
	first = true
	err = voc.WordRecords(func(r vocab.WordRecord) error {
		if !first {
			sw.raw(",")
		}
		first = false
		sw.record(wordRecord{WordID: uint32(r.Word), NodeID: uint32(r.Node)})
		return sw.err
	})
	if err != nil {
		return err
	}
	sw.raw(`]}`)
	return sw.err
}

func writeDatabaseSection(sw *streamWriter, db *database.Database) error {
	sw.raw(fmt.Sprintf(`{"usingDirectIndex":%t,"directIndexLevels":%d,"entryCount":%d,"entries":[`,
		db.DirectIndexEnabled(), db.DirectIndexLevels(), db.Size()))

	first := true
	err := db.EntryRecords(func(r database.EntryRecord) error {
		if !first {
			sw.raw(",")
		}
		first = false

		rec := entryRecord{EntryID: uint32(r.ID), Words: make([]weightRecord, 0, len(r.Vector))}
		for _, e := range r.Vector {
			rec.Words = append(rec.Words, weightRecord{Word: uint32(e.Word), Weight: e.Weight})
		}
		for _, fe := range r.Features {
			rec.Features = append(rec.Features, featureRecord{Node: uint32(fe.Node), Indices: fe.Indices})
		}
		sw.record(rec)
		return sw.err
	})
	if err != nil {
		return err
	}
	sw.raw(`]}`)
	return sw.err
}

// SaveVocabularyFile writes voc to path.
func SaveVocabularyFile(path string, voc *vocab.Vocabulary, opts ...SaveOption) error {
	return saveFile(path, func(w io.Writer) error { return SaveVocabulary(w, voc, opts...) })
}

// SaveDatabaseFile writes db to path.
func SaveDatabaseFile(path string, db *database.Database, opts ...SaveOption) error {
	return saveFile(path, func(w io.Writer) error { return SaveDatabase(w, db, opts...) })
}

func saveFile(path string, body func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := body(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
