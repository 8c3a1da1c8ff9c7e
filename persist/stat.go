package persist

import (
	"fmt"
	"io"
	"os"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/codec"
)

// Info summarizes a stored vocabulary or database without loading it.
type Info struct {
	Version     uint32
	Codec       string
	Compression Compression

	K                int
	L                int
	Weighting        bow.WeightingType
	Scoring          bow.ScoringType
	DescriptorLength int
	NodeCount        int
	WordCount        int
}

// Stat reads just the header and the vocabulary scalars of a stored
// vocabulary or database. It stops before the node array, so its cost is
// independent of the stored tree size. Use it to inspect a file before
// committing to a full load.
func Stat(r io.Reader) (Info, error) {
	h, err := readHeader(r)
	if err != nil {
		return Info{}, err
	}
	c, err := h.codec()
	if err != nil {
		return Info{}, err
	}
	zr, err := h.compression.decompressor(r)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Version:     h.version,
		Codec:       c.Name(),
		Compression: h.compression,
	}
	if err := statVocabulary(c.NewDecoder(zr), &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// StatFile summarizes the file at path.
func StatFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Stat(f)
}

func statVocabulary(dec codec.Decoder, info *Info) error {
	expect := func(d codec.Delim, field string) error {
		tok, err := dec.Token()
		if err != nil {
			return formatErr(field, "unexpected end of stream", err)
		}
		if got, ok := tok.(codec.Delim); !ok || got != d {
			return formatErr(field, fmt.Sprintf("expected %q, got %v", d, tok), nil)
		}
		return nil
	}
	if err := expect('{', "document"); err != nil {
		return err
	}
	if !dec.More() {
		return formatErr("vocabulary", "missing required section", nil)
	}
	tok, err := dec.Token()
	if err != nil {
		return formatErr("document", "unexpected end of stream", err)
	}
	if s, ok := tok.(string); !ok || s != "vocabulary" {
		return formatErr("document", fmt.Sprintf("expected vocabulary section, got %v", tok), nil)
	}
	if err := expect('{', "vocabulary"); err != nil {
		return err
	}

	// Scalars are written before the arrays, so the first array key ends
	// the walk.
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return formatErr("vocabulary", "unexpected end of stream", err)
		}
		k, ok := tok.(string)
		if !ok {
			return formatErr("vocabulary", fmt.Sprintf("expected object key, got %v", tok), nil)
		}
		if k == "nodes" || k == "words" {
			return nil
		}
		switch k {
		case "k":
			err = dec.Decode(&info.K)
		case "L":
			err = dec.Decode(&info.L)
		case "weightingType":
			var w int
			if err = dec.Decode(&w); err == nil {
				info.Weighting = bow.WeightingType(w)
			}
		case "scoringType":
			var s int
			if err = dec.Decode(&s); err == nil {
				info.Scoring = bow.ScoringType(s)
			}
		case "descriptorLength":
			err = dec.Decode(&info.DescriptorLength)
		case "nodeCount":
			err = dec.Decode(&info.NodeCount)
		case "wordCount":
			err = dec.Decode(&info.WordCount)
		default:
			var skip any
			err = dec.Decode(&skip)
		}
		if err != nil {
			return formatErr(k, "bad value", err)
		}
	}
	return nil
}
