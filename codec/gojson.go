package codec

import (
	"io"

	gojson "github.com/goccy/go-json"
)

// GoJSON is a JSON codec backed by github.com/goccy/go-json. Wire-compatible
// with the standard library codec but considerably faster on the record
// streams persisted vocabularies are made of.
type GoJSON struct{}

// Marshal encodes the value to JSON.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// NewDecoder returns a streaming decoder over r.
func (GoJSON) NewDecoder(r io.Reader) Decoder {
	return gojsonDecoder{dec: gojson.NewDecoder(r)}
}

// Name returns the unique name of the codec ("go-json").
func (GoJSON) Name() string { return "go-json" }

type gojsonDecoder struct {
	dec *gojson.Decoder
}

func (d gojsonDecoder) Token() (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(gojson.Delim); ok {
		return Delim(delim), nil
	}
	return tok, nil
}

func (d gojsonDecoder) More() bool { return d.dec.More() }

func (d gojsonDecoder) Decode(v any) error { return d.dec.Decode(v) }
