package codec

import (
	"encoding/json"
	"io"
)

// JSON is the standard-library JSON codec: the most portable choice and the
// fallback when the go-json codec misbehaves on a platform.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// NewDecoder returns a streaming decoder over r.
func (JSON) NewDecoder(r io.Reader) Decoder {
	return jsonDecoder{dec: json.NewDecoder(r)}
}

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

type jsonDecoder struct {
	dec *json.Decoder
}

func (d jsonDecoder) Token() (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); ok {
		return Delim(delim), nil
	}
	return tok, nil
}

func (d jsonDecoder) More() bool { return d.dec.More() }

func (d jsonDecoder) Decode(v any) error { return d.dec.Decode(v) }
