// Package json provides pooled JSON serialization helpers built on
// goccy/go-json. All JSON in the harvester (wire decoding, checkpoint and
// sink encoding) goes through this package so buffer reuse is centralized.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// Marshal encodes v to JSON bytes.
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes JSON bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent encodes v with indentation, for human-readable artifacts.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// NewEncoder returns a streaming encoder writing to w.
func NewEncoder(w io.Writer) *gojson.Encoder {
	return gojson.NewEncoder(w)
}

// NewDecoder returns a streaming decoder reading from r.
func NewDecoder(r io.Reader) *gojson.Decoder {
	return gojson.NewDecoder(r)
}

// EncodeLine encodes v as a single JSON line (newline-terminated) into w
// using a pooled buffer, so per-record appends avoid fresh allocations.
func EncodeLine(w io.Writer, v interface{}) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := gojson.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// gojson.Encoder already appends the trailing newline.
	_, err := w.Write(buf.Bytes())
	return err
}

// Valid reports whether data is syntactically valid JSON.
func Valid(data []byte) bool {
	return gojson.Valid(data)
}
