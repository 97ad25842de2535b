// Package wire defines the frames exchanged with the platform shim and the
// consumer, and the stream codecs that carry them.
//
// Every codec is self-delimiting on a stream: JSON frames are newline
// separated, CBOR and MessagePack frames are concatenated items.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownCodec = errors.New("unknown codec")

// Encoder writes one frame per call.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads one frame per call and returns io.EOF at end of stream.
type Decoder interface {
	Decode(v any) error
}

// FrameReader returns the raw bytes of one frame per call and io.EOF at end
// of stream. A frame whose contents do not fit the target type can be
// rejected with Unmarshal without losing the stream position.
type FrameReader interface {
	Next() ([]byte, error)
}

// Codec builds stream encoders and decoders.
type Codec interface {
	Name() string
	NewEncoder(w io.Writer) Encoder
	NewDecoder(r io.Reader) Decoder
	NewFrameReader(r io.Reader) FrameReader
	Unmarshal(data []byte, v any) error
}

// frames reads frames through a decoder into a codec specific raw type.
type frames[T ~[]byte] struct {
	dec Decoder
}

func (f frames[T]) Next() ([]byte, error) {
	var raw T
	if err := f.dec.Decode(&raw); err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

const (
	CodecJSON    = "json"
	CodecCBOR    = "cbor"
	CodecMsgpack = "msgpack"
)

var codecs = map[string]Codec{
	CodecJSON:    jsonCodec{},
	CodecCBOR:    newCBORCodec(),
	CodecMsgpack: msgpackCodec{},
}

// Lookup returns the codec registered under name. Empty means json.
func Lookup(name string) (Codec, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = CodecJSON
	}
	c, ok := codecs[n]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownCodec, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names lists the registered codec names.
func Names() []string {
	out := make([]string, 0, len(codecs))
	for n := range codecs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ---- json ----

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) NewEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func (jsonCodec) NewDecoder(r io.Reader) Decoder { return json.NewDecoder(r) }

func (jsonCodec) NewFrameReader(r io.Reader) FrameReader {
	return frames[json.RawMessage]{dec: json.NewDecoder(r)}
}

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// ---- cbor ----

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string { return CodecCBOR }

func (c cborCodec) NewEncoder(w io.Writer) Encoder { return c.enc.NewEncoder(w) }

func (c cborCodec) NewDecoder(r io.Reader) Decoder { return c.dec.NewDecoder(r) }

func (c cborCodec) NewFrameReader(r io.Reader) FrameReader {
	return frames[cbor.RawMessage]{dec: c.dec.NewDecoder(r)}
}

func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// ---- msgpack ----

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return CodecMsgpack }

func (msgpackCodec) NewEncoder(w io.Writer) Encoder {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc
}

func (msgpackCodec) NewDecoder(r io.Reader) Decoder {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	return dec
}

func (c msgpackCodec) NewFrameReader(r io.Reader) FrameReader {
	return frames[msgpack.RawMessage]{dec: c.NewDecoder(r)}
}

func (c msgpackCodec) Unmarshal(data []byte, v any) error {
	return c.NewDecoder(bytes.NewReader(data)).Decode(v)
}
