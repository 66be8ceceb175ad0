package boltstore

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Bucket layout, per registry key:
//
//	"\x00meta"      keyRecord
//	"k:" + FOLDED   nested bucket for a subkey
//	"v:" + FOLDED   valueRecord
//
// Each root is a top-level bucket named after its long HKEY_* name.
var (
	metaKey      = []byte("\x00meta")
	subkeyPrefix = []byte("k:")
	valuePrefix  = []byte("v:")
)

type keyRecord struct {
	Name      string `msgpack:"n"`
	LastWrite uint64 `msgpack:"w"` // FILETIME
}

type valueRecord struct {
	Name   string      `msgpack:"n"`
	Type   uint32      `msgpack:"t"`
	Data   []byte      `msgpack:"d"`
	Seq    uint64      `msgpack:"s"` // enumeration order; kept on overwrite
	Codec  Compression `msgpack:"c,omitempty"`
	RawLen uint32      `msgpack:"l,omitempty"`
}

func subkeyBucket(fold string) []byte { return append(append([]byte(nil), subkeyPrefix...), fold...) }
func valueEntry(fold string) []byte   { return append(append([]byte(nil), valuePrefix...), fold...) }

func encodeRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, v any) error {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(v)
	msgpack.PutDecoder(dec)
	return err
}
