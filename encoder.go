package hxdyn

import (
	"github.com/pthm/hxdyn/lib/encoding"
	"github.com/pthm/hxdyn/lib/fragment"
)

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// NewEncoder creates a new encoder with the given key.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// SuffixParams encodes values into a content area suffix that a fragment
// server sharing the key can decode:
//
//	suffix, _ := hxdyn.SuffixParams(enc, map[string]string{"node": id}, false)
//	area.UpdateContent("/content/tree", suffix)
func SuffixParams(enc *Encoder, values map[string]string, sensitive bool) (string, error) {
	return fragment.EncodeSuffix(enc, values, sensitive)
}
