// Package record defines the metadata value stored under each key in
// the index, and its wire codec.
package record

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/errs"
)

// Class is the error class for this package, following the
// errs.Class convention used throughout the corpus for package-scoped
// sentinel errors.
var Class = errs.Class("record")

// ErrCorruptRecord is returned by Decode when bytes do not round-trip
// through the expected shape. It is never returned for bytes produced
// by Encode.
var ErrCorruptRecord = Class.New("corrupt record")

// DeletedState is the tri-state deletion tag carried on every record.
// It is always present and explicit; it is never inferred from the
// absence of other fields.
type DeletedState uint8

const (
	// DeletedNo marks a live record: volumes are expected to hold the blob.
	DeletedNo DeletedState = iota
	// DeletedSoft marks a record removed by UNLINK: invisible to GET/HEAD
	// and to prefix listing, still enumerated by the unlinked listing.
	DeletedSoft
	// DeletedHard marks a record fully removed by DELETE. Records are
	// usually deleted from the index outright rather than left in this
	// state, but the tag exists so a decoded byte string can always name
	// its own state distinctly (see the codec bijection property).
	DeletedHard
)

func (d DeletedState) String() string {
	switch d {
	case DeletedNo:
		return "no"
	case DeletedSoft:
		return "soft"
	case DeletedHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Record is the value stored under each key in the index.
type Record struct {
	// Hash is the hex-encoded MD5 of the blob contents.
	Hash string `msgpack:"hash"`
	// Volumes is the ordered roster chosen at first write; immutable
	// for the life of the key (invariant 2 in the data model).
	Volumes []string `msgpack:"volumes"`
	// Deleted is the tri-state tag.
	Deleted DeletedState `msgpack:"deleted"`
}

// Live reports whether the record is visible to GET/HEAD and listing.
func (r Record) Live() bool {
	return r.Deleted == DeletedNo
}

// Encode serializes r to its durable byte representation. Encode never
// fails for a Record built by this package.
func Encode(r Record) ([]byte, error) {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, Class.Wrap(err)
	}
	return b, nil
}

// Decode deserializes bytes produced by Encode. Empty input, and bytes
// that msgpack cannot unmarshal into a Record, fail with
// ErrCorruptRecord. A well-formed msgpack value that Encode did not
// produce (for example a map with missing or extra fields) is not
// rejected: it decodes into whatever fields it supplies.
func Decode(b []byte) (Record, error) {
	if len(b) == 0 {
		return Record{}, ErrCorruptRecord
	}

	var r Record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Record{}, ErrCorruptRecord
	}
	return r, nil
}
