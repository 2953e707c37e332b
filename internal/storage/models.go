package storage

import (
	"encoding/binary"
	"errors"
)

var (
	articlesBucket = []byte("articles")
	metaBucket     = []byte("metadata")

	schemaVersionKey = []byte("schema_version")
)

const schemaVersion = 1

// ErrNotFound is returned when no article has the requested id.
var ErrNotFound = errors.New("article not found")

// idKey encodes ids big-endian so the bucket cursor walks them in insertion order.
func idKey(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func keyID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
