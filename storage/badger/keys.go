package badger

import (
	"encoding/binary"

	"github.com/poiesic/policyrag/core"
)

// Key prefixes for different data types
const (
	chunkPrefix      = "chunk:"
	keyMapPrefix     = "kmap:"
	keyIndexPrefix   = "kidx:"
	vectorPrefix     = "vec:"
	triplePrefix     = "triple:"
	tripleCountKey   = "triplecount"
	manifestKey      = "manifest"
	positionKeyBytes = 8
)

// positionKey appends a big-endian position so lexicographic order matches numeric order.
func positionKey(prefix string, pos int) []byte {
	buf := make([]byte, len(prefix)+positionKeyBytes)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(pos))
	return buf
}

// positionFromKey reads the trailing big-endian position of a key.
func positionFromKey(key []byte) int {
	return int(binary.BigEndian.Uint64(key[len(key)-positionKeyBytes:]))
}

// makeChunkKey generates a key for a chunk by id.
func makeChunkKey(id int) []byte {
	return positionKey(chunkPrefix, id)
}

// makeKeyMapKey maps chunk id -> external key.
func makeKeyMapKey(id int) []byte {
	return positionKey(keyMapPrefix, id)
}

// makeKeyIndexKey maps external key -> chunk id.
func makeKeyIndexKey(key core.ID) []byte {
	buf := make([]byte, len(keyIndexPrefix)+8)
	offset := copy(buf, keyIndexPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(key))
	return buf
}

// makeVectorPrefix is the scan prefix of one vector space.
// Format: vec:space:
func makeVectorPrefix(space string) []byte {
	return []byte(vectorPrefix + space + ":")
}

// makeVectorKey generates a key for one entry of a vector space.
// Format: vec:space:id
func makeVectorKey(space string, id int) []byte {
	return positionKey(vectorPrefix+space+":", id)
}

// makeTripleKey generates a key for a triple by position.
func makeTripleKey(pos int) []byte {
	return positionKey(triplePrefix, pos)
}
