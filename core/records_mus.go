package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS codecs for the records persisted by the storage layer. Each codec
// follows the mus-go serializer shape: Size, Marshal into a pre-sized slice,
// Unmarshal returning the value and the number of bytes consumed.

// ErrNegativeLength indicates a corrupt length prefix.
var ErrNegativeLength = errors.New("negative length")

var (
	IDMUS         = idMUS{}
	ChunkMUS      = chunkMUS{}
	IndexEntryMUS = indexEntryMUS{}
	TripleMUS     = tripleMUS{}
	ManifestMUS   = manifestMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = varint.Int.Marshal(v.ID, bs)
	n += IDMUS.Marshal(v.Key, bs[n:])
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += varint.Int.Marshal(v.BlockIndex, bs[n:])
	n += ord.String.Marshal(v.Heading, bs[n:])
	n += marshalOptInt(v.Page, bs[n:])
	n += marshalInts(v.ParagraphIndices, bs[n:])
	n += varint.Int.Marshal(v.Start, bs[n:])
	n += varint.Int.Marshal(v.End, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalOptString(v.Summary, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	return
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	if v.ID, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if v.Key, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.DocumentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.BlockIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Heading, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Page, n1, err = unmarshalOptInt(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ParagraphIndices, n1, err = unmarshalInts(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Start, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.End, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Summary, n1, err = unmarshalOptString(bs[n:]); err != nil {
		return
	}
	n += n1
	v.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = varint.Int.Size(v.ID)
	size += IDMUS.Size(v.Key)
	size += ord.String.Size(v.DocumentID)
	size += varint.Int.Size(v.BlockIndex)
	size += ord.String.Size(v.Heading)
	size += sizeOptInt(v.Page)
	size += sizeInts(v.ParagraphIndices)
	size += varint.Int.Size(v.Start)
	size += varint.Int.Size(v.End)
	size += ord.String.Size(v.Text)
	size += sizeOptString(v.Summary)
	size += varint.Int.Size(v.TokenCount)
	return
}

type indexEntryMUS struct{}

func (indexEntryMUS) Marshal(v IndexEntry, bs []byte) (n int) {
	n = varint.Int.Marshal(v.ChunkID, bs)
	n += marshalVector(v.Vector, bs[n:])
	return
}

func (indexEntryMUS) Unmarshal(bs []byte) (v IndexEntry, n int, err error) {
	var n1 int
	if v.ChunkID, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	v.Vector, n1, err = unmarshalVector(bs[n:])
	n += n1
	return
}

func (indexEntryMUS) Size(v IndexEntry) int {
	return varint.Int.Size(v.ChunkID) + sizeVector(v.Vector)
}

type tripleMUS struct{}

func (tripleMUS) Marshal(v Triple, bs []byte) (n int) {
	n = ord.String.Marshal(v.Subject, bs)
	n += ord.String.Marshal(v.Predicate, bs[n:])
	n += ord.String.Marshal(v.Object, bs[n:])
	n += varint.Int.Marshal(v.ChunkID, bs[n:])
	return
}

func (tripleMUS) Unmarshal(bs []byte) (v Triple, n int, err error) {
	var n1 int
	if v.Subject, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Predicate, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Object, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.ChunkID, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (tripleMUS) Size(v Triple) int {
	return ord.String.Size(v.Subject) +
		ord.String.Size(v.Predicate) +
		ord.String.Size(v.Object) +
		varint.Int.Size(v.ChunkID)
}

type manifestMUS struct{}

func (manifestMUS) Marshal(v Manifest, bs []byte) (n int) {
	n = ord.String.Marshal(v.BuildID, bs)
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += varint.Int.Marshal(len(v.Variants), bs[n:])
	for _, variant := range v.Variants {
		n += varint.Int.Marshal(int(variant), bs[n:])
	}
	n += varint.Int.Marshal(v.TripleCount, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	n += IDMUS.Marshal(v.Fingerprint, bs[n:])
	return
}

func (manifestMUS) Unmarshal(bs []byte) (v Manifest, n int, err error) {
	var n1 int
	if v.BuildID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Dimension, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count < 0 {
		err = ErrNegativeLength
		return
	}
	v.Variants = make([]Variant, count)
	for i := range v.Variants {
		var code int
		if code, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		v.Variants[i] = Variant(code)
	}
	if v.TripleCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CreatedAt = time.UnixMicro(micros).UTC()
	v.Fingerprint, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (manifestMUS) Size(v Manifest) (size int) {
	size = ord.String.Size(v.BuildID)
	size += ord.String.Size(v.EmbeddingModel)
	size += varint.Int.Size(v.Dimension)
	size += varint.Int.Size(v.ChunkCount)
	size += varint.Int.Size(len(v.Variants))
	for _, variant := range v.Variants {
		size += varint.Int.Size(int(variant))
	}
	size += varint.Int.Size(v.TripleCount)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	size += IDMUS.Size(v.Fingerprint)
	return
}

func marshalOptInt(v *int, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += varint.Int.Marshal(*v, bs[n:])
	}
	return
}

func unmarshalOptInt(bs []byte) (v *int, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	val, n1, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + n1, err
	}
	return &val, n + n1, nil
}

func sizeOptInt(v *int) int {
	size := ord.Bool.Size(v != nil)
	if v != nil {
		size += varint.Int.Size(*v)
	}
	return size
}

func marshalOptString(v *string, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += ord.String.Marshal(*v, bs[n:])
	}
	return
}

func unmarshalOptString(bs []byte) (v *string, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	val, n1, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + n1, err
	}
	return &val, n + n1, nil
}

func sizeOptString(v *string) int {
	size := ord.Bool.Size(v != nil)
	if v != nil {
		size += ord.String.Size(*v)
	}
	return size
}

func marshalInts(v []int, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, i := range v {
		n += varint.Int.Marshal(i, bs[n:])
	}
	return
}

func unmarshalInts(bs []byte) (v []int, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	v = make([]int, length)
	for i := range v {
		var n1 int
		if v[i], n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeInts(v []int) int {
	size := varint.Int.Size(len(v))
	for _, i := range v {
		size += varint.Int.Size(i)
	}
	return size
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	v = make([]float32, length)
	for i := range v {
		var n1 int
		if v[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}
