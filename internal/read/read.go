// Package read defines the Read record and the fixed-capacity Chunk
// buffer the block pipeline operates on.
package read

// TagType enumerates the wire type codes carried by an auxiliary tag
// value. The concrete set mirrors SAM's optional-field type letters,
// each stored as the single byte of its ASCII letter.
type TagType uint8

const (
	TagTypeInt    TagType = 'i'
	TagTypeFloat  TagType = 'f'
	TagTypeString TagType = 'Z'
	TagTypeChar   TagType = 'A'
	TagTypeBytes  TagType = 'B'
)

// Tag is one auxiliary key/type/value record.
type Tag struct {
	Key   [2]byte
	Type  TagType
	Value []byte
}

// Bytes reports the uncompressed byte contribution of one tag: a 2-byte
// key, a 1-byte type, and the value bytes.
func (t Tag) Bytes() int {
	return 3 + len(t.Value)
}

// AuxBytes sums Bytes() over every tag in aux.
func AuxBytes(aux []Tag) int {
	total := 0
	for _, t := range aux {
		total += t.Bytes()
	}
	return total
}

// AuxRawBytes concatenates the key/type/value bytes of every tag in aux,
// in order. This is the raw, pre-encode form the aux field's CRC64 is
// computed over.
func AuxRawBytes(aux []Tag) []byte {
	out := make([]byte, 0, AuxBytes(aux))
	for _, t := range aux {
		out = append(out, t.Key[0], t.Key[1], byte(t.Type))
		out = append(out, t.Value...)
	}
	return out
}

// Read is one sequencing read: an identifier, an optional auxiliary tag
// block, a nucleotide sequence, and an equal-length quality string.
type Read struct {
	ID   []byte
	Aux  []Tag
	Seq  []byte
	Qual []byte
}

// CopyFrom overwrites r's fields with copies of src's byte slices, reusing
// r's existing backing arrays when they are large enough. Ownership of
// the bytes passes to the buffer, so the caller's src may be reused or
// freed immediately afterward.
func (r *Read) CopyFrom(src *Read) {
	r.ID = appendReset(r.ID, src.ID)
	r.Seq = appendReset(r.Seq, src.Seq)
	r.Qual = appendReset(r.Qual, src.Qual)

	if cap(r.Aux) < len(src.Aux) {
		r.Aux = make([]Tag, len(src.Aux))
	} else {
		r.Aux = r.Aux[:len(src.Aux)]
	}
	for i, t := range src.Aux {
		r.Aux[i].Key = t.Key
		r.Aux[i].Type = t.Type
		r.Aux[i].Value = appendReset(r.Aux[i].Value, t.Value)
	}
}

func appendReset(dst, src []byte) []byte {
	dst = dst[:0]
	return append(dst, src...)
}

// CHUNK_CAP is the fixed capacity of a Chunk.
const CHUNK_CAP = 5000

// Chunk is a fixed-capacity, sequentially-filled buffer of reads. Slots
// are reused (cleared, not freed) across fills rather than reallocated.
type Chunk struct {
	slots [CHUNK_CAP]Read
	Len   int
}

// Slot returns the read at index i, valid for i < Len.
func (c *Chunk) Slot(i int) *Read {
	return &c.slots[i]
}

// Full reports whether the chunk has reached CHUNK_CAP reads.
func (c *Chunk) Full() bool {
	return c.Len == CHUNK_CAP
}

// Add copies r into the next free slot. The caller must check Full()
// first; Add panics if the chunk has no free slot (a precondition
// violation, not a runtime input error).
func (c *Chunk) Add(r *Read) {
	c.slots[c.Len].CopyFrom(r)
	c.Len++
}

// Reset clears the chunk back to empty without releasing slot capacity.
func (c *Chunk) Reset() {
	c.Len = 0
}
