// Package refset implements the reference-set component: an ordered,
// name-indexed collection of two-bit-packed nucleotide sequences, with a
// canonical CRC64 fingerprint used to bind a compressed stream to the
// exact reference it was produced against.
package refset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"hash/crc64"
	"io"
	"os"
	"sort"

	"github.com/PINGPengyao/quipcore/internal/byteio"
)

// ErrRefMismatch is returned when a binding's content does not match the
// caller-supplied reference set.
var ErrRefMismatch = errors.New("incorrect reference")

// ErrMalformedFasta is returned for any non-nucleotide character in a
// FASTA sequence line, or a duplicate sequence name.
var ErrMalformedFasta = errors.New("malformed FASTA input")

var crcTable = crc64.MakeTable(crc64.ISO)

// baseCode maps ASCII nucleotide bytes to a 2-bit code. Only upper/lower
// A/C/G/T/N are accepted by the FASTA loader; entries not set here stay 0
// and are rejected explicitly during parsing.
var baseCode [256]uint8

func init() {
	baseCode['A'], baseCode['a'] = 0, 0
	baseCode['C'], baseCode['c'] = 1, 1
	baseCode['G'], baseCode['g'] = 2, 2
	baseCode['T'], baseCode['t'] = 3, 3
	baseCode['N'], baseCode['n'] = 0, 0 // packed as A; no side channel is kept for reference sequences
}

func isNucleotide(b byte) bool {
	switch b {
	case 'A', 'a', 'C', 'c', 'G', 'g', 'T', 't', 'N', 'n':
		return true
	default:
		return false
	}
}

// Entry is one named, two-bit-packed reference sequence.
type Entry struct {
	Name   string
	Packed []byte // 2-bit packed, 4 bases per byte, same layout as internal/codec's sequence packer
	Length uint64 // number of bases (Packed may have trailing pad bits)
}

// Set is an ordered, name-sorted collection of reference entries, plus an
// informational source-filename hint.
type Set struct {
	entries  []Entry
	Filename string
}

// New returns an empty reference set.
func New() *Set {
	return &Set{}
}

// Len reports the number of entries.
func (s *Set) Len() int {
	return len(s.entries)
}

// Get does a binary search by name over the sorted entries.
func (s *Set) Get(name string) (*Entry, bool) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Name >= name })
	if i < len(s.entries) && s.entries[i].Name == name {
		return &s.entries[i], true
	}
	return nil, false
}

// packSeq two-bit packs seq (already validated to contain only nucleotide
// characters), returning the packed bytes.
func packSeq(seq []byte) []byte {
	packed := make([]byte, (len(seq)+3)/4)
	for i, b := range seq {
		packed[i/4] |= baseCode[b] << ((i % 4) * 2)
	}
	return packed
}

// LoadFasta parses a FASTA file into the set, replacing any existing
// entries. Header lines begin with '>'; the name runs up to (but not
// including) the first space or end-of-line, and must be unique across
// the file. Any character in a sequence line outside {A,C,G,T,N,a,c,g,t,n}
// is a fatal parse error. After loading, entries are sorted by name.
func (s *Set) LoadFasta(path string) error {
	f, err := os.Open(path) //nolint:gosec // caller-specified reference file path
	if err != nil {
		return fmt.Errorf("opening reference fasta: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	entries, err := parseFasta(f)
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for i := 1; i < len(entries); i++ {
		if entries[i].Name == entries[i-1].Name {
			return fmt.Errorf("%w: duplicate sequence name %q", ErrMalformedFasta, entries[i].Name)
		}
	}

	s.entries = entries
	s.Filename = path
	return nil
}

func parseFasta(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<16), 1<<30)

	var entries []Entry
	var curName string
	var curSeq []byte
	haveSeq := false

	flush := func() {
		if haveSeq {
			entries = append(entries, Entry{
				Name:   curName,
				Packed: packSeq(curSeq),
				Length: uint64(len(curSeq)),
			})
		}
	}

	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			curName = headerName(line[1:])
			curSeq = curSeq[:0]
			haveSeq = true
			continue
		}
		for _, b := range line {
			if !isNucleotide(b) {
				return nil, fmt.Errorf("%w: unexpected character %q in sequence line", ErrMalformedFasta, b)
			}
		}
		curSeq = append(curSeq, line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading reference fasta: %w", err)
	}
	flush()

	return entries, nil
}

// headerName extracts the sequence name from a FASTA header line's text
// (with the leading '>' already stripped): everything up to the first
// space, not the first tab or other whitespace.
func headerName(headerText []byte) string {
	if i := bytes.IndexByte(headerText, ' '); i >= 0 {
		headerText = headerText[:i]
	}
	return string(headerText)
}

// CRC64 computes the deterministic fingerprint over all entries in
// sorted order: for each entry, the raw name bytes followed by the
// canonical two-bit encoding of its sequence.
func (s *Set) CRC64() uint64 {
	var crc uint64
	for _, e := range s.entries {
		crc = crc64.Update(crc, crcTable, []byte(e.Name))
		crc = crc64.Update(crc, crcTable, e.Packed)
	}
	return crc
}

// WriteBinding serializes the binding record: crc64, filename, and for
// each entry the name and base-length.
func (s *Set) WriteBinding(w io.Writer) error {
	if err := byteio.WriteUint64(w, s.CRC64()); err != nil {
		return err
	}
	if err := byteio.WriteBytes(w, []byte(s.Filename)); err != nil {
		return err
	}
	if err := byteio.WriteUint32(w, uint32(len(s.entries))); err != nil { //nolint:gosec // entry count bounded by real reference genomes
		return err
	}
	for _, e := range s.entries {
		if err := byteio.WriteBytes(w, []byte(e.Name)); err != nil {
			return err
		}
		if err := byteio.WriteUint64(w, e.Length); err != nil {
			return err
		}
	}
	return nil
}

// VerifyBinding reads a binding record from r and checks it against s.
// The CRC64 is compared first; any mismatch (including entry count, name,
// or length differences) is reported as ErrRefMismatch. The filename
// bytes are read and discarded — they are informational only.
func (s *Set) VerifyBinding(r io.Reader) error {
	crc, err := byteio.ReadUint64(r)
	if err != nil {
		return err
	}
	if crc != s.CRC64() {
		return ErrRefMismatch
	}

	if _, err := byteio.ReadBytes(r); err != nil { // filename, informational
		return err
	}

	n, err := byteio.ReadUint32(r)
	if err != nil {
		return err
	}
	if int(n) != len(s.entries) {
		return fmt.Errorf("%w: entry count %d != %d", ErrRefMismatch, n, len(s.entries))
	}

	for _, e := range s.entries {
		name, err := byteio.ReadBytes(r)
		if err != nil {
			return err
		}
		if string(name) != e.Name {
			return fmt.Errorf("%w: name %q != %q", ErrRefMismatch, name, e.Name)
		}
		length, err := byteio.ReadUint64(r)
		if err != nil {
			return err
		}
		if length != e.Length {
			return fmt.Errorf("%w: length %d != %d for %q", ErrRefMismatch, length, e.Length, e.Name)
		}
	}
	return nil
}
