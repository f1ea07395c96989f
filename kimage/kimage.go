// Package kimage reads and writes kernel module images.
//
// A kernel module image is the culite analog of a compiled GPU module: a
// small binary container whose manifest declares the kernel symbols the
// module exports. The container is sectioned, with an optional zstd or lz4
// compressed payload and an xxh3 digest per section that is verified on
// read.
package kimage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/zeebo/xxh3"
)

// FormatVersion is the image format version written by this package.
const FormatVersion = 1

// Section type identifiers.
const (
	TypeManifest uint32 = 1 // JSON module manifest
	TypeNotes    uint32 = 2 // free-form build notes
)

// Section flags.
const (
	FlagCompZSTD uint32 = 1 << 0
	FlagCompLZ4  uint32 = 1 << 1
)

var magic = [8]byte{'K', 'M', 'O', 'D', 0, 0, 0, 0}

// sectionAlign keeps section payloads page-aligned so images can be
// memory-mapped by future readers.
const sectionAlign = 4096

var (
	// ErrBadMagic indicates the file is not a kernel module image.
	ErrBadMagic = errors.New("kimage: bad magic")

	// ErrBadVersion indicates an unsupported format version.
	ErrBadVersion = errors.New("kimage: unsupported format version")

	// ErrChecksum indicates a section payload failed digest verification.
	ErrChecksum = errors.New("kimage: section checksum mismatch")

	// ErrNoSection indicates a requested section is absent.
	ErrNoSection = errors.New("kimage: section not found")
)

// Symbol describes one kernel exported by a module.
type Symbol struct {
	Name string `json:"name"`           // exported kernel name, e.g. "Sum"
	Elem string `json:"elem"`           // element type: "int32", "float32", "float64"
	Args int    `json:"args"`           // number of launch arguments
	Doc  string `json:"doc,omitempty"`  // optional one-line description
}

// Manifest is the module manifest carried in the TypeManifest section.
type Manifest struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Symbols []Symbol `json:"symbols"`
}

// Lookup returns the symbol with the given name, if present.
func (m *Manifest) Lookup(name string) (Symbol, bool) {
	for _, s := range m.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

type section struct {
	typeID uint32
	data   []byte
	flags  uint32
}

// Writer assembles a kernel module image section by section.
type Writer struct {
	sections []section
}

// NewWriter returns an empty image writer.
func NewWriter() *Writer {
	return &Writer{}
}

// AddSection appends a section with the given type and compression flags.
func (w *Writer) AddSection(typeID uint32, data []byte, flags uint32) {
	w.sections = append(w.sections, section{typeID: typeID, data: data, flags: flags})
}

// AddManifest marshals the manifest and appends it as the manifest section.
func (w *Writer) AddManifest(m *Manifest, flags uint32) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("kimage: marshal manifest: %w", err)
	}
	w.AddSection(TypeManifest, data, flags)
	return nil
}

// tocEntry is the on-disk table-of-contents record, little-endian.
type tocEntry struct {
	TypeID uint32
	Flags  uint32
	Offset uint64
	Size   uint64 // stored (possibly compressed) payload size
	Raw    uint64 // uncompressed payload size
	Digest uint64 // xxh3 of the stored payload
}

const tocEntrySize = 40

type header struct {
	Version  uint32
	Sections uint32
	Reserved uint32
}

// WriteTo writes the assembled image to w.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if len(w.sections) == 0 {
		return 0, errors.New("kimage: no sections to write")
	}

	payloads := make([][]byte, len(w.sections))
	for i, s := range w.sections {
		data := s.data
		switch {
		case s.flags&FlagCompZSTD != 0:
			enc, err := zstdEncode(data)
			if err != nil {
				return 0, err
			}
			data = enc
		case s.flags&FlagCompLZ4 != 0:
			enc, err := lz4Encode(data)
			if err != nil {
				return 0, err
			}
			data = enc
		}
		payloads[i] = data
	}

	// Lay out the table of contents. The first section starts at the next
	// alignment boundary past the header and TOC.
	recs := make([]tocEntry, len(w.sections))
	base := int64(len(magic)) + 12 + tocEntrySize*int64(len(w.sections))
	offset := alignUp(base, sectionAlign)
	for i, s := range w.sections {
		recs[i] = tocEntry{
			TypeID: s.typeID,
			Flags:  s.flags,
			Offset: uint64(offset),
			Size:   uint64(len(payloads[i])),
			Raw:    uint64(len(s.data)),
			Digest: xxh3.Hash(payloads[i]),
		}
		offset = alignUp(offset+int64(len(payloads[i])), sectionAlign)
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	hdr := header{Version: FormatVersion, Sections: uint32(len(w.sections))}
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return 0, err
	}
	for _, r := range recs {
		if err := binary.Write(&buf, binary.LittleEndian, &r); err != nil {
			return 0, err
		}
	}
	for i := range payloads {
		pad := int64(recs[i].Offset) - int64(buf.Len())
		if pad > 0 {
			buf.Write(make([]byte, pad))
		}
		buf.Write(payloads[i])
	}

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}

// WriteFile writes the assembled image to path.
func (w *Writer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Build assembles a single-manifest image in memory. This is how callers
// produce a loadable module without touching the filesystem.
func Build(m *Manifest, flags uint32) ([]byte, error) {
	w := NewWriter()
	if err := w.AddManifest(m, flags); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reader provides access to the sections of a kernel module image.
type Reader struct {
	data []byte
	toc  []tocEntry
}

// Open reads and parses the image at path.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewReader(data)
}

// NewReader parses an in-memory image.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < len(magic)+12 {
		return nil, ErrBadMagic
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrBadMagic
	}
	var hdr header
	r := bytes.NewReader(data[len(magic):])
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, hdr.Version)
	}
	toc := make([]tocEntry, hdr.Sections)
	for i := range toc {
		if err := binary.Read(r, binary.LittleEndian, &toc[i]); err != nil {
			return nil, fmt.Errorf("kimage: truncated section table: %w", err)
		}
	}
	for _, e := range toc {
		end := e.Offset + e.Size
		if end < e.Offset || end > uint64(len(data)) {
			return nil, fmt.Errorf("kimage: section %d out of bounds", e.TypeID)
		}
	}
	return &Reader{data: data, toc: toc}, nil
}

// Sections returns the type IDs present in the image, in file order.
func (r *Reader) Sections() []uint32 {
	ids := make([]uint32, len(r.toc))
	for i, e := range r.toc {
		ids[i] = e.TypeID
	}
	return ids
}

// Section returns the decoded payload of the first section with the given
// type. The stored payload digest is verified before decompression.
func (r *Reader) Section(typeID uint32) ([]byte, error) {
	for _, e := range r.toc {
		if e.TypeID != typeID {
			continue
		}
		stored := r.data[e.Offset : e.Offset+e.Size]
		if xxh3.Hash(stored) != e.Digest {
			return nil, fmt.Errorf("%w: section %d", ErrChecksum, typeID)
		}
		switch {
		case e.Flags&FlagCompZSTD != 0:
			return zstdDecode(stored)
		case e.Flags&FlagCompLZ4 != 0:
			return lz4Decode(stored)
		}
		out := make([]byte, len(stored))
		copy(out, stored)
		return out, nil
	}
	return nil, fmt.Errorf("%w: type %d", ErrNoSection, typeID)
}

// Manifest decodes the manifest section.
func (r *Reader) Manifest() (*Manifest, error) {
	data, err := r.Section(TypeManifest)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("kimage: decode manifest: %w", err)
	}
	return &m, nil
}

func zstdEncode(b []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(b, make([]byte, 0, len(b))), nil
}

func zstdDecode(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}

func lz4Encode(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decode(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(b))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func alignUp(x, a int64) int64 {
	r := x % a
	if r == 0 {
		return x
	}
	return x + (a - r)
}
