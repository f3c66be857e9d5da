package format

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kspect/mfile/internal/codec"
	"github.com/kspect/mfile/internal/medium"
)

// GF2 is the gamma-gamma coincidence matrix layout: a 16-byte little-endian
// header followed by a dense int32 region. Strictly rank 2.
//
// Header:
//
//	0   magic     'G' 'F' '2' 0x1a
//	4   rows      u32
//	8   cols      u32
//	12  reserved  u32
type GF2 struct{}

const gf2HeaderSize = 16

var gf2Magic = []byte{'G', 'F', '2', 0x1a}

func (f *GF2) Name() string { return "gf2" }

func (f *GF2) Probe(prefix []byte, size int64) bool {
	return size >= gf2HeaderSize && len(prefix) >= 4 && bytes.Equal(prefix[:4], gf2Magic)
}

func (f *GF2) ReadDescriptor(b medium.Backend) (*Descriptor, error) {
	r := codec.NewReader(b, binary.LittleEndian)
	magic, err := r.ReadBytes(4)
	if err != nil || !bytes.Equal(magic, gf2Magic) {
		return nil, fmt.Errorf("gf2: missing magic: %w", ErrMalformedHeader)
	}
	rows, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("gf2: reading header: %w", err)
	}
	cols, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("gf2: reading header: %w", err)
	}
	d := &Descriptor{
		Format: f.Name(),
		Order:  binary.LittleEndian,
		Type:   Int32,
		Rank:   2,
		Rows:   int(rows),
		Cols:   int(cols),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if f.FileSize(d) > b.Size() {
		return nil, fmt.Errorf("gf2: declared %dx%d exceeds resource size %d: %w",
			d.Rows, d.Cols, b.Size(), ErrMalformedHeader)
	}
	return d, nil
}

func (f *GF2) Adapt(d Descriptor) (Descriptor, error) {
	if d.Rank != 2 {
		return Descriptor{}, fmt.Errorf("gf2: rank %d source: %w", d.Rank, ErrIncompatibleShape)
	}
	d.Format = f.Name()
	d.Order = binary.LittleEndian
	d.Type = Int32
	d.Cal = nil // no calibration field in this layout
	return d, nil
}

func (f *GF2) Format(b medium.Backend, d *Descriptor) error {
	w := codec.NewWriter(b, binary.LittleEndian)
	if err := w.WriteBytes(gf2Magic); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Rows)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Cols)); err != nil {
		return err
	}
	if err := w.WriteUint32(0); err != nil {
		return err
	}
	return zeroFill(b, gf2HeaderSize, f.FileSize(d)-gf2HeaderSize)
}

func (f *GF2) FileSize(d *Descriptor) int64 {
	return gf2HeaderSize + int64(d.NumElements()*d.Type.Size())
}

func (f *GF2) ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error {
	return readContiguous(b, d, r, dst, gf2HeaderSize)
}

func (f *GF2) WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error {
	return writeContiguous(b, d, r, src, gf2HeaderSize)
}
