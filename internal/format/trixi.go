package format

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kspect/mfile/internal/codec"
	"github.com/kspect/mfile/internal/medium"
)

// Trixi is the windowed uint16 layout: the header occupies the first
// 512-byte record and every row starts on a record boundary, padded with
// zeros to the next one. Fixed-record addressing rather than a dense byte
// offset.
//
// Header record (little-endian):
//
//	0   magic      'T' 'R' 'I' 'X' 'I' 0x1a
//	6   version    u16 (currently 1)
//	8   rows       u32
//	12  cols       u32
//	16  recordLen  u32 (currently 512)
type Trixi struct{}

const trixiRecordLen = 512

var trixiMagic = []byte{'T', 'R', 'I', 'X', 'I', 0x1a}

func (f *Trixi) Name() string { return "trixi" }

func (f *Trixi) Probe(prefix []byte, size int64) bool {
	return size >= trixiRecordLen && len(prefix) >= 6 && bytes.Equal(prefix[:6], trixiMagic)
}

// rowRecords is the number of records one row occupies.
func (f *Trixi) rowRecords(d *Descriptor) int64 {
	rowBytes := int64(d.Cols * d.Type.Size())
	return (rowBytes + trixiRecordLen - 1) / trixiRecordLen
}

// rowOffset is the byte offset of the first element of a row.
func (f *Trixi) rowOffset(d *Descriptor, row int) int64 {
	return trixiRecordLen * (1 + int64(row)*f.rowRecords(d))
}

func (f *Trixi) ReadDescriptor(b medium.Backend) (*Descriptor, error) {
	r := codec.NewReader(b, binary.LittleEndian)
	magic, err := r.ReadBytes(6)
	if err != nil || !bytes.Equal(magic, trixiMagic) {
		return nil, fmt.Errorf("trixi: missing magic: %w", ErrMalformedHeader)
	}
	version, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("trixi: reading header: %w", err)
	}
	if version != 1 {
		return nil, fmt.Errorf("trixi: header version %d: %w", version, ErrMalformedHeader)
	}
	rows, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("trixi: reading header: %w", err)
	}
	cols, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("trixi: reading header: %w", err)
	}
	recordLen, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("trixi: reading header: %w", err)
	}
	if recordLen != trixiRecordLen {
		return nil, fmt.Errorf("trixi: record length %d: %w", recordLen, ErrMalformedHeader)
	}
	rank := 2
	if rows == 1 {
		rank = 1
	}
	d := &Descriptor{
		Format: f.Name(),
		Order:  binary.LittleEndian,
		Type:   Uint16,
		Rank:   rank,
		Rows:   int(rows),
		Cols:   int(cols),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if f.FileSize(d) > b.Size() {
		return nil, fmt.Errorf("trixi: declared %dx%d exceeds resource size %d: %w",
			d.Rows, d.Cols, b.Size(), ErrMalformedHeader)
	}
	return d, nil
}

func (f *Trixi) Adapt(d Descriptor) (Descriptor, error) {
	d.Format = f.Name()
	d.Order = binary.LittleEndian
	d.Type = Uint16
	d.Cal = nil
	return d, nil
}

func (f *Trixi) Format(b medium.Backend, d *Descriptor) error {
	w := codec.NewWriter(b, binary.LittleEndian)
	if err := w.WriteBytes(trixiMagic); err != nil {
		return err
	}
	if err := w.WriteUint16(1); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Rows)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Cols)); err != nil {
		return err
	}
	if err := w.WriteUint32(trixiRecordLen); err != nil {
		return err
	}
	if err := w.WriteZeros(trixiRecordLen - int(w.Pos())); err != nil {
		return err
	}
	return zeroFill(b, trixiRecordLen, f.FileSize(d)-trixiRecordLen)
}

func (f *Trixi) FileSize(d *Descriptor) int64 {
	return trixiRecordLen * (1 + int64(d.Rows)*f.rowRecords(d))
}

// ReadElements maps the flat region onto row records and decodes row by row.
func (f *Trixi) ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error {
	if err := checkRegion(d, r); err != nil {
		return err
	}
	if dst.Len() != r.Count {
		return fmt.Errorf("trixi: block of %d elements for region of %d: %w",
			dst.Len(), r.Count, ErrIncompatibleShape)
	}
	sz := d.Type.Size()
	for done := 0; done < r.Count; {
		idx := r.Start + done
		row, col := idx/d.Cols, idx%d.Cols
		n := d.Cols - col
		if n > r.Count-done {
			n = r.Count - done
		}
		raw := make([]byte, n*sz)
		if _, err := b.ReadAt(raw, f.rowOffset(d, row)+int64(col*sz)); err != nil {
			return err
		}
		if err := decodeElems(raw, d.Order, d.Type, dst, done); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// WriteElements encodes the region row by row onto record boundaries.
func (f *Trixi) WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error {
	if err := checkRegion(d, r); err != nil {
		return err
	}
	if src.Len() != r.Count {
		return fmt.Errorf("trixi: block of %d elements for region of %d: %w",
			src.Len(), r.Count, ErrIncompatibleShape)
	}
	sz := d.Type.Size()
	for done := 0; done < r.Count; {
		idx := r.Start + done
		row, col := idx/d.Cols, idx%d.Cols
		n := d.Cols - col
		if n > r.Count-done {
			n = r.Count - done
		}
		raw, err := encodeElems(src, done, n, d.Order, d.Type)
		if err != nil {
			return err
		}
		if _, err := b.WriteAt(raw, f.rowOffset(d, row)+int64(col*sz)); err != nil {
			return err
		}
		done += n
	}
	return nil
}
