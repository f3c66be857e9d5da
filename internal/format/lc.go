package format

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kspect/mfile/internal/codec"
	"github.com/kspect/mfile/internal/medium"
)

// LC is the linear-chain family of layouts. Revision 1 encodes all header
// fields and elements little-endian, revision 2 big-endian; the field
// sequence is otherwise identical.
//
// Header (48 bytes):
//
//	0   magic       'L' 'C' '1'|'2' 0x1a
//	4   rank        u32
//	8   rows        u32
//	12  cols        u32
//	16  elem tag    u32 (ElemType value)
//	20  hasCal      u8
//	21  reserved    3 bytes
//	24  cal coeffs  3 x f64
//
// followed by the dense element region.
type LC struct {
	Revision int
}

const lcHeaderSize = 48

func (f *LC) magic() []byte {
	return []byte{'L', 'C', byte('0' + f.Revision), 0x1a}
}

func (f *LC) order() binary.ByteOrder {
	if f.Revision == 2 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (f *LC) Name() string {
	return fmt.Sprintf("lc%d", f.Revision)
}

func (f *LC) Probe(prefix []byte, size int64) bool {
	if len(prefix) < lcHeaderSize || size < lcHeaderSize {
		return false
	}
	m := f.magic()
	return prefix[0] == m[0] && prefix[1] == m[1] && prefix[2] == m[2] && prefix[3] == m[3]
}

func (f *LC) ReadDescriptor(b medium.Backend) (*Descriptor, error) {
	r := codec.NewReader(b, f.order())
	magic, err := r.ReadBytes(4)
	if err != nil || !bytes.Equal(magic, f.magic()) {
		return nil, fmt.Errorf("%s: missing magic: %w", f.Name(), ErrMalformedHeader)
	}
	rank, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", f.Name(), err)
	}
	rows, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", f.Name(), err)
	}
	cols, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", f.Name(), err)
	}
	tag, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", f.Name(), err)
	}
	hasCal, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", f.Name(), err)
	}

	d := &Descriptor{
		Format: f.Name(),
		Order:  f.order(),
		Type:   ElemType(tag),
		Rank:   int(rank),
		Rows:   int(rows),
		Cols:   int(cols),
	}
	if tag > uint32(Float64) {
		return nil, fmt.Errorf("%s: element tag %d: %w", f.Name(), tag, ErrMalformedHeader)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if f.FileSize(d) > b.Size() {
		return nil, fmt.Errorf("%s: declared %dx%d %s exceeds resource size %d: %w",
			f.Name(), d.Rows, d.Cols, d.Type, b.Size(), ErrMalformedHeader)
	}
	if hasCal != 0 {
		r.Skip(3)
		coeffs := make([]float64, 3)
		for i := range coeffs {
			if coeffs[i], err = r.ReadFloat64(); err != nil {
				return nil, fmt.Errorf("%s: reading calibration: %w", f.Name(), err)
			}
		}
		d.Cal = &Calibration{Coeffs: coeffs}
	}
	return d, nil
}

func (f *LC) Adapt(d Descriptor) (Descriptor, error) {
	d.Format = f.Name()
	d.Order = f.order()
	return d, nil
}

func (f *LC) Format(b medium.Backend, d *Descriptor) error {
	w := codec.NewWriter(b, f.order())
	if err := w.WriteBytes(f.magic()); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Rank)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Rows)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Cols)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Type)); err != nil {
		return err
	}
	var hasCal uint8
	if d.Cal != nil {
		hasCal = 1
	}
	if err := w.WriteUint8(hasCal); err != nil {
		return err
	}
	if err := w.WriteZeros(3); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		var c float64
		if d.Cal != nil && i < len(d.Cal.Coeffs) {
			c = d.Cal.Coeffs[i]
		}
		if err := w.WriteFloat64(c); err != nil {
			return err
		}
	}
	return zeroFill(b, lcHeaderSize, f.FileSize(d)-lcHeaderSize)
}

func (f *LC) FileSize(d *Descriptor) int64 {
	return lcHeaderSize + int64(d.NumElements()*d.Type.Size())
}

func (f *LC) ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error {
	return readContiguous(b, d, r, dst, lcHeaderSize)
}

func (f *LC) WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error {
	return writeContiguous(b, d, r, src, lcHeaderSize)
}
