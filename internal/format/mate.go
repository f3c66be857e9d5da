package format

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kspect/mfile/internal/codec"
	"github.com/kspect/mfile/internal/medium"
)

// Mate is the big-endian uint16 spectrum layout with a fixed 256-byte
// header. Strictly rank 1. The only layout here that carries an axis
// calibration in its header.
//
// Header (256 bytes, big-endian):
//
//	0   magic       'M' 'A' 'T' 'E'
//	4   channels    u32
//	8   hasCal      u8
//	9   reserved    3 bytes
//	12  cal coeffs  3 x f32
//	24  zero padding to 256
type Mate struct{}

const mateHeaderSize = 256

var mateMagic = []byte{'M', 'A', 'T', 'E'}

func (f *Mate) Name() string { return "mate" }

func (f *Mate) Probe(prefix []byte, size int64) bool {
	return size >= mateHeaderSize && len(prefix) >= 4 && bytes.Equal(prefix[:4], mateMagic)
}

func (f *Mate) ReadDescriptor(b medium.Backend) (*Descriptor, error) {
	r := codec.NewReader(b, binary.BigEndian)
	magic, err := r.ReadBytes(4)
	if err != nil || !bytes.Equal(magic, mateMagic) {
		return nil, fmt.Errorf("mate: missing magic: %w", ErrMalformedHeader)
	}
	channels, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("mate: reading header: %w", err)
	}
	hasCal, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("mate: reading header: %w", err)
	}
	d := &Descriptor{
		Format: f.Name(),
		Order:  binary.BigEndian,
		Type:   Uint16,
		Rank:   1,
		Rows:   1,
		Cols:   int(channels),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if f.FileSize(d) > b.Size() {
		return nil, fmt.Errorf("mate: declared %d channels exceeds resource size %d: %w",
			channels, b.Size(), ErrMalformedHeader)
	}
	if hasCal != 0 {
		r.Skip(3)
		coeffs := make([]float64, 3)
		for i := range coeffs {
			c, err := r.ReadFloat32()
			if err != nil {
				return nil, fmt.Errorf("mate: reading calibration: %w", err)
			}
			coeffs[i] = float64(c)
		}
		d.Cal = &Calibration{Coeffs: coeffs}
	}
	return d, nil
}

func (f *Mate) Adapt(d Descriptor) (Descriptor, error) {
	if d.Rank != 1 {
		return Descriptor{}, fmt.Errorf("mate: rank %d source: %w", d.Rank, ErrIncompatibleShape)
	}
	d.Format = f.Name()
	d.Order = binary.BigEndian
	d.Type = Uint16
	return d, nil
}

func (f *Mate) Format(b medium.Backend, d *Descriptor) error {
	w := codec.NewWriter(b, binary.BigEndian)
	if err := w.WriteBytes(mateMagic); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(d.Cols)); err != nil {
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
		if err := w.WriteFloat32(float32(c)); err != nil {
			return err
		}
	}
	if err := w.WriteZeros(mateHeaderSize - int(w.Pos())); err != nil {
		return err
	}
	return zeroFill(b, mateHeaderSize, f.FileSize(d)-mateHeaderSize)
}

func (f *Mate) FileSize(d *Descriptor) int64 {
	return mateHeaderSize + int64(d.NumElements()*d.Type.Size())
}

func (f *Mate) ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error {
	return readContiguous(b, d, r, dst, mateHeaderSize)
}

func (f *Mate) WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error {
	return writeContiguous(b, d, r, src, mateHeaderSize)
}
