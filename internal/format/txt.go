package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/kspect/mfile/internal/medium"
)

// Txt is the plain-text layout: a human-readable element listing, one row
// per line, whitespace-separated, with an optional "# <rows> <cols> <type>"
// header line. Without a header the shape and element type are inferred
// from the listing itself.
//
// Its probe accepts any printable prefix containing a digit, so it must be
// the last backend in every registry.
type Txt struct{}

const txtProbeLen = 256

func (f *Txt) Name() string { return "txt" }

func (f *Txt) Probe(prefix []byte, size int64) bool {
	if size == 0 || len(prefix) == 0 {
		return false
	}
	n := len(prefix)
	if n > txtProbeLen {
		n = txtProbeLen
	}
	hasDigit := false
	for _, c := range prefix[:n] {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c >= 0x20 && c <= 0x7e:
		case c == '\t' || c == '\n' || c == '\r':
		default:
			return false
		}
	}
	return hasDigit
}

// parse reads and decodes the whole listing. The returned block holds all
// elements in row-major order.
func (f *Txt) parse(b medium.Backend) (*Descriptor, *Block, error) {
	raw := make([]byte, b.Size())
	if b.Size() > 0 {
		if _, err := b.ReadAt(raw, 0); err != nil {
			return nil, nil, err
		}
	}

	var lines []string
	for _, ln := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("txt: empty listing: %w", ErrMalformedHeader)
	}

	d := &Descriptor{Format: f.Name(), Order: binary.LittleEndian}
	if strings.HasPrefix(lines[0], "#") {
		fields := strings.Fields(strings.TrimPrefix(lines[0], "#"))
		if len(fields) != 3 {
			return nil, nil, fmt.Errorf("txt: header %q: %w", lines[0], ErrMalformedHeader)
		}
		rows, err1 := strconv.Atoi(fields[0])
		cols, err2 := strconv.Atoi(fields[1])
		typ, err3 := ParseElemType(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, nil, fmt.Errorf("txt: header %q: %w", lines[0], ErrMalformedHeader)
		}
		d.Rows, d.Cols, d.Type = rows, cols, typ
		lines = lines[1:]
	} else {
		d.Rows = len(lines)
		d.Cols = len(strings.Fields(lines[0]))
		d.Type = Int32
		for _, ln := range lines {
			for _, tok := range strings.Fields(ln) {
				if _, err := strconv.ParseInt(tok, 10, 64); err != nil {
					d.Type = Float64
					break
				}
			}
		}
	}
	d.Rank = 2
	if d.Rows == 1 {
		d.Rank = 1
	}
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}

	var tokens []string
	for _, ln := range lines {
		tokens = append(tokens, strings.Fields(ln)...)
	}
	if len(tokens) != d.NumElements() {
		return nil, nil, fmt.Errorf("txt: %d values for declared %dx%d: %w",
			len(tokens), d.Rows, d.Cols, ErrMalformedHeader)
	}

	blk := NewBlock(d.Type, len(tokens))
	for i, tok := range tokens {
		if blk.Kind == KindFloat {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("txt: value %q: %w", tok, ErrMalformedHeader)
			}
			blk.SetFloat(i, v)
		} else {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("txt: value %q: %w", tok, ErrMalformedHeader)
			}
			blk.SetInt(i, v)
		}
	}
	return d, blk, nil
}

// serialize rewrites the whole listing for d from blk.
func (f *Txt) serialize(b medium.Backend, d *Descriptor, blk *Block) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %d %d %s\n", d.Rows, d.Cols, d.Type)
	for row := 0; row < d.Rows; row++ {
		for col := 0; col < d.Cols; col++ {
			if col > 0 {
				buf.WriteByte(' ')
			}
			i := row*d.Cols + col
			if d.Type.IsFloat() {
				buf.WriteString(strconv.FormatFloat(blk.Float(i), 'g', -1, 64))
			} else {
				lo, hi := intRange(d.Type)
				v := blk.Int(i)
				if v < lo || v > hi {
					return fmt.Errorf("txt: value %d outside %s range [%d,%d]: %w",
						v, d.Type, lo, hi, ErrNumericOverflow)
				}
				buf.WriteString(strconv.FormatInt(v, 10))
			}
		}
		buf.WriteByte('\n')
	}
	if _, err := b.WriteAt(buf.Bytes(), 0); err != nil {
		return err
	}
	return b.Truncate(int64(buf.Len()))
}

func (f *Txt) ReadDescriptor(b medium.Backend) (*Descriptor, error) {
	d, _, err := f.parse(b)
	return d, err
}

func (f *Txt) Adapt(d Descriptor) (Descriptor, error) {
	d.Format = f.Name()
	d.Order = binary.LittleEndian
	if d.Type.IsFloat() {
		d.Type = Float64
	} else {
		d.Type = Int32
	}
	d.Cal = nil // no calibration field in the listing
	return d, nil
}

func (f *Txt) Format(b medium.Backend, d *Descriptor) error {
	return f.serialize(b, d, NewBlock(d.Type, d.NumElements()))
}

// FileSize is an upper-bound estimate; the listing is variable-width.
func (f *Txt) FileSize(d *Descriptor) int64 {
	return 32 + int64(d.NumElements())*24
}

func (f *Txt) ReadElements(b medium.Backend, d *Descriptor, r Region, dst *Block) error {
	if err := checkRegion(d, r); err != nil {
		return err
	}
	if dst.Len() != r.Count {
		return fmt.Errorf("txt: block of %d elements for region of %d: %w",
			dst.Len(), r.Count, ErrIncompatibleShape)
	}
	_, blk, err := f.parse(b)
	if err != nil {
		return err
	}
	if blk.Len() < r.Start+r.Count {
		return fmt.Errorf("txt: region [%d,%d) of %d values: %w",
			r.Start, r.Start+r.Count, blk.Len(), medium.ErrOutOfRange)
	}
	for i := 0; i < r.Count; i++ {
		if dst.Kind == KindFloat {
			dst.SetFloat(i, blk.Float(r.Start+i))
		} else {
			dst.SetInt(i, blk.Int(r.Start+i))
		}
	}
	return nil
}

// WriteElements overlays the region onto the current listing and rewrites
// the whole file: the listing is variable-width, so there is no in-place
// element update.
func (f *Txt) WriteElements(b medium.Backend, d *Descriptor, r Region, src *Block) error {
	if err := checkRegion(d, r); err != nil {
		return err
	}
	if src.Len() != r.Count {
		return fmt.Errorf("txt: block of %d elements for region of %d: %w",
			src.Len(), r.Count, ErrIncompatibleShape)
	}
	_, blk, err := f.parse(b)
	if err != nil {
		return err
	}
	for i := 0; i < r.Count; i++ {
		if blk.Kind == KindFloat {
			blk.SetFloat(r.Start+i, src.Float(i))
		} else {
			blk.SetInt(r.Start+i, src.Int(i))
		}
	}
	return f.serialize(b, d, blk)
}
