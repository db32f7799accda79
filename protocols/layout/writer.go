package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Writer fills named fields of a fixed-size record buffer. It is used to
// produce registry records and synthetic pool records.
type Writer struct {
	table *Table
	buf   []byte
}

// NewWriter returns a Writer over a fresh zeroed buffer of the table size.
func (t *Table) NewWriter() *Writer {
	return &Writer{table: t, buf: make([]byte, t.size)}
}

// WrapWriter returns a Writer that writes into buf in place.
func (t *Table) WrapWriter(buf []byte) (*Writer, error) {
	if len(buf) < t.size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, t.name, t.size, len(buf))
	}
	return &Writer{table: t, buf: buf[:t.size:t.size]}, nil
}

// Bytes returns the underlying buffer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) span(name string, enc Encoding) ([]byte, error) {
	f, err := w.table.lookup(name, enc)
	if err != nil {
		return nil, err
	}
	return w.buf[f.Offset:f.End()], nil
}

func (w *Writer) PutUint8(name string, v uint8) error {
	b, err := w.span(name, Uint8)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (w *Writer) PutUint16(name string, v uint16) error {
	b, err := w.span(name, Uint16)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (w *Writer) PutInt32(name string, v int32) error {
	b, err := w.span(name, Int32)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}

func (w *Writer) PutUint64(name string, v uint64) error {
	b, err := w.span(name, Uint64)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// PutUint128 writes v as a little-endian 128-bit value. A nil v writes zero.
func (w *Writer) PutUint128(name string, v *uint256.Int) error {
	b, err := w.span(name, Uint128)
	if err != nil {
		return err
	}
	if v == nil {
		v = new(uint256.Int)
	}
	if v.BitLen() > 128 {
		return fmt.Errorf("%s.%s: value exceeds 128 bits", w.table.name, name)
	}
	binary.LittleEndian.PutUint64(b[0:8], v[0])
	binary.LittleEndian.PutUint64(b[8:16], v[1])
	return nil
}

func (w *Writer) PutPublicKey(name string, v solana.PublicKey) error {
	b, err := w.span(name, PublicKey)
	if err != nil {
		return err
	}
	copy(b, v[:])
	return nil
}

// PutBytes copies v into a raw byte field. v must match the field width.
func (w *Writer) PutBytes(name string, v []byte) error {
	b, err := w.span(name, Bytes)
	if err != nil {
		return err
	}
	if len(v) != len(b) {
		return fmt.Errorf("%s.%s: want %d bytes, got %d", w.table.name, name, len(b), len(v))
	}
	copy(b, v)
	return nil
}
