package layout

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Reader reads named fields out of a raw record in place. The buffer is
// checked against the table size once, at construction, so every field read
// afterwards is within bounds. The Reader never writes to the buffer.
type Reader struct {
	table *Table
	data  []byte
	dec   *bin.Decoder
}

// NewReader returns a Reader over data. It fails with ErrShortBuffer if data
// is shorter than the table. Trailing bytes beyond the table are ignored.
func (t *Table) NewReader(data []byte) (*Reader, error) {
	if len(data) < t.size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, t.name, t.size, len(data))
	}
	view := data[:t.size:t.size]
	return &Reader{
		table: t,
		data:  view,
		dec:   bin.NewBinDecoder(view),
	}, nil
}

func (r *Reader) seek(name string, enc Encoding) (Field, error) {
	f, err := r.table.lookup(name, enc)
	if err != nil {
		return Field{}, err
	}
	if err := r.dec.SetPosition(uint(f.Offset)); err != nil {
		return Field{}, fmt.Errorf("%s.%s: %w", r.table.name, name, err)
	}
	return f, nil
}

func (r *Reader) Uint8(name string) (uint8, error) {
	if _, err := r.seek(name, Uint8); err != nil {
		return 0, err
	}
	return r.dec.ReadUint8()
}

func (r *Reader) Uint16(name string) (uint16, error) {
	if _, err := r.seek(name, Uint16); err != nil {
		return 0, err
	}
	return r.dec.ReadUint16(binary.LittleEndian)
}

func (r *Reader) Int32(name string) (int32, error) {
	if _, err := r.seek(name, Int32); err != nil {
		return 0, err
	}
	return r.dec.ReadInt32(binary.LittleEndian)
}

func (r *Reader) Uint64(name string) (uint64, error) {
	if _, err := r.seek(name, Uint64); err != nil {
		return 0, err
	}
	return r.dec.ReadUint64(binary.LittleEndian)
}

// Uint128 reads a little-endian unsigned 128-bit field.
func (r *Reader) Uint128(name string) (*uint256.Int, error) {
	if _, err := r.seek(name, Uint128); err != nil {
		return nil, err
	}
	v, err := r.dec.ReadUint128(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	out := new(uint256.Int)
	out[0] = v.Lo
	out[1] = v.Hi
	return out, nil
}

func (r *Reader) PublicKey(name string) (solana.PublicKey, error) {
	f, err := r.seek(name, PublicKey)
	if err != nil {
		return solana.PublicKey{}, err
	}
	raw, err := r.dec.ReadNBytes(f.Width)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// Bytes returns a copy of a raw byte field.
func (r *Reader) Bytes(name string) ([]byte, error) {
	f, err := r.seek(name, Bytes)
	if err != nil {
		return nil, err
	}
	raw, err := r.dec.ReadNBytes(f.Width)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}
