package layout

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrShortBuffer      = errors.New("buffer shorter than layout")
	ErrUnknownField     = errors.New("unknown field")
	ErrEncodingMismatch = errors.New("field encoding mismatch")
	ErrInvalidLayout    = errors.New("invalid layout")
)

// Encoding is the numeric encoding of a field. All integers are little endian.
type Encoding uint8

const (
	Uint8 Encoding = iota
	Uint16
	Int32
	Uint64
	Uint128
	PublicKey
	Bytes
)

var encodingWidths = map[Encoding]int{
	Uint8:     1,
	Uint16:    2,
	Int32:     4,
	Uint64:    8,
	Uint128:   16,
	PublicKey: 32,
}

func (e Encoding) String() string {
	switch e {
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Int32:
		return "i32"
	case Uint64:
		return "u64"
	case Uint128:
		return "u128"
	case PublicKey:
		return "pubkey"
	case Bytes:
		return "bytes"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// Field maps a name to a byte range of a packed record.
type Field struct {
	Name     string
	Offset   int
	Width    int
	Encoding Encoding
}

// End returns the offset one past the last byte of the field.
func (f Field) End() int {
	return f.Offset + f.Width
}

// Table is a declarative description of a fixed-size packed record:
// field name -> byte offset -> width -> numeric encoding.
// A Table is immutable once built and safe for concurrent use.
type Table struct {
	name   string
	size   int
	fields map[string]Field
	order  []Field
}

// NewTable validates the fields against size and returns the table.
// Fields must have a positive width matching their encoding, fit inside the
// record, carry unique names and must not overlap.
func NewTable(name string, size int, fields ...Field) (*Table, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s: size must be positive", ErrInvalidLayout, name)
	}

	byName := make(map[string]Field, len(fields))
	order := make([]Field, len(fields))
	copy(order, fields)

	for _, f := range order {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s: field without a name at offset %d", ErrInvalidLayout, name, f.Offset)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidLayout, name, f.Name)
		}
		if want, fixed := encodingWidths[f.Encoding]; fixed && f.Width != want {
			return nil, fmt.Errorf("%w: %s: field %q is %s but %d bytes wide", ErrInvalidLayout, name, f.Name, f.Encoding, f.Width)
		}
		if f.Width <= 0 || f.Offset < 0 || f.End() > size {
			return nil, fmt.Errorf("%w: %s: field %q [%d,%d) outside record of %d bytes", ErrInvalidLayout, name, f.Name, f.Offset, f.End(), size)
		}
		byName[f.Name] = f
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Offset < order[j].Offset })
	for i := 1; i < len(order); i++ {
		if order[i].Offset < order[i-1].End() {
			return nil, fmt.Errorf("%w: %s: field %q overlaps %q", ErrInvalidLayout, name, order[i].Name, order[i-1].Name)
		}
	}

	return &Table{
		name:   name,
		size:   size,
		fields: byName,
		order:  order,
	}, nil
}

// MustTable is like NewTable but panics on an invalid description. It is
// meant for package-level layout declarations.
func MustTable(name string, size int, fields ...Field) *Table {
	t, err := NewTable(name, size, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Name() string { return t.name }

// Size returns the exact byte size of the record.
func (t *Table) Size() int { return t.size }

// Field looks up a field by name.
func (t *Table) Field(name string) (Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

func (t *Table) lookup(name string, enc Encoding) (Field, error) {
	f, ok := t.fields[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, name)
	}
	if f.Encoding != enc {
		return Field{}, fmt.Errorf("%w: %s.%s is %s, not %s", ErrEncodingMismatch, t.name, name, f.Encoding, enc)
	}
	return f, nil
}

// Embed returns the fields of sub shifted by offset, with names prefixed by
// prefix and a dot. It is used to describe arrays of nested records.
func Embed(prefix string, offset int, sub *Table) []Field {
	out := make([]Field, 0, len(sub.order))
	for _, f := range sub.order {
		f.Name = prefix + "." + f.Name
		f.Offset += offset
		out = append(out, f)
	}
	return out
}

// Indexed formats the name of element i of an array field, e.g. "rewards[2]".
func Indexed(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
