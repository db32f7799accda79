package layout

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	entry := MustTable("entry", 33,
		Field{Name: "key", Offset: 0, Width: 32, Encoding: PublicKey},
		Field{Name: "flag", Offset: 32, Width: 1, Encoding: Uint8},
	)

	fields := []Field{
		{Name: "tag", Offset: 0, Width: 8, Encoding: Bytes},
		{Name: "small", Offset: 8, Width: 2, Encoding: Uint16},
		{Name: "tick", Offset: 10, Width: 4, Encoding: Int32},
		{Name: "counter", Offset: 14, Width: 8, Encoding: Uint64},
		{Name: "wide", Offset: 22, Width: 16, Encoding: Uint128},
	}
	fields = append(fields, Embed(Indexed("entries", 0), 38, entry)...)
	fields = append(fields, Embed(Indexed("entries", 1), 71, entry)...)

	table, err := NewTable("test", 104, fields...)
	require.NoError(t, err)
	return table
}

func TestNewTable_Validation(t *testing.T) {
	t.Run("Should reject a field outside the record", func(t *testing.T) {
		_, err := NewTable("bad", 4, Field{Name: "x", Offset: 0, Width: 8, Encoding: Uint64})
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("Should reject overlapping fields", func(t *testing.T) {
		_, err := NewTable("bad", 16,
			Field{Name: "a", Offset: 0, Width: 8, Encoding: Uint64},
			Field{Name: "b", Offset: 4, Width: 8, Encoding: Uint64},
		)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("Should reject a width that does not match the encoding", func(t *testing.T) {
		_, err := NewTable("bad", 16, Field{Name: "a", Offset: 0, Width: 4, Encoding: Uint64})
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("Should reject duplicate names", func(t *testing.T) {
		_, err := NewTable("bad", 16,
			Field{Name: "a", Offset: 0, Width: 1, Encoding: Uint8},
			Field{Name: "a", Offset: 1, Width: 1, Encoding: Uint8},
		)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("Should panic in MustTable on invalid input", func(t *testing.T) {
		assert.Panics(t, func() { MustTable("bad", 0) })
	})
}

func TestTable_EmbeddedFieldOffsets(t *testing.T) {
	table := testTable(t)

	f, ok := table.Field("entries[1].flag")
	require.True(t, ok)
	assert.Equal(t, 103, f.Offset)
}

func TestReaderWriter(t *testing.T) {
	table := testTable(t)
	key := solana.PublicKeyFromBytes(make32(7))
	wide := new(uint256.Int).Lsh(uint256.NewInt(3), 100)
	wide.Add(wide, uint256.NewInt(42))

	w := table.NewWriter()
	require.NoError(t, w.PutBytes("tag", []byte("ABCDEFGH")))
	require.NoError(t, w.PutUint16("small", 0xBEEF))
	require.NoError(t, w.PutInt32("tick", -12345))
	require.NoError(t, w.PutUint64("counter", 1<<60))
	require.NoError(t, w.PutUint128("wide", wide))
	require.NoError(t, w.PutPublicKey("entries[1].key", key))
	require.NoError(t, w.PutUint8("entries[1].flag", 5))

	data := w.Bytes()
	require.Len(t, data, table.Size())

	r, err := table.NewReader(data)
	require.NoError(t, err)

	tag, err := r.Bytes("tag")
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCDEFGH"), tag)

	small, err := r.Uint16("small")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), small)

	tick, err := r.Int32("tick")
	require.NoError(t, err)
	assert.Equal(t, int32(-12345), tick)

	counter, err := r.Uint64("counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<60), counter)

	gotWide, err := r.Uint128("wide")
	require.NoError(t, err)
	assert.True(t, wide.Eq(gotWide))

	gotKey, err := r.PublicKey("entries[1].key")
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)

	flag, err := r.Uint8("entries[1].flag")
	require.NoError(t, err)
	assert.Equal(t, uint8(5), flag)

	zeroKey, err := r.PublicKey("entries[0].key")
	require.NoError(t, err)
	assert.True(t, zeroKey.IsZero())
}

func TestReader_Errors(t *testing.T) {
	table := testTable(t)

	t.Run("Should reject a short buffer before any read", func(t *testing.T) {
		_, err := table.NewReader(make([]byte, table.Size()-1))
		assert.ErrorIs(t, err, ErrShortBuffer)
	})

	t.Run("Should ignore trailing bytes", func(t *testing.T) {
		_, err := table.NewReader(make([]byte, table.Size()+10))
		assert.NoError(t, err)
	})

	r, err := table.NewReader(make([]byte, table.Size()))
	require.NoError(t, err)

	t.Run("Should reject unknown fields", func(t *testing.T) {
		_, err := r.Uint8("nope")
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("Should reject reading with the wrong encoding", func(t *testing.T) {
		_, err := r.Uint64("wide")
		assert.ErrorIs(t, err, ErrEncodingMismatch)
	})
}

func TestWriter_Errors(t *testing.T) {
	table := testTable(t)
	w := table.NewWriter()

	tooWide := new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	assert.Error(t, w.PutUint128("wide", tooWide))
	assert.Error(t, w.PutBytes("tag", []byte("short")))

	_, err := table.WrapWriter(make([]byte, 3))
	assert.ErrorIs(t, err, ErrShortBuffer)

	buf := make([]byte, table.Size())
	ww, err := table.WrapWriter(buf)
	require.NoError(t, err)
	require.NoError(t, ww.PutUint8("entries[0].flag", 9))
	assert.Equal(t, byte(9), buf[70], "WrapWriter writes in place")
}

func make32(seed byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}
