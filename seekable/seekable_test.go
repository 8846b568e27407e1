package seekable

import (
	"fmt"
	"testing"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/rowbinary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFile is a growable in-memory buffer implementing io.Writer and
// io.ReaderAt, standing in for an *os.File in tests.
type memFile struct {
	buf []byte
}

func (m *memFile) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.buf)) {
		return 0, fmt.Errorf("memFile: offset out of range")
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, fmt.Errorf("memFile: short read")
	}
	return n, nil
}

func testSchema(t *testing.T) *rowbinary.Schema {
	t.Helper()

	idType, err := ctype.Parse("UInt32")
	require.NoError(t, err)
	nameType, err := ctype.Parse("String")
	require.NoError(t, err)

	schema, err := rowbinary.NewSchema([]rowbinary.Column{
		{Name: "id", Type: idType},
		{Name: "name", Type: nameType},
	})
	require.NoError(t, err)

	return schema
}

func buildRows(n int) [][]cvalue.Value {
	rows := make([][]cvalue.Value, n)
	for i := 0; i < n; i++ {
		rows[i] = []cvalue.Value{cvalue.Uint(uint64(i)), cvalue.Str(fmt.Sprintf("row-%d", i))}
	}
	return rows
}

func TestSeekable_RoundTrip_SmallFile(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(4))
	require.NoError(t, err)

	rows := buildRows(10)
	require.NoError(t, w.WriteRows(rows))
	require.NoError(t, w.Close())
	assert.True(t, w.Committed())
	assert.Equal(t, uint64(10), w.TotalRows())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), r.TotalRows())

	all := make([][]cvalue.Value, 0, 10)
	for i := uint64(0); i < r.TotalRows(); i++ {
		require.NoError(t, r.Seek(i))
		v, err := r.ReadCurrent(false)
		require.NoError(t, err)
		all = append(all, v)
	}

	for i, v := range all {
		assert.Equal(t, uint64(i), v[0].AsUint())
		assert.Equal(t, fmt.Sprintf("row-%d", i), string(v[1].AsBytes()))
	}
}

func TestSeekable_SeekAndReadCurrent_MatchesReadAll(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(3))
	require.NoError(t, err)
	rows := buildRows(25)
	require.NoError(t, w.WriteRows(rows))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)

	var viaReadRows [][]cvalue.Value
	require.NoError(t, r.SeekToStart())
	for {
		rowBatch, err := r.ReadRows(5)
		require.NoError(t, err)
		if len(rowBatch) == 0 {
			break
		}
		viaReadRows = append(viaReadRows, rowBatch...)
	}
	require.Len(t, viaReadRows, 25)

	for i := uint64(0); i < 25; i++ {
		require.NoError(t, r.Seek(i))
		v, err := r.ReadCurrent(false)
		require.NoError(t, err)
		assert.Equal(t, viaReadRows[i][0].AsUint(), v[0].AsUint())
		assert.Equal(t, string(viaReadRows[i][1].AsBytes()), string(v[1].AsBytes()))
	}
}

func TestSeekable_SeekRelative(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(5))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(12)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)

	require.NoError(t, r.Seek(3))
	require.NoError(t, r.SeekRelative(1))
	assert.Equal(t, uint64(4), r.Cursor())

	v, err := r.ReadCurrent(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v[0].AsUint())
	assert.Equal(t, uint64(5), r.Cursor())
}

func TestSeekable_SeekAtTotalRowsIsLegal_PastItErrors(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(8)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)

	require.NoError(t, r.Seek(8))
	_, err = r.ReadCurrent(false)
	assert.ErrorIs(t, err, EOF)

	err = r.Seek(9)
	assert.Error(t, err)
}

func TestSeekable_CurrentRowBytes_WriteRowBytesRoundTrip(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(6)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)

	require.NoError(t, r.Seek(2))
	raw, err := r.CurrentRowBytes()
	require.NoError(t, err)

	mf2 := &memFile{}
	w2, err := NewWriter(mf2, schema, rowbinary.RowBinary, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w2.WriteRowBytes(raw))
	require.NoError(t, w2.Close())

	r2, err := Open(mf2, int64(len(mf2.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)
	v, err := r2.ReadCurrent(false)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v[0].AsUint())
}

func TestSeekable_TotalRowsEqualsSumOfFrames(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(7))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(30)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)

	var sum uint64
	for _, f := range r.trailer.Frames {
		sum += uint64(f.RowsInFrame)
	}
	assert.Equal(t, r.TotalRows(), sum)
	assert.Equal(t, uint64(30), r.TotalRows())
}

func TestSeekable_LargeFile_RandomAccess(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(512))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(10000)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, schema, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), r.TotalRows())

	for _, idx := range []uint64{0, 1, 511, 512, 4999, 9999} {
		require.NoError(t, r.Seek(idx))
		v, err := r.ReadCurrent(false)
		require.NoError(t, err)
		assert.Equal(t, idx, v[0].AsUint())
	}
}

func TestSeekable_SchemaMismatchRejected(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(4)))
	require.NoError(t, w.Close())

	otherType, _ := ctype.Parse("UInt32")
	otherSchema, err := rowbinary.NewSchema([]rowbinary.Column{{Name: "only", Type: otherType}})
	require.NoError(t, err)

	_, err = Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, otherSchema, nil)
	assert.Error(t, err)
}

func TestSeekable_WriteHeader_RowsNotMisalignedByHeaderBytes(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinaryWithNamesAndTypes, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteRows(buildRows(9)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinaryWithNamesAndTypes, schema, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(9), r.TotalRows())

	for i := uint64(0); i < r.TotalRows(); i++ {
		require.NoError(t, r.Seek(i))
		v, err := r.ReadCurrent(false)
		require.NoError(t, err)
		assert.Equal(t, i, v[0].AsUint())
		assert.Equal(t, fmt.Sprintf("row-%d", i), string(v[1].AsBytes()))
	}
}

func TestSeekable_WriteHeader_AfterRowsRejected(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinaryWithNames, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w.WriteRow(buildRows(1)[0]))

	err = w.WriteHeader()
	assert.Error(t, err)
}

func TestSeekable_NilSchemaInheritsFromTrailer(t *testing.T) {
	schema := testSchema(t)
	mf := &memFile{}

	w, err := NewWriter(mf, schema, rowbinary.RowBinary, WithRowsPerFrame(4))
	require.NoError(t, err)
	require.NoError(t, w.WriteRows(buildRows(4)))
	require.NoError(t, w.Close())

	r, err := Open(mf, int64(len(mf.buf)), rowbinary.RowBinary, nil, nil)
	require.NoError(t, err)
	assert.True(t, schema.Equal(r.Schema()))
}
