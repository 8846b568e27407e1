package rowbinary

import (
	"testing"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()

	idType, err := ctype.Parse("UInt32")
	require.NoError(t, err)
	nameType, err := ctype.Parse("String")
	require.NoError(t, err)

	schema, err := NewSchema([]Column{
		{Name: "id", Type: idType},
		{Name: "name", Type: nameType},
	})
	require.NoError(t, err)

	return schema
}

func TestSchema_DuplicateColumnRejected(t *testing.T) {
	idType, _ := ctype.Parse("UInt32")
	_, err := NewSchema([]Column{
		{Name: "id", Type: idType},
		{Name: "id", Type: idType},
	})
	assert.ErrorIs(t, err, errs.ErrDuplicateColumn)
}

func TestSchema_EmptyNameRejected(t *testing.T) {
	idType, _ := ctype.Parse("UInt32")
	_, err := NewSchema([]Column{{Name: "", Type: idType}})
	assert.ErrorIs(t, err, errs.ErrEmptyColumnName)
}

func TestSchema_Equal(t *testing.T) {
	a := testSchema(t)
	b := testSchema(t)
	assert.True(t, a.Equal(b))

	idType, _ := ctype.Parse("UInt32")
	c, err := NewSchema([]Column{{Name: "id", Type: idType}})
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestSchema_String(t *testing.T) {
	s := testSchema(t)
	assert.Equal(t, "id UInt32, name String", s.String())
}

func TestWriter_PlainFormat_NoHeader(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinary)

	err := w.WriteRow([]cvalue.Value{cvalue.Uint(1), cvalue.Str("alice")})
	require.NoError(t, err)
	assert.Equal(t, 1, w.RowsWritten())

	data := w.Take()
	assert.Equal(t, 0, w.RowsWritten())

	r, err := NewReader(data, RowBinary, schema)
	require.NoError(t, err)
	row, err := r.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), row[0].AsUint())
	assert.Equal(t, "alice", string(row[1].AsBytes()))

	_, err = r.ReadRow()
	assert.ErrorIs(t, err, EOF)
}

func TestWriter_WithNamesAndTypes_HeaderRoundTrip(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinaryWithNamesAndTypes)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteRow([]cvalue.Value{cvalue.Uint(2), cvalue.Str("bob")}))

	data := w.Finish()

	r, err := NewReader(data, RowBinaryWithNamesAndTypes, schema)
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(2), rows[0][0].AsUint())
}

func TestWriter_HeaderCallOrderErrors(t *testing.T) {
	schema := testSchema(t)

	w := NewWriter(schema, RowBinary)
	assert.ErrorIs(t, w.WriteHeader(), errs.ErrHeaderNotSupported)

	w2 := NewWriter(schema, RowBinaryWithNames)
	require.NoError(t, w2.WriteRow([]cvalue.Value{cvalue.Uint(1), cvalue.Str("x")}))
	assert.ErrorIs(t, w2.WriteHeader(), errs.ErrHeaderAfterRows)

	w3 := NewWriter(schema, RowBinaryWithNames)
	require.NoError(t, w3.WriteHeader())
	assert.ErrorIs(t, w3.WriteHeader(), errs.ErrHeaderAlreadyWritten)
}

func TestReader_HeaderMismatchRejected(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinaryWithNames)
	require.NoError(t, w.WriteHeader())
	data := w.Finish()

	otherType, _ := ctype.Parse("UInt32")
	otherSchema, err := NewSchema([]Column{{Name: "other", Type: otherType}})
	require.NoError(t, err)

	_, err = NewReader(data, RowBinaryWithNames, otherSchema)
	assert.ErrorIs(t, err, errs.ErrSchemaMismatch)
}

func TestWriter_WriteRow_TransactionalRollback(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinary)

	require.NoError(t, w.WriteRow([]cvalue.Value{cvalue.Uint(1), cvalue.Str("ok")}))
	lenAfterFirst := len(w.Bytes())

	// wrong kind: Null into non-Nullable UInt32 column raises an error
	err := w.WriteRow([]cvalue.Value{cvalue.Null(), cvalue.Str("bad")})
	assert.Error(t, err)
	assert.Equal(t, lenAfterFirst, len(w.Bytes()), "buffer must roll back to pre-row length on encode error")
	assert.Equal(t, 1, w.RowsWritten())
}

func TestWriter_WriteRowMap(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinary)

	err := w.WriteRowMap(map[string]cvalue.Value{
		"id":   cvalue.Uint(9),
		"name": cvalue.Str("carl"),
	})
	require.NoError(t, err)

	data := w.Take()
	r, err := NewReader(data, RowBinary, schema)
	require.NoError(t, err)
	row, err := r.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), row[0].AsUint())
}

func TestWriter_WriteRowMap_MissingColumn(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinary)

	err := w.WriteRowMap(map[string]cvalue.Value{"id": cvalue.Uint(1)})
	assert.Error(t, err)
}

func TestWriter_WriteRowBytes_Passthrough(t *testing.T) {
	schema := testSchema(t)
	w1 := NewWriter(schema, RowBinary)
	require.NoError(t, w1.WriteRow([]cvalue.Value{cvalue.Uint(5), cvalue.Str("raw")}))
	raw := w1.Take()

	w2 := NewWriter(schema, RowBinary)
	w2.WriteRowBytes(raw)
	assert.Equal(t, 1, w2.RowsWritten())

	data := w2.Take()
	assert.Equal(t, raw, data)
}

func TestWriter_WriteRows_StopsAtFirstError(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinary)

	rows := [][]cvalue.Value{
		{cvalue.Uint(1), cvalue.Str("a")},
		{cvalue.Null(), cvalue.Str("bad")},
		{cvalue.Uint(3), cvalue.Str("c")},
	}

	err := w.WriteRows(rows)
	assert.Error(t, err)
	assert.Equal(t, 1, w.RowsWritten())
}

func TestReader_ReadAll_MultipleRows(t *testing.T) {
	schema := testSchema(t)
	w := NewWriter(schema, RowBinary)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.WriteRow([]cvalue.Value{cvalue.Uint(uint64(i)), cvalue.Str("row")}))
	}
	data := w.Take()

	r, err := NewReader(data, RowBinary, schema)
	require.NoError(t, err)
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, uint64(4), rows[4][0].AsUint())
}

func TestFormat_HasHeaderAndTypes(t *testing.T) {
	assert.False(t, RowBinary.HasHeader())
	assert.True(t, RowBinaryWithNames.HasHeader())
	assert.False(t, RowBinaryWithNames.HasTypes())
	assert.True(t, RowBinaryWithNamesAndTypes.HasTypes())
}
