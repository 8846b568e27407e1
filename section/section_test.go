package section

import (
	"testing"

	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailer_RoundTrip(t *testing.T) {
	trailer := &Trailer{
		Frames: []FrameEntry{
			{FileOffset: 0, UncompressedSize: 1024, RowsInFrame: 100},
			{FileOffset: 512, UncompressedSize: 2048, RowsInFrame: 200},
		},
		Columns: []ColumnDef{
			{Name: "id", Type: "UInt32"},
			{Name: "name", Type: "String"},
		},
	}

	buf := pool.NewByteBuffer(128)
	trailer.Bytes(buf)

	got, n, err := ParseTrailer(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, len(buf.Bytes()), n)
	assert.Equal(t, trailer.Frames, got.Frames)
	assert.Equal(t, trailer.Columns, got.Columns)
}

func TestTrailer_TotalRows(t *testing.T) {
	trailer := &Trailer{Frames: []FrameEntry{
		{RowsInFrame: 8192},
		{RowsInFrame: 8192},
		{RowsInFrame: 1000},
	}}
	assert.Equal(t, uint64(17384), trailer.TotalRows())
}

func TestTrailer_EmptyRoundTrip(t *testing.T) {
	trailer := &Trailer{}
	buf := pool.NewByteBuffer(16)
	trailer.Bytes(buf)

	got, _, err := ParseTrailer(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, got.Frames)
	assert.Empty(t, got.Columns)
	assert.Equal(t, uint64(0), got.TotalRows())
}

func TestTrailer_TruncatedFrameEntry(t *testing.T) {
	trailer := &Trailer{Frames: []FrameEntry{{FileOffset: 1, UncompressedSize: 2, RowsInFrame: 3}}}
	buf := pool.NewByteBuffer(16)
	trailer.Bytes(buf)

	_, _, err := ParseTrailer(buf.Bytes()[:3])
	assert.Error(t, err)
}

func TestFooter_RoundTrip(t *testing.T) {
	footer := &Footer{
		TrailerOffset: 123456,
		TrailerLength: 789,
		TotalRows:     10000,
		FormatVersion: FormatVersion,
	}

	data := footer.Bytes()
	assert.Len(t, data, FooterSize)

	got, err := ParseFooter(data)
	require.NoError(t, err)
	assert.Equal(t, footer, got)
}

func TestFooter_BadMagicRejected(t *testing.T) {
	footer := &Footer{FormatVersion: FormatVersion}
	data := footer.Bytes()
	data[31] = 'X'

	_, err := ParseFooter(data)
	assert.ErrorIs(t, err, errs.ErrBadMagic)
}

func TestFooter_WrongSizeRejected(t *testing.T) {
	_, err := ParseFooter(make([]byte, FooterSize-1))
	assert.Error(t, err)
}
