package section

import (
	"encoding/binary"
	"fmt"

	"github.com/dovreshef/clickhouse-rowbinary/errs"
)

// FooterSize is the fixed on-disk size of a Footer, in bytes.
const FooterSize = 8 + 8 + 8 + 4 + 4

// FormatVersion is the only seekable-container format version this package
// produces or accepts.
const FormatVersion uint32 = 1

// magic is the file identifier, stored as the raw ASCII bytes "CHRB".
var magic = [4]byte{'C', 'H', 'R', 'B'}

// Footer is the fixed 32-byte tail of a seekable container file.
type Footer struct {
	TrailerOffset uint64
	TrailerLength uint64
	TotalRows     uint64
	FormatVersion uint32
}

// Bytes renders the footer's fixed wire encoding.
func (f *Footer) Bytes() []byte {
	buf := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(buf[0:8], f.TrailerOffset)
	binary.LittleEndian.PutUint64(buf[8:16], f.TrailerLength)
	binary.LittleEndian.PutUint64(buf[16:24], f.TotalRows)
	binary.LittleEndian.PutUint32(buf[24:28], f.FormatVersion)
	copy(buf[28:32], magic[:])

	return buf
}

// ParseFooter validates and decodes a FooterSize-byte buffer. It fails with
// errs.ErrBadMagic if the trailing 4 bytes aren't "CHRB".
func ParseFooter(data []byte) (*Footer, error) {
	if len(data) != FooterSize {
		return nil, fmt.Errorf("section: footer must be exactly %d bytes, got %d", FooterSize, len(data))
	}

	if string(data[28:32]) != string(magic[:]) {
		return nil, errs.ErrBadMagic
	}

	return &Footer{
		TrailerOffset: binary.LittleEndian.Uint64(data[0:8]),
		TrailerLength: binary.LittleEndian.Uint64(data[8:16]),
		TotalRows:     binary.LittleEndian.Uint64(data[16:24]),
		FormatVersion: binary.LittleEndian.Uint32(data[24:28]),
	}, nil
}
