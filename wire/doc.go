// Package wire implements the fixed-width and variable-length primitive
// encodings shared by every ClickHouse RowBinary type: little-endian
// integers from 8 to 256 bits, IEEE-754 float32/float64, a single-byte
// bool, and unsigned LEB128 varint.
//
// All multi-byte primitives are little-endian regardless of host byte
// order, matching ClickHouse's wire format. The package uses
// endian.EndianEngine's AppendByteOrder methods, which append directly
// into the destination slice instead of a make-then-copy pattern.
package wire
