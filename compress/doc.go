// Package compress implements the Zstd frame compression used by the
// seekable container format: every frame is compressed independently so a
// reader can decompress just the frame a sought row lives in, never the
// whole file.
package compress
