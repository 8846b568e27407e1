package compress

// Compressor compresses one independent frame of row bytes.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses one independent frame of row bytes.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. Every frame in a seekable container is
// compressed and decompressed independently of its neighbors, so a Codec
// implementation must not carry cross-frame dictionary state.
type Codec interface {
	Compressor
	Decompressor
}
