package buffer

import (
	"fmt"

	"github.com/downfa11-org/go-shuffle/util"
)

// Compressor compresses data buffers before they are spilled or served.
// Only data units are compressed; events stay as-is.
type Compressor struct {
	codec string
}

func NewCompressor(codec string) *Compressor {
	return &Compressor{codec: codec}
}

func (c *Compressor) Codec() string {
	return c.codec
}

// Compress returns a compressed clone of the buffer when the codec shrinks
// the payload, otherwise the original buffer unchanged. The clone does not
// take over the original's recycler; the caller keeps ownership of both.
func (c *Compressor) Compress(b *Buffer) (*Buffer, error) {
	if c.codec == "" || c.codec == "none" || !b.DataType().IsData() || b.IsCompressed() {
		return b, nil
	}

	compressed, err := util.CompressMessage(b.Bytes(), c.codec)
	if err != nil {
		return nil, fmt.Errorf("compress unit: %w", err)
	}
	if len(compressed) >= b.Len() {
		return b, nil
	}
	return NewBuffer(compressed, b.DataType(), true, NopRecycler), nil
}

// Decompress inverts Compress for buffers tagged as compressed.
func (c *Compressor) Decompress(b *Buffer) (*Buffer, error) {
	if !b.IsCompressed() {
		return b, nil
	}

	decompressed, err := util.DecompressMessage(b.Bytes(), c.codec)
	if err != nil {
		return nil, fmt.Errorf("decompress unit: %w", err)
	}
	return NewBuffer(decompressed, b.DataType(), false, NopRecycler), nil
}
