package history

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Codec compresses sample columns. Each value is XORed with its
// predecessor before zstd, so slowly varying columns shrink well.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec; level runs from 1 (fastest) to 4 (smallest).
func NewCodec(level int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// EncodeFloats compresses values. An empty column encodes to nil.
func (c *Codec) EncodeFloats(values []float64) []byte {
	if len(values) == 0 {
		return nil
	}
	raw := make([]byte, 0, 8*len(values))
	var prev uint64
	for _, v := range values {
		bits := math.Float64bits(v)
		raw = binary.LittleEndian.AppendUint64(raw, bits^prev)
		prev = bits
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

// DecodeFloats reverses EncodeFloats. count must match the encoded length.
func (c *Codec) DecodeFloats(data []byte, count int) ([]float64, error) {
	if count == 0 {
		return nil, nil
	}
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(raw) != 8*count {
		return nil, fmt.Errorf("decompressed %d bytes, want %d", len(raw), 8*count)
	}
	values := make([]float64, count)
	var prev uint64
	for i := range values {
		bits := binary.LittleEndian.Uint64(raw[8*i:]) ^ prev
		values[i] = math.Float64frombits(bits)
		prev = bits
	}
	return values, nil
}

// Close releases the encoder and decoder.
func (c *Codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
