package compression

import (
	"encoding/binary"
	"fmt"
)

// EnvelopeHeaderSize is the size of the page file envelope header:
// [1-byte algorithm][4-byte original size][4-byte payload size]
const EnvelopeHeaderSize = 9

// WrapPayload compresses a serialized page and prefixes the envelope
// header. The header records which algorithm wrote the file, so reads do
// not depend on the current configuration.
func (c *Compressor) WrapPayload(payload []byte) ([]byte, error) {
	compressed, err := c.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress page payload: %w", err)
	}

	result := make([]byte, EnvelopeHeaderSize+len(compressed))
	result[0] = byte(c.config.Algorithm)
	binary.LittleEndian.PutUint32(result[1:5], uint32(len(payload)))
	binary.LittleEndian.PutUint32(result[5:9], uint32(len(compressed)))
	copy(result[EnvelopeHeaderSize:], compressed)
	return result, nil
}

// UnwrapPayload validates the envelope header and returns the
// decompressed page payload.
func (c *Compressor) UnwrapPayload(data []byte) ([]byte, error) {
	if len(data) < EnvelopeHeaderSize {
		return nil, fmt.Errorf("page envelope too short: %d bytes", len(data))
	}

	algorithm := Algorithm(data[0])
	originalSize := binary.LittleEndian.Uint32(data[1:5])
	payloadSize := binary.LittleEndian.Uint32(data[5:9])

	if int(payloadSize) != len(data)-EnvelopeHeaderSize {
		return nil, fmt.Errorf("page envelope payload size %d, have %d bytes", payloadSize, len(data)-EnvelopeHeaderSize)
	}

	payload, err := c.Decompress(data[EnvelopeHeaderSize:], algorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress page payload: %w", err)
	}
	if len(payload) != int(originalSize) {
		return nil, fmt.Errorf("page envelope original size %d, decompressed to %d", originalSize, len(payload))
	}
	return payload, nil
}
