// Package artifact encodes trained-model payloads for storage on a
// version-language: zstd compressed, identified by a base58 CRC64-NVME checksum.
package artifact

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
	"github.com/nluhub/nluhub/internal/models"
)

var (
	ErrEmptyPayload     = errors.New("artifact payload is empty")
	ErrPayloadTooLarge  = errors.New("artifact payload exceeds maximum size")
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
)

// MaxPayloadSize bounds the raw size of a trained model.
const MaxPayloadSize = 256 << 20

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadSize))
)

// Checksum returns the base58 encoded CRC64-NVME of payload.
func Checksum(payload []byte) string {
	h := crc64nvme.New()
	h.Write(payload)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	return base58.Encode(sum[:])
}

// Encode compresses payload into an ArtifactRef.
func Encode(payload []byte) (*models.ArtifactRef, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	return &models.ArtifactRef{
		Checksum: Checksum(payload),
		Size:     int64(len(payload)),
		Data:     encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2)),
	}, nil
}

// Decode decompresses ref and verifies its size and checksum.
func Decode(ref *models.ArtifactRef) ([]byte, error) {
	payload, err := decoder.DecodeAll(ref.Data, make([]byte, 0, ref.Size))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress artifact: %w", err)
	}

	if int64(len(payload)) != ref.Size {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrChecksumMismatch, ref.Size, len(payload))
	}
	if sum := Checksum(payload); sum != ref.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, ref.Checksum, sum)
	}

	return payload, nil
}
