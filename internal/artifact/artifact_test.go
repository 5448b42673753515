package artifact

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"intent":"greet","weights":[0.1,0.2,0.3]}`), 200)

	ref, err := Encode(payload)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), ref.Size)
	require.Equal(t, Checksum(payload), ref.Checksum)
	require.Less(t, len(ref.Data), len(payload))

	got, err := Decode(ref)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestEncode_Empty(t *testing.T) {
	_, err := Encode(nil)
	require.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDecode_ChecksumMismatch(t *testing.T) {
	ref, err := Encode([]byte("model-a"))
	require.NoError(t, err)

	ref.Checksum = Checksum([]byte("model-b"))
	_, err = Decode(ref)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDecode_Corrupt(t *testing.T) {
	ref, err := Encode([]byte("model-a"))
	require.NoError(t, err)

	ref.Data = []byte("not zstd")
	_, err = Decode(ref)
	require.Error(t, err)
}

func TestChecksum(t *testing.T) {
	require.Equal(t, Checksum([]byte("abc")), Checksum([]byte("abc")))
	require.NotEqual(t, Checksum([]byte("abc")), Checksum([]byte("abd")))
	require.NotEmpty(t, Checksum(nil))
}
