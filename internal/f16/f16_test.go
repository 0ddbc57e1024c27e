package f16

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBlob assembles a blob from raw half-precision words
func buildBlob(count, dim int, words []uint16) []byte {
	blob := make([]byte, 8+len(words)*2)
	binary.LittleEndian.PutUint32(blob[0:4], uint32(count))
	binary.LittleEndian.PutUint32(blob[4:8], uint32(dim))
	for i, w := range words {
		binary.LittleEndian.PutUint16(blob[8+i*2:], w)
	}
	return blob
}

func TestDecodeKnownValues(t *testing.T) {
	testCases := []struct {
		name string
		word uint16
		want float64
	}{
		{"one", 0x3C00, 1.0},
		{"zero", 0x0000, 0.0},
		{"negative two", 0xC000, -2.0},
		{"half", 0x3800, 0.5},
		{"largest normal", 0x7BFF, 65504.0},
		{"smallest normal", 0x0400, math.Pow(2, -14)},
		{"smallest subnormal", 0x0001, math.Pow(2, -24)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vectors, err := Decode(buildBlob(1, 1, []uint16{tc.word}))
			require.NoError(t, err)
			require.Len(t, vectors, 1)
			require.Len(t, vectors[0], 1)
			assert.InDelta(t, tc.want, float64(vectors[0][0]), 1e-3)
		})
	}
}

func TestDecodeSpecialValues(t *testing.T) {
	vectors, err := Decode(buildBlob(1, 4, []uint16{
		0x7C00, // +Inf
		0xFC00, // -Inf
		0x7E00, // NaN
		0x8000, // -0
	}))
	require.NoError(t, err)

	vec := vectors[0]
	assert.True(t, math.IsInf(float64(vec[0]), 1))
	assert.True(t, math.IsInf(float64(vec[1]), -1))
	assert.True(t, math.IsNaN(float64(vec[2])))
	assert.Equal(t, uint32(0x80000000), math.Float32bits(vec[3]))
}

func TestDecodeTruncatedHeader(t *testing.T) {
	for _, size := range []int{0, 1, 7} {
		_, err := Decode(make([]byte, size))
		assert.ErrorIs(t, err, ErrTruncatedHeader)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	blob := buildBlob(2, 3, make([]uint16, 6))
	_, err := Decode(blob[:len(blob)-1])
	assert.ErrorIs(t, err, ErrTruncatedPayload)

	// Header-only blob announcing a payload
	_, err = Decode(buildBlob(5, 8, nil))
	assert.ErrorIs(t, err, ErrTruncatedPayload)
}

func TestPeekHeader(t *testing.T) {
	blob := buildBlob(7, 3, make([]uint16, 21))

	count, err := PeekCount(blob)
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	dim, err := PeekDim(blob)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	_, err = PeekCount([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedHeader)
	_, err = PeekDim([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedHeader)
}

// Every half-precision word that decodes to a finite value must survive an
// encode round trip bit-for-bit
func TestHalfRoundTrip(t *testing.T) {
	for h := 0; h <= 0xFFFF; h++ {
		word := uint16(h)
		f := HalfToFloat(word)
		if math.IsNaN(float64(f)) {
			// NaN payloads need not round-trip exactly, but must stay NaN
			assert.True(t, math.IsNaN(float64(HalfToFloat(FloatToHalf(f)))))
			continue
		}
		// -0 subnormal edge included
		assert.Equal(t, word, FloatToHalf(f), "word 0x%04X (%v)", word, f)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{1.0, -1.0, 0.5, 0.25},
		{0, 2048, -0.125, 0.0009765625},
	}

	decoded, err := Decode(Encode(vectors))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range vectors {
		for j := range vectors[i] {
			assert.Equal(t, vectors[i][j], decoded[i][j])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	blob := Encode(nil)
	require.Len(t, blob, 8)

	count, err := PeekCount(blob)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	vectors, err := Decode(blob)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEncodeOverflowSaturates(t *testing.T) {
	decoded, err := Decode(Encode([][]float32{{1e9, -1e9}}))
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(decoded[0][0]), 1))
	assert.True(t, math.IsInf(float64(decoded[0][1]), -1))
}
