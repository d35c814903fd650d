package packet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/errs"
)

// framePackets length-prefixes each payload into one contiguous stream.
func framePackets(payloads ...[]byte) []byte {
	var out []byte
	for _, p := range payloads {
		out = encoding.AppendUvarint64(out, uint64(len(p)))
		out = append(out, p...)
	}

	return out
}

func TestBufferManagerCompletePackets(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4}
	c := make([]byte, 300)
	for i := range c {
		c[i] = byte(i)
	}

	bm := NewBufferManager()
	bm.Fill(framePackets(a, b, c))

	for _, want := range [][]byte{a, b, c} {
		payload, status, needed, err := bm.Next()
		require.NoError(t, err)
		require.Equal(t, Complete, status)
		require.Zero(t, needed)
		require.Equal(t, want, payload)
	}

	_, status, _, err := bm.Next()
	require.NoError(t, err)
	require.Equal(t, NeedMoreForLengthPrefix, status)
	require.Zero(t, bm.Buffered())
}

func TestBufferManagerEveryOffsetSplit(t *testing.T) {
	// A multi-byte length prefix plus payloads that straddle the split
	// point, whichever byte the boundary falls on.
	small := []byte("hello")
	big := make([]byte, 200)
	for i := range big {
		big[i] = byte(i * 7)
	}
	stream := framePackets(small, big, small)

	for cut := 1; cut < len(stream); cut++ {
		bm := NewBufferManager()
		bm.Fill(stream[:cut])

		var got [][]byte
		fed := false
		for len(got) < 3 {
			payload, status, needed, err := bm.Next()
			require.NoError(t, err, "cut=%d", cut)
			if status == Complete {
				got = append(got, append([]byte(nil), payload...))
				continue
			}
			require.False(t, fed, "cut=%d: asked for more data twice", cut)
			if status == NeedMoreBytes {
				require.Positive(t, needed, "cut=%d", cut)
				require.LessOrEqual(t, needed, len(stream)-cut, "cut=%d", cut)
			}
			bm.Fill(stream[cut:])
			fed = true
		}

		require.Equal(t, small, got[0], "cut=%d", cut)
		require.Equal(t, big, got[1], "cut=%d", cut)
		require.Equal(t, small, got[2], "cut=%d", cut)
		require.Zero(t, bm.Buffered(), "cut=%d", cut)
	}
}

func TestBufferManagerSplitLengthPrefix(t *testing.T) {
	payload := make([]byte, 200)
	stream := framePackets(payload)
	// 200 needs a two-byte varint prefix; cut between its bytes.
	bm := NewBufferManager()
	bm.Fill(stream[:1])

	_, status, _, err := bm.Next()
	require.NoError(t, err)
	require.Equal(t, NeedMoreForLengthPrefix, status)
	require.Equal(t, 1, bm.Buffered())

	bm.Fill(stream[1:])
	got, status, _, err := bm.Next()
	require.NoError(t, err)
	require.Equal(t, Complete, status)
	require.Equal(t, payload, got)
}

func TestBufferManagerNeedMoreBytesReportsExactCount(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	stream := framePackets(payload)

	bm := NewBufferManager()
	bm.Fill(stream[:4]) // prefix + 3 payload bytes

	_, status, needed, err := bm.Next()
	require.NoError(t, err)
	require.Equal(t, NeedMoreBytes, status)
	require.Equal(t, 5, needed)
}

func TestBufferManagerZeroLengthIsCorrupt(t *testing.T) {
	bm := NewBufferManager()
	bm.Fill([]byte{0x00})

	_, _, _, err := bm.Next()
	require.ErrorIs(t, err, errs.ErrInvalidPacketLength)
}

func TestBufferManagerOversizedLengthIsCorrupt(t *testing.T) {
	bm := NewBufferManager()
	bm.Fill(encoding.AppendUvarint64(nil, DefaultMaxPacketSize+1))

	_, _, _, err := bm.Next()
	require.ErrorIs(t, err, errs.ErrPacketTooLarge)
}

func TestBufferManagerGrowsForOversizedCarry(t *testing.T) {
	// A single packet larger than the default buffer forces growth when
	// its chunks accumulate.
	payload := make([]byte, DefaultBufferSize+5000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	stream := framePackets(payload)

	bm := NewBufferManager()
	half := len(stream) / 2
	bm.Fill(stream[:half])

	_, status, needed, err := bm.Next()
	require.NoError(t, err)
	require.Equal(t, NeedMoreBytes, status)
	require.Equal(t, len(stream)-half, needed)

	bm.Fill(stream[half:])
	got, status, _, err := bm.Next()
	require.NoError(t, err)
	require.Equal(t, Complete, status)
	require.Equal(t, payload, got)
}

func TestReadStatusString(t *testing.T) {
	require.Equal(t, "Complete", Complete.String())
	require.Equal(t, "NeedMoreBytes", NeedMoreBytes.String())
	require.Equal(t, "NeedMoreForLengthPrefix", NeedMoreForLengthPrefix.String())
	require.Equal(t, "Unknown", ReadStatus(99).String())
}
