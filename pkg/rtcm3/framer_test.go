package rtcm3

import (
	"testing"

	"github.com/fossettahq/rtcm-caster/pkg/crc24q"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(payload []byte) []byte {
	header := []byte{preamble, byte(len(payload) >> 8 & 0x03), byte(len(payload))}
	return crc24q.Append(append(header, payload...))
}

func corrupt(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-1] ^= 0xFF
	return out
}

func TestFramerEmitsValidFrame(t *testing.T) {
	frame := buildFrame([]byte{0x3E, 0xD0, 0x00})
	f := NewFramer()

	got := f.Feed(frame)

	require.Len(t, got, 1)
	assert.Equal(t, frame, got[0].Data)
}

func TestFramerZeroLengthPayloadAccepted(t *testing.T) {
	frame := buildFrame(nil)
	f := NewFramer()

	got := f.Feed(frame)

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].PayloadLen())
}

func TestFramerMaxPayloadAccepted(t *testing.T) {
	payload := make([]byte, MaxPayloadLen)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := buildFrame(payload)
	f := NewFramer()

	got := f.Feed(frame)

	require.Len(t, got, 1)
	assert.Equal(t, MaxPayloadLen, got[0].PayloadLen())
}

func TestFramerSkipsGarbageBeforeBetweenAndAfter(t *testing.T) {
	f1 := buildFrame([]byte{0x01, 0x02, 0x03})
	f2 := buildFrame([]byte{0x04, 0x05, 0x06})

	stream := append([]byte("garbage before"), f1...)
	stream = append(stream, []byte("$GPGGA,noise*00\r\n")...)
	stream = append(stream, f2...)
	stream = append(stream, []byte("trailing garbage")...)

	f := NewFramer()
	got := f.Feed(stream)

	require.Len(t, got, 2)
	assert.Equal(t, f1, got[0].Data)
	assert.Equal(t, f2, got[1].Data)
}

func TestFramerByteAtATimeMatchesBulkFeed(t *testing.T) {
	f1 := buildFrame([]byte{0xAA, 0xBB})
	f2 := buildFrame([]byte{0xCC, 0xDD, 0xEE})
	stream := append(append([]byte("xx"), f1...), append([]byte("yy"), f2...)...)

	bulk := NewFramer().Feed(stream)

	byteAtATime := NewFramer()
	var sequential []Frame
	for _, b := range stream {
		sequential = append(sequential, byteAtATime.Feed([]byte{b})...)
	}

	require.Len(t, bulk, 2)
	require.Len(t, sequential, 2)
	assert.Equal(t, bulk[0].Data, sequential[0].Data)
	assert.Equal(t, bulk[1].Data, sequential[1].Data)
}

func TestFramerResyncsOnCRCFailureAndPrefersLeftmostNextPreamble(t *testing.T) {
	good := buildFrame([]byte{0x01})
	bad := corrupt(buildFrame([]byte{0x02, 0x02}))

	stream := append(bad, good...)

	f := NewFramer()
	got := f.Feed(stream)

	require.Len(t, got, 1)
	assert.Equal(t, good, got[0].Data)
}

func TestFramerEmitsNothingForRandomNoiseAndStaysBounded(t *testing.T) {
	noise := make([]byte, 5000)
	for i := range noise {
		noise[i] = byte(i % 256)
		if noise[i] == preamble {
			noise[i] = 0
		}
	}

	f := NewFramer()
	got := f.Feed(noise)

	assert.Empty(t, got)
	assert.LessOrEqual(t, len(f.buf), MaxFrameLen)
}

func TestFramerDoesNotEmitPartialFrameAcrossFeeds(t *testing.T) {
	frame := buildFrame([]byte{0x11, 0x22, 0x33})
	f := NewFramer()

	got := f.Feed(frame[:len(frame)-2])
	assert.Empty(t, got)

	got = f.Feed(frame[len(frame)-2:])
	require.Len(t, got, 1)
	assert.Equal(t, frame, got[0].Data)
}

func TestFramerResetDiscardsInProgressFrame(t *testing.T) {
	frame := buildFrame([]byte{0x11, 0x22, 0x33})
	f := NewFramer()

	f.Feed(frame[:len(frame)-1])
	f.Reset()

	got := f.Feed(frame[len(frame)-1:])
	assert.Empty(t, got)
}

func TestMessageTypeExtraction(t *testing.T) {
	// message type 1005 packed into the first 12 bits of the payload.
	payload := []byte{0x3E, 0xD0, 0x00}
	frame := buildFrame(payload)

	f := NewFramer()
	got := f.Feed(frame)

	require.Len(t, got, 1)
	assert.Equal(t, 1005, got[0].MessageType)
}
