package rtcm3

import (
	"bytes"

	"github.com/fossettahq/rtcm-caster/pkg/crc24q"
)

type state int

const (
	seeking state = iota
	inFrame
)

// compactThreshold bounds how large the backing array behind buf is
// allowed to grow before Framer copies it down to a fresh, minimally
// sized slice. Ordinary traffic never approaches this; it exists so a
// caller that feeds very large chunks at once can't pin arbitrarily
// large backing arrays in memory indefinitely.
const compactThreshold = 4096

// Framer is a stateful, pushable consumer of a byte stream that emits
// validated RTCM3 frames and silently discards everything else: leading
// garbage, NMEA text, short frames, frames that fail CRC24Q. It is safe
// to feed one byte at a time or in arbitrary chunks; the sequence of
// emitted frames is identical either way. A Framer is not safe for
// concurrent use; the serial reader owns it exclusively.
type Framer struct {
	state state
	buf   []byte
}

// NewFramer returns a Framer in its initial SEEKING state.
func NewFramer() *Framer {
	return &Framer{state: seeking}
}

// Feed appends data to the framer's internal buffer and extracts every
// complete, CRC-valid frame it can. It never blocks and never retains
// more than MaxFrameLen bytes once it returns.
func (f *Framer) Feed(data []byte) []Frame {
	f.buf = append(f.buf, data...)

	var frames []Frame
	for {
		switch f.state {
		case seeking:
			idx := bytes.IndexByte(f.buf, preamble)
			if idx == -1 {
				f.buf = f.buf[:0]
				return frames
			}
			f.buf = f.buf[idx:]
			f.state = inFrame

		case inFrame:
			if len(f.buf) < headerLen {
				f.compact()
				return frames
			}

			total := payloadLen(f.buf) + headerLen + trailerLen
			if len(f.buf) < total {
				f.compact()
				return frames
			}

			candidate := f.buf[:total]
			if crc24q.Checksum(candidate[:total-trailerLen]) == trailer(candidate) {
				frames = append(frames, Frame{
					Data:        append([]byte(nil), candidate...),
					MessageType: messageType(candidate),
				})
				f.buf = f.buf[total:]
				f.state = seeking
			} else {
				f.buf = f.buf[1:]
				f.state = seeking
			}
		}
	}
}

// Reset discards any in-progress, unterminated frame and returns the
// framer to SEEKING. Used at shutdown: a partial frame is never emitted.
func (f *Framer) Reset() {
	f.buf = nil
	f.state = seeking
}

func (f *Framer) compact() {
	if cap(f.buf) <= compactThreshold {
		return
	}
	f.buf = append([]byte(nil), f.buf...)
}

func trailer(frame []byte) uint32 {
	t := frame[len(frame)-trailerLen:]
	return uint32(t[0])<<16 | uint32(t[1])<<8 | uint32(t[2])
}
