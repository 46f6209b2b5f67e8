package gateway

import "bytes"

// Frame delimiters and the escape transform.
//
// A packet on the wire is frameStart, the escaped payload, frameEnd. Any
// payload byte equal to one of the three control bytes is replaced by
// frameEscape followed by the byte XOR escapeMask, so control bytes never
// appear inside a frame.
const (
	frameStart  = 0x42
	frameEnd    = 0x43
	frameEscape = 0x45
	escapeMask  = 0x20
)

// Escape rewrites payload so that it contains no frame control bytes.
//
// The returned slice is always a fresh allocation; payload is not modified.
func Escape(payload []byte) []byte {
	out := make([]byte, 0, len(payload))
	for _, b := range payload {
		switch b {
		case frameStart, frameEnd, frameEscape:
			out = append(out, frameEscape, b^escapeMask)
		default:
			out = append(out, b)
		}
	}
	return out
}

// Unescape reverses Escape.
//
// Returns ErrFraming if the data contains a raw control byte, ends with a
// dangling escape byte, or an escape pair decodes to something other than
// a control byte.
func Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == frameStart || b == frameEnd {
			return nil, ErrFraming
		}
		if b != frameEscape {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(data) {
			return nil, ErrFraming
		}
		decoded := data[i] ^ escapeMask
		switch decoded {
		case frameStart, frameEnd, frameEscape:
			out = append(out, decoded)
		default:
			return nil, ErrFraming
		}
	}
	return out, nil
}

// Frame wraps an already-escaped payload in start and end bytes.
func Frame(escaped []byte) []byte {
	out := make([]byte, 0, len(escaped)+2)
	out = append(out, frameStart)
	out = append(out, escaped...)
	out = append(out, frameEnd)
	return out
}

// ReadPacket extracts the first complete packet from buf.
//
// On success it returns the packet interior (still escaped) and the bytes
// remaining after the end delimiter. If buf holds no complete packet yet,
// it returns a nil packet and buf unchanged so the caller can accumulate
// more input. A buffer whose first byte is not frameStart is malformed and
// yields ErrFraming.
func ReadPacket(buf []byte) (packet, rest []byte, err error) {
	if len(buf) == 0 {
		return nil, buf, nil
	}
	if buf[0] != frameStart {
		return nil, buf, ErrFraming
	}
	end := bytes.IndexByte(buf[1:], frameEnd)
	if end < 0 {
		return nil, buf, nil
	}
	return buf[1 : 1+end], buf[2+end:], nil
}
