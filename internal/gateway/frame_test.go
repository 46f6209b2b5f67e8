package gateway

import (
	"bytes"
	"errors"
	"testing"
)

func TestEscapeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"plain", []byte("hello world")},
		{"start byte", []byte{0x42}},
		{"end byte", []byte{0x43}},
		{"escape byte", []byte{0x45}},
		{"all control bytes", []byte{0x42, 0x43, 0x45, 0x42}},
		{"control bytes embedded", []byte{0x00, 0x42, 0xff, 0x45, 0x10, 0x43}},
		{"full byte range", func() []byte {
			b := make([]byte, 256)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped := Escape(tt.payload)
			for _, b := range escaped[:] {
				if b == frameStart || b == frameEnd {
					t.Fatalf("Escape() left control byte %#x in output", b)
				}
			}
			got, err := Unescape(escaped)
			if err != nil {
				t.Fatalf("Unescape() unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("round trip = %x, want %x", got, tt.payload)
			}
		})
	}
}

func TestUnescapeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"dangling escape", []byte{0x01, 0x45}},
		{"escape of non-control byte", []byte{0x45, 0xff}},
		{"raw start byte", []byte{0x01, 0x42, 0x02}},
		{"raw end byte", []byte{0x43}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unescape(tt.data); !errors.Is(err, ErrFraming) {
				t.Errorf("Unescape(%x) error = %v, want ErrFraming", tt.data, err)
			}
		})
	}
}

func TestReadPacket(t *testing.T) {
	payload := []byte{0x01, 0x42, 0x43, 0x45, 0x02}
	framed := Frame(Escape(payload))
	tail := []byte{frameStart, 0x99}

	buf := append(append([]byte{}, framed...), tail...)
	packet, rest, err := ReadPacket(buf)
	if err != nil {
		t.Fatalf("ReadPacket() unexpected error: %v", err)
	}
	if !bytes.Equal(packet, Escape(payload)) {
		t.Errorf("packet = %x, want %x", packet, Escape(payload))
	}
	if !bytes.Equal(rest, tail) {
		t.Errorf("rest = %x, want %x", rest, tail)
	}

	decoded, err := Unescape(packet)
	if err != nil {
		t.Fatalf("Unescape(packet) unexpected error: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("decoded = %x, want %x", decoded, payload)
	}
}

func TestReadPacketIncomplete(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"start only", []byte{frameStart}},
		{"unterminated", []byte{frameStart, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, rest, err := ReadPacket(tt.buf)
			if err != nil {
				t.Fatalf("ReadPacket() unexpected error: %v", err)
			}
			if packet != nil {
				t.Errorf("packet = %x, want nil", packet)
			}
			if !bytes.Equal(rest, tt.buf) {
				t.Errorf("rest = %x, want buffer unchanged", rest)
			}
		})
	}
}

func TestReadPacketStrayByte(t *testing.T) {
	if _, _, err := ReadPacket([]byte{0x00, frameStart, frameEnd}); !errors.Is(err, ErrFraming) {
		t.Errorf("ReadPacket() error = %v, want ErrFraming", err)
	}
}
