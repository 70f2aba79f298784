package ledserial

import (
	"bytes"
	"errors"
	"hash/crc32"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIncomingPackets(t *testing.T) {
	ctx := ReadContext{NumLEDs: 2}

	packets := []IncomingPacket{
		InitializePacket{NumLEDs: 2},
		ClearPacket{},
		SetPacket{Pix: []uint8{0xFF, 0, 0, 0, 0, 0xFF}},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		if err := WriteIncomingPacket(&buf, p); err != nil {
			t.Fatalf("failed to write %s packet: %v", p.Type(), err)
		}
	}

	for _, want := range packets {
		got, err := ReadIncomingPacket(&buf, ctx)
		if err != nil {
			t.Fatalf("failed to read %s packet: %v", want.Type(), err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected packet (-want +got):\n%s", diff)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("%d trailing bytes", buf.Len())
	}
}

func TestOutgoingPackets(t *testing.T) {
	packets := []OutgoingPacket{
		ErrorPacket{Message: "invalid number of pixels: 3"},
		PanicPacket{},
		LogPacket{Message: "received packet: set"},
		AckPacket{IncomingPacketType: TypeSetPacket},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		if err := WriteOutgoingPacket(&buf, p); err != nil {
			t.Fatalf("failed to write %s packet: %v", p.Type(), err)
		}
	}

	for _, want := range packets {
		got, err := ReadOutgoingPacket(&buf)
		if err != nil {
			t.Fatalf("failed to read %s packet: %v", want.Type(), err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected packet (-want +got):\n%s", diff)
		}
	}
}

func TestSetPacketLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIncomingPacket(&buf, SetPacket{Pix: []uint8{1, 2, 3}}); err != nil {
		t.Fatal("failed to write packet:", err)
	}

	b := buf.Bytes()
	if len(b) != 1+3+4 {
		t.Fatalf("packet is %d bytes, want 8", len(b))
	}
	if b[0] != byte(TypeSetPacket) {
		t.Fatalf("packet type byte is %d", b[0])
	}
	if sum := Endianness.Uint32(b[4:]); sum != crc32.ChecksumIEEE(b[:4]) {
		t.Fatalf("checksum %08x does not match payload", sum)
	}
}

func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutgoingPacket(&buf, LogPacket{Message: "hello"}); err != nil {
		t.Fatal("failed to write packet:", err)
	}

	b := buf.Bytes()
	b[len(b)-5] ^= 0xFF // corrupt the last message byte

	if _, err := ReadOutgoingPacket(bytes.NewReader(b)); err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestUnknownPacket(t *testing.T) {
	if _, err := ReadIncomingPacket(bytes.NewReader([]byte{0x7F}), ReadContext{}); err == nil {
		t.Fatal("expected error for unknown incoming packet")
	}
	if _, err := ReadOutgoingPacket(bytes.NewReader([]byte{0x7F})); err == nil {
		t.Fatal("expected error for unknown outgoing packet")
	}
}

func TestShortRead(t *testing.T) {
	_, err := ReadOutgoingPacket(bytes.NewReader(nil))
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("error %v does not wrap io.EOF", err)
	}
}
