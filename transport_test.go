package mtproto

import (
	"bytes"
	"testing"
)

func TestAbridgedCodec_RoundTrip(t *testing.T) {
	var c abridgedCodec
	cases := [][]byte{
		make([]byte, 4),
		make([]byte, 64),
		make([]byte, 127*4), // exercises the 0x7f long-form boundary
		make([]byte, 508),
	}
	for _, payload := range cases {
		for i := range payload {
			payload[i] = byte(i)
		}
		var buf bytes.Buffer
		if err := c.writeFrame(&buf, payload); err != nil {
			t.Fatalf("writeFrame(%d bytes) failed: %v", len(payload), err)
		}
		got, err := c.readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame(%d bytes) failed: %v", len(payload), err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch for %d-byte payload", len(payload))
		}
	}
}

func TestAbridgedCodec_RejectsUnalignedPayload(t *testing.T) {
	var c abridgedCodec
	var buf bytes.Buffer
	if err := c.writeFrame(&buf, make([]byte, 5)); err == nil {
		t.Fatal("expected writeFrame to reject a payload not a multiple of 4 bytes")
	}
}

func TestIntermediateCodec_RoundTrip(t *testing.T) {
	var c intermediateCodec
	payload := []byte("an intermediate-framed payload, any length at all")
	var buf bytes.Buffer
	if err := c.writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	got, err := c.readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("intermediate codec round trip mismatch")
	}
}

func TestFullCodec_RoundTrip(t *testing.T) {
	sender := &fullCodec{}
	receiver := &fullCodec{}
	payload := []byte("a fully-framed and checksummed payload")

	var buf bytes.Buffer
	if err := sender.writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	got, err := receiver.readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("full codec round trip mismatch")
	}
	if sender.sendSeq != 1 {
		t.Fatalf("expected sendSeq to advance to 1, got %d", sender.sendSeq)
	}
	if receiver.recvSeq != 1 {
		t.Fatalf("expected recvSeq to advance to 1, got %d", receiver.recvSeq)
	}
}

func TestFullCodec_RejectsCorruptedChecksum(t *testing.T) {
	sender := &fullCodec{}
	var buf bytes.Buffer
	if err := sender.writeFrame(&buf, []byte("payload")); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff

	receiver := &fullCodec{}
	if _, err := receiver.readFrame(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected a corrupted checksum to be rejected")
	}
}

func TestObfuscatedHandshake_AvoidsForbiddenPrefixes(t *testing.T) {
	for i := 0; i < 50; i++ {
		var buf bytes.Buffer
		enc, dec, err := obfuscatedHandshake(&buf)
		if err != nil {
			t.Fatalf("obfuscatedHandshake failed: %v", err)
		}
		if enc == nil || dec == nil {
			t.Fatal("expected non-nil cipher streams")
		}
		sent := buf.Bytes()
		if len(sent) != 64 {
			t.Fatalf("expected a 64-byte handshake block, got %d", len(sent))
		}
		if sent[0] == 0xef {
			t.Fatal("handshake block must not start with the abridged marker byte")
		}
		if isObfuscatedAntiKeyword(sent[:4]) {
			t.Fatal("handshake block must not start with a forbidden prefix")
		}
	}
}

func TestObfuscatedConn_EncryptsOnWire(t *testing.T) {
	var wire bytes.Buffer
	conn, err := newObfuscatedConn(&recordingReadWriter{w: &wire})
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	wire.Reset() // drop the 64-byte handshake header, only the payload matters below

	plain := []byte("obfuscated transport payload, sent in the clear only to this test")
	if _, err := conn.Write(plain); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if bytes.Contains(wire.Bytes(), plain) {
		t.Fatal("plaintext payload must not appear unencrypted on the wire")
	}
	if wire.Len() != len(plain) {
		t.Fatalf("expected ciphertext length to match plaintext length, got %d vs %d", wire.Len(), len(plain))
	}
}

// recordingReadWriter adapts a single *bytes.Buffer as the io.ReadWriter
// obfuscatedHandshake/obfuscatedConn expect, write-only for this test's
// purposes since only the outbound stream's ciphertext is under test.
type recordingReadWriter struct {
	w *bytes.Buffer
}

func (rw *recordingReadWriter) Write(b []byte) (int, error) { return rw.w.Write(b) }
func (rw *recordingReadWriter) Read(b []byte) (int, error)  { return rw.w.Read(b) }
