package mtproto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func TestIGE_RoundTrip(t *testing.T) {
	key := randomBytes(32)
	iv := randomBytes(32)
	plain := randomBytes(16 * 5)

	cipherText := encryptIGE(plain, key, iv)
	if len(cipherText) != len(plain) {
		t.Fatalf("ciphertext length mismatch: got %d, want %d", len(cipherText), len(plain))
	}
	got := decryptIGE(cipherText, key, iv)
	if !bytes.Equal(got, plain) {
		t.Fatal("IGE decrypt(encrypt(x)) != x")
	}
}

func TestIGE_PadsToBlockBoundary(t *testing.T) {
	key := randomBytes(32)
	iv := randomBytes(32)
	plain := randomBytes(17) // not a multiple of 16

	cipherText := encryptIGE(plain, key, iv)
	if len(cipherText)%16 != 0 {
		t.Fatalf("expected padded ciphertext length to be a multiple of 16, got %d", len(cipherText))
	}
}

func TestCalcKey_ClientServerOffsetsDiffer(t *testing.T) {
	authKey := randomBytes(256)
	msgKey := randomBytes(16)

	clientKey, clientIV := calcKey(authKey, msgKey, true)
	serverKey, serverIV := calcKey(authKey, msgKey, false)

	if bytes.Equal(clientKey, serverKey) {
		t.Fatal("expected client and server key derivations to differ")
	}
	if bytes.Equal(clientIV, serverIV) {
		t.Fatal("expected client and server iv derivations to differ")
	}
	if len(clientKey) != 32 || len(clientIV) != 32 {
		t.Fatalf("expected 32-byte key/iv, got %d/%d", len(clientKey), len(clientIV))
	}
}

func TestMsgKeyFromPlain_Deterministic(t *testing.T) {
	authKey := randomBytes(256)
	data := randomBytes(128)

	a := msgKeyFromPlain(authKey, data)
	b := msgKeyFromPlain(authKey, data)
	if !bytes.Equal(a, b) {
		t.Fatal("msgKeyFromPlain must be deterministic for the same input")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-byte msg_key, got %d", len(a))
	}
}

func TestAuthKeyID_Length(t *testing.T) {
	id := authKeyID(randomBytes(256))
	if len(id) != 8 {
		t.Fatalf("expected 8-byte key id (low 64 bits of sha1), got %d", len(id))
	}
}

func TestEncryptUnpackMessage_RoundTrip(t *testing.T) {
	keyBytes := randomBytes(256)
	key := &AuthKey{Key: keyBytes, KeyID: authKeyID(keyBytes)}
	sessionID := int64(123456789)
	body := []byte("hello from the wire")

	frame, err := encryptPacket(key, sessionID, 42, 1000, 1, body)
	if err != nil {
		t.Fatalf("encryptPacket failed: %v", err)
	}

	salt, session, msgID, seqNo, decoded, err := unpackMessage(key, sessionID, frame)
	if err != nil {
		t.Fatalf("unpackMessage failed: %v", err)
	}
	if salt != 42 {
		t.Errorf("salt mismatch: got %d, want 42", salt)
	}
	if session != sessionID {
		t.Errorf("session mismatch: got %d, want %d", session, sessionID)
	}
	if msgID != 1000 {
		t.Errorf("msg_id mismatch: got %d, want 1000", msgID)
	}
	if seqNo != 1 {
		t.Errorf("seq_no mismatch: got %d, want 1", seqNo)
	}
	if !bytes.Equal(decoded, body) {
		t.Fatalf("body mismatch: got %q, want %q", decoded, body)
	}
}

func TestUnpackMessage_RejectsWrongKeyID(t *testing.T) {
	key := &AuthKey{Key: randomBytes(256), KeyID: randomBytes(8)}
	otherKey := &AuthKey{Key: randomBytes(256), KeyID: randomBytes(8)}

	frame, err := encryptPacket(key, 1, 1, 1, 1, []byte("x"))
	if err != nil {
		t.Fatalf("encryptPacket failed: %v", err)
	}
	if _, _, _, _, _, err := unpackMessage(otherKey, 1, frame); err == nil {
		t.Fatal("expected auth_key_id mismatch to be rejected")
	}
}

func TestUnpackMessage_RejectsWrongSession(t *testing.T) {
	keyBytes := randomBytes(256)
	key := &AuthKey{Key: keyBytes, KeyID: authKeyID(keyBytes)}

	frame, err := encryptPacket(key, 1, 1, 1, 1, []byte("x"))
	if err != nil {
		t.Fatalf("encryptPacket failed: %v", err)
	}
	if _, _, _, _, _, err := unpackMessage(key, 2, frame); err == nil {
		t.Fatal("expected session_id mismatch to be rejected")
	}
}
