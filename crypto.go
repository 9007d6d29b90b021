package mtproto

import (
	"crypto/aes"
	"crypto/sha1"
	"crypto/sha256"
	"math/rand"
)

// encryptIGE and decryptIGE implement AES in Infinite Garble Extension
// mode, MTProto's chosen block-cipher mode. Go's
// standard library has no IGE mode (it isn't a NIST mode, and nothing in
// the reference pack ships a Go IGE implementation either), so it is
// built directly on crypto/aes's single-block cipher the way the original
// implementation builds it on pyaes when its optional C accelerator is
// unavailable.
func encryptIGE(plainText, key, iv []byte) []byte {
	if rem := len(plainText) % 16; rem != 0 {
		pad := make([]byte, 16-rem)
		_, _ = rand.Read(pad)
		plainText = append(plainText, pad...)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err) // key is always exactly 32 bytes from calcKey; failure here is a programmer error
	}

	iv1 := append([]byte(nil), iv[:16]...)
	iv2 := append([]byte(nil), iv[16:32]...)

	cipherText := make([]byte, len(plainText))
	var tmp [16]byte
	for off := 0; off < len(plainText); off += 16 {
		plainBlock := plainText[off : off+16]
		for i := 0; i < 16; i++ {
			tmp[i] = plainBlock[i] ^ iv1[i]
		}
		block.Encrypt(cipherText[off:off+16], tmp[:])
		for i := 0; i < 16; i++ {
			cipherText[off+i] ^= iv2[i]
		}
		iv1 = cipherText[off : off+16]
		iv2 = plainBlock
	}
	return cipherText
}

func decryptIGE(cipherText, key, iv []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}

	iv1 := append([]byte(nil), iv[:16]...)
	iv2 := append([]byte(nil), iv[16:32]...)

	plainText := make([]byte, len(cipherText))
	var tmp [16]byte
	for off := 0; off < len(cipherText); off += 16 {
		cipherBlock := cipherText[off : off+16]
		for i := 0; i < 16; i++ {
			tmp[i] = cipherBlock[i] ^ iv2[i]
		}
		block.Decrypt(plainText[off:off+16], tmp[:])
		for i := 0; i < 16; i++ {
			plainText[off+i] ^= iv1[i]
		}
		iv1 = cipherBlock
		iv2 = plainText[off : off+16]
	}
	return plainText
}

// calcKey derives the AES-256 key and IV from auth_key and msg_key per the
// MTProto 2.0 key-derivation function : offset 0 when the
// engine is the sender (client encrypting), offset 8 when it is the
// receiver (decrypting the server's reply).
func calcKey(authKey, msgKey []byte, client bool) (key, iv []byte) {
	x := 0
	if !client {
		x = 8
	}
	sha256a := sha256.Sum256(append(append([]byte{}, msgKey...), authKey[x:x+36]...))
	sha256b := sha256.Sum256(append(append([]byte{}, authKey[x+40:x+76]...), msgKey...))

	key = make([]byte, 32)
	copy(key[0:8], sha256a[0:8])
	copy(key[8:24], sha256b[8:24])
	copy(key[24:32], sha256a[24:32])

	iv = make([]byte, 32)
	copy(iv[0:8], sha256b[0:8])
	copy(iv[8:24], sha256a[8:24])
	copy(iv[24:32], sha256b[24:32])
	return key, iv
}

// msgKeyFromPlain computes the MTProto 2.0 msg_key for a client-originated
// (send-side) plaintext+padding buffer: SHA256(substr(auth_key,88,32) ||
// data) truncated to bytes [8:24].
func msgKeyFromPlain(authKey, dataWithPadding []byte) []byte {
	h := sha256.Sum256(append(append([]byte{}, authKey[88:88+32]...), dataWithPadding...))
	return append([]byte{}, h[8:24]...)
}

// msgKeyFromServerPlain computes the receive-side equivalent, using the
// auth_key slice at offset 96 per the security guidelines' msg_key check.
func msgKeyFromServerPlain(authKey, data []byte) []byte {
	h := sha256.Sum256(append(append([]byte{}, authKey[96:96+32]...), data...))
	return append([]byte{}, h[8:24]...)
}

// authKeyID returns the low 64 bits of sha1(authKey), MTProto's key
// fingerprint used to tag every encrypted packet (the protocol's rules edge case:
// "only lower 64 bits of SHA1 used").
func authKeyID(key []byte) []byte {
	h := sha1.Sum(key)
	return append([]byte{}, h[12:20]...)
}

// unpackMessage reverses an encrypted packet produced by encryptPacket:
// verifies the auth_key_id, derives the server-side (offset-8) key,
// decrypts, checks the session_id and msg_key, and splits out the inner
// salt/session/msg_id/seq_no/body fields, matching unpack_message in the
// reference implementation (edge cases documented in errors.go's
// SecurityError taxonomy).
func unpackMessage(key *AuthKey, sessionID int64, raw []byte) (salt, session, msgID int64, seqNo int32, body []byte, err error) {
	if len(raw) < 24 {
		return 0, 0, 0, 0, nil, NewSecurityError("encrypted packet too short")
	}
	if string(raw[0:8]) != string(key.KeyID) {
		return 0, 0, 0, 0, nil, NewSecurityError("auth_key_id mismatch")
	}
	msgKey := raw[8:24]
	aesKey, aesIV := calcKey(key.Key, msgKey, false)
	data := decryptIGE(raw[24:], aesKey, aesIV)
	if len(data) < 32 {
		return 0, 0, 0, 0, nil, NewSecurityError("decrypted packet too short")
	}

	d := NewDecodeBuf(data)
	salt = d.Long()
	session = d.Long()
	if session != sessionID {
		return 0, 0, 0, 0, nil, NewSecurityError("session_id mismatch")
	}
	msgID = d.Long()
	seqNo = d.Int()
	msgLen := d.Int()
	if d.err != nil || msgLen < 0 || int(msgLen) > len(data)-d.off {
		return 0, 0, 0, 0, nil, NewSecurityError("malformed message envelope")
	}
	body = d.Bytes(int(msgLen))

	if string(msgKeyFromServerPlain(key.Key, data)) != string(msgKey) {
		return 0, 0, 0, 0, nil, NewSecurityError("msg_key mismatch")
	}
	return salt, session, msgID, seqNo, body, nil
}
