package mtproto

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"math/big"
	"time"
)

// exchangeAuthKey drives the three-round-trip handshake that negotiates a
// fresh 2048-bit auth_key with a DC : req_pq_multi, then
// req_DH_params, then set_client_DH_params. It runs over the plaintext
// transport (no encryption, no msg_id/seq_no bookkeeping) the way
// Telethon's MtProtoPlainSender does, ported from authenticator.py's
// do_authentication.
//
// send/recv exchange raw framed payloads; sender.go supplies
// implementations bound to the live connection, keeping this function
// transport-agnostic so authkey_test.go can drive it against a fake.
func exchangeAuthKey(kr *rsaKeyring, send func([]byte) error, recv func() ([]byte, error)) (*AuthKey, int64, int64, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, 0, 0, NewExchangeError("req_pq_multi", err.Error())
	}

	req := NewEncodeBuf(20)
	req.UInt(CRC_req_pq_multi)
	req.Bytes_(nonce)
	if err := send(req.Bytes()); err != nil {
		return nil, 0, 0, NewExchangeError("req_pq_multi", err.Error())
	}

	raw, err := recv()
	if err != nil {
		return nil, 0, 0, NewExchangeError("req_pq_multi", err.Error())
	}
	d := NewDecodeBuf(raw)
	if c := d.UInt(); c != CRC_resPQ {
		return nil, 0, 0, NewExchangeError("req_pq_multi", "unexpected constructor in resPQ reply")
	}
	serverNonceFromReq := d.Bytes(16)
	if string(serverNonceFromReq) != string(nonce) {
		return nil, 0, 0, NewSecurityError("nonce mismatch in resPQ")
	}
	serverNonce := d.Bytes(16)
	pqBytes := d.StringBytes()
	fingerprintsRaw := d.VectorLong()
	if d.err != nil {
		return nil, 0, 0, NewExchangeError("req_pq_multi", d.err.Error())
	}

	pq := new(big.Int).SetBytes(pqBytes).Uint64()
	p, q := factorizePQ(pq)

	var fingerprint int64
	var found bool
	for _, fp := range fingerprintsRaw {
		if _, ok := kr.find(fp); ok {
			fingerprint = fp
			found = true
			break
		}
	}
	if !found {
		return nil, 0, 0, NewExchangeError("req_pq_multi", "no known RSA fingerprint offered by server")
	}
	rsaKey, _ := kr.find(fingerprint)

	newNonce := make([]byte, 32)
	if _, err := rand.Read(newNonce); err != nil {
		return nil, 0, 0, NewExchangeError("req_DH_params", err.Error())
	}

	pMin, qMax := p, q
	if pMin > qMax {
		pMin, qMax = qMax, pMin
	}

	inner := NewEncodeBuf(256)
	inner.UInt(CRC_p_q_inner_data)
	inner.StringBytes(pqBytes)
	inner.StringBytes(beUint64(pMin))
	inner.StringBytes(beUint64(qMax))
	inner.Bytes_(nonce)
	inner.Bytes_(serverNonce)
	inner.Bytes_(newNonce)

	encryptedData, err := rsaEncrypt(rsaKey, inner.Bytes())
	if err != nil {
		return nil, 0, 0, NewExchangeError("req_DH_params", err.Error())
	}

	dhReq := NewEncodeBuf(300)
	dhReq.UInt(CRC_req_DH_params)
	dhReq.Bytes_(nonce)
	dhReq.Bytes_(serverNonce)
	dhReq.StringBytes(beUint64(pMin))
	dhReq.StringBytes(beUint64(qMax))
	dhReq.Long(fingerprint)
	dhReq.StringBytes(encryptedData)
	if err := send(dhReq.Bytes()); err != nil {
		return nil, 0, 0, NewExchangeError("req_DH_params", err.Error())
	}

	raw2, err := recv()
	if err != nil {
		return nil, 0, 0, NewExchangeError("req_DH_params", err.Error())
	}
	d2 := NewDecodeBuf(raw2)
	switch c := d2.UInt(); c {
	case CRC_server_DH_params_fail:
		return nil, 0, 0, NewExchangeError("req_DH_params", "server_DH_params_fail")
	case CRC_server_DH_params_ok:
	default:
		_ = c
		return nil, 0, 0, NewExchangeError("req_DH_params", "unexpected constructor in server_DH_params reply")
	}
	if string(d2.Bytes(16)) != string(nonce) {
		return nil, 0, 0, NewSecurityError("nonce mismatch in server_DH_params_ok")
	}
	if string(d2.Bytes(16)) != string(serverNonce) {
		return nil, 0, 0, NewSecurityError("server_nonce mismatch in server_DH_params_ok")
	}
	encryptedAnswer := d2.StringBytes()
	if d2.err != nil {
		return nil, 0, 0, NewExchangeError("req_DH_params", d2.err.Error())
	}

	tmpAESKey, tmpAESIV := keyIVFromNonce(serverNonce, newNonce)
	plain := decryptIGE(encryptedAnswer, tmpAESKey, tmpAESIV)
	if len(plain) < 20+4 {
		return nil, 0, 0, NewSecurityError("server_DH_inner_data too short")
	}
	inner3 := NewDecodeBuf(plain[20:]) // skip sha1 hash prefix
	if c := inner3.UInt(); c != CRC_server_DH_inner_data {
		return nil, 0, 0, NewExchangeError("req_DH_params", "invalid server_DH_inner_data constructor")
	}
	if string(inner3.Bytes(16)) != string(nonce) {
		return nil, 0, 0, NewSecurityError("nonce mismatch in server_DH_inner_data")
	}
	if string(inner3.Bytes(16)) != string(serverNonce) {
		return nil, 0, 0, NewSecurityError("server_nonce mismatch in server_DH_inner_data")
	}
	g := inner3.Int()
	dhPrime := new(big.Int).SetBytes(inner3.StringBytes())
	ga := new(big.Int).SetBytes(inner3.StringBytes())
	serverTime := inner3.Int()
	if inner3.err != nil {
		return nil, 0, 0, NewExchangeError("req_DH_params", inner3.err.Error())
	}
	timeOffset := int64(serverTime) - time.Now().Unix()

	bBytes := make([]byte, 256)
	if _, err := rand.Read(bBytes); err != nil {
		return nil, 0, 0, NewExchangeError("set_client_DH_params", err.Error())
	}
	b := new(big.Int).SetBytes(bBytes)
	gBig := big.NewInt(int64(g))
	gb := new(big.Int).Exp(gBig, b, dhPrime)
	gab := new(big.Int).Exp(ga, b, dhPrime)

	clientInner := NewEncodeBuf(256)
	clientInner.UInt(CRC_client_DH_inner_data)
	clientInner.Bytes_(nonce)
	clientInner.Bytes_(serverNonce)
	clientInner.Long(0) // retry_id: this engine never retries a handshake in place (open question, see DESIGN.md)
	clientInner.StringBytes(gb.Bytes())

	hash := sha1.Sum(clientInner.Bytes())
	withHash := append(append([]byte{}, hash[:]...), clientInner.Bytes()...)
	clientEncrypted := encryptIGE(withHash, tmpAESKey, tmpAESIV)

	setReq := NewEncodeBuf(300)
	setReq.UInt(CRC_set_client_DH_params)
	setReq.Bytes_(nonce)
	setReq.Bytes_(serverNonce)
	setReq.StringBytes(clientEncrypted)
	if err := send(setReq.Bytes()); err != nil {
		return nil, 0, 0, NewExchangeError("set_client_DH_params", err.Error())
	}

	raw3, err := recv()
	if err != nil {
		return nil, 0, 0, NewExchangeError("set_client_DH_params", err.Error())
	}
	d3 := NewDecodeBuf(raw3)
	switch c := d3.UInt(); c {
	case CRC_dh_gen_ok:
	case CRC_dh_gen_retry:
		return nil, 0, 0, ErrDHGenRetryUnsupported
	case CRC_dh_gen_fail:
		return nil, 0, 0, NewExchangeError("set_client_DH_params", "dh_gen_fail")
	default:
		_ = c
		return nil, 0, 0, NewExchangeError("set_client_DH_params", "unexpected dh_gen constructor")
	}
	if string(d3.Bytes(16)) != string(nonce) {
		return nil, 0, 0, NewSecurityError("nonce mismatch in dh_gen_ok")
	}
	if string(d3.Bytes(16)) != string(serverNonce) {
		return nil, 0, 0, NewSecurityError("server_nonce mismatch in dh_gen_ok")
	}
	newNonceHash1 := d3.Bytes(16)
	if d3.err != nil {
		return nil, 0, 0, NewExchangeError("set_client_DH_params", d3.err.Error())
	}

	authKeyBytes := gab.Bytes()
	if len(authKeyBytes) < 256 {
		padded := make([]byte, 256)
		copy(padded[256-len(authKeyBytes):], authKeyBytes)
		authKeyBytes = padded
	}

	expectedHash := calcNewNonceHash(newNonce, authKeyBytes, 1)
	if string(expectedHash) != string(newNonceHash1) {
		return nil, 0, 0, NewSecurityError("new_nonce_hash mismatch: server may not hold the negotiated key")
	}

	key := &AuthKey{Key: authKeyBytes, KeyID: authKeyID(authKeyBytes)}
	initialSalt := initialServerSalt(serverNonce, newNonce)
	return key, timeOffset, initialSalt, nil
}

// initialServerSalt derives the server_salt a fresh session starts with:
// the low 8 bytes of new_nonce XORed with the low 8 bytes of server_nonce,
// per the MTProto auth-key description's "Assigning salt" step.
func initialServerSalt(serverNonce, newNonce []byte) int64 {
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = newNonce[i] ^ serverNonce[i]
	}
	return int64(binary.LittleEndian.Uint64(out[:]))
}

// keyIVFromNonce derives the temporary AES-256-IGE key/iv used only to
// decrypt server_DH_params_ok / encrypt client_DH_inner_data, per
// generate_key_data_from_nonce in the reference implementation.
func keyIVFromNonce(serverNonce, newNonce []byte) (key, iv []byte) {
	h1 := sha1.Sum(append(append([]byte{}, newNonce...), serverNonce...))
	h2 := sha1.Sum(append(append([]byte{}, serverNonce...), newNonce...))
	h3 := sha1.Sum(append(append([]byte{}, newNonce...), newNonce...))

	key = append(append([]byte{}, h1[:]...), h2[:12]...)
	iv = append(append([]byte{}, h2[12:20]...), h3[:]...)
	iv = append(iv, newNonce[:4]...)
	return key, iv
}

// calcNewNonceHash reproduces AuthKey.calc_new_nonce_hash: sha1(new_nonce
// || single-byte selector || aux_hash), where aux_hash is the first 8
// bytes of sha1(auth_key) , keeping
// bytes [4:20] of the result.
func calcNewNonceHash(newNonce, authKey []byte, selector byte) []byte {
	keyHash := sha1.Sum(authKey)
	auxHash := keyHash[:8]
	buf := append(append([]byte{}, newNonce...), selector)
	buf = append(buf, auxHash...)
	h := sha1.Sum(buf)
	return h[4:20]
}

func beUint64(v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	i := 0
	for i < 7 && tmp[i] == 0 {
		i++
	}
	return tmp[i:]
}
