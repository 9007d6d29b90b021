package mtproto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"math/big"
)

// telegramPublicKeyPEM is Telegram's production RSA public key, used to
// encrypt p_q_inner_data during the auth-key exchange . It is
// not a secret — every MTProto client ships the same key — so it is
// embedded verbatim rather than fetched, matching how the reference
// implementation's crypto/rsa.py hardcodes it.
const telegramPublicKeyPEM = `-----BEGIN RSA PUBLIC KEY-----
MIIBCgKCAQEAwVACPi9w23mF3tBkdZz+zwrzKOaaQdr01vAbU4E1pvkfj4sqDsm6
lyDONS789sVoD/xCS9Y0hkkC3gtL1tSfTlgCMOOul9lcixlEKzwKENj1Yz/s7daS
an9tqw3bfUV/nqgbhGX81v/+7RFAEd+RwFnK7a+XYl9sluzHRyVVaTTveB2GazTw
Efzk2DWgkBluml8OREmvfraX3bkHZJTKX4EQSjBbbdJ2ZXIsRrYOXfaA+xayEGB+
8hdlLmAjbCVfaigxX0CDqWeR1yFL9kwd9P0NsZRPsmoqVwMbMu7mStFai6aIhc3n
Slv8kg9qv1m6XHVQY3PnEw+QQtqSIXklHwIDAQAB
-----END RSA PUBLIC KEY-----`

// rsaKeyring holds the public keys a client is willing to use, keyed by
// the 64-bit fingerprint the server selects one of in resPQ.
type rsaKeyring struct {
	byFingerprint map[int64]*rsa.PublicKey
}

func newRSAKeyring() (*rsaKeyring, error) {
	kr := &rsaKeyring{byFingerprint: make(map[int64]*rsa.PublicKey)}
	if err := kr.add(telegramPublicKeyPEM); err != nil {
		return nil, err
	}
	return kr, nil
}

func (kr *rsaKeyring) add(pemStr string) error {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return NewSecurityError("invalid RSA public key PEM")
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return NewSecurityError("invalid RSA public key DER: " + err.Error())
	}
	kr.byFingerprint[rsaFingerprint(pub)] = pub
	return nil
}

func (kr *rsaKeyring) find(fingerprint int64) (*rsa.PublicKey, bool) {
	pub, ok := kr.byFingerprint[fingerprint]
	return pub, ok
}

// rsaFingerprint computes the 64-bit key fingerprint Telegram uses to
// select among a client's known keys: the low 8 bytes of
// sha1(tl_bytes(n) || tl_bytes(e)), per "RSA key fingerprint
// (sha1-based)" edge case.
func rsaFingerprint(pub *rsa.PublicKey) int64 {
	e := NewEncodeBuf(300)
	e.StringBytes(bigIntToBytesBE(pub.N))
	e.StringBytes(bigIntToBytesBE(big.NewInt(int64(pub.E))))
	h := sha1.Sum(e.Bytes())
	return int64(binary.LittleEndian.Uint64(h[12:20]))
}

func bigIntToBytesBE(v *big.Int) []byte {
	return v.Bytes()
}

// rsaEncrypt implements Telegram's raw (non-OAEP) RSA encryption of
// p_q_inner_data: sha1(data) || data || random padding up to 235 bytes,
// raised to the e-th power mod n without PKCS#1 framing, matching
// crypto/rsa.py's `encrypt` function.
func rsaEncrypt(pub *rsa.PublicKey, data []byte) ([]byte, error) {
	digest := sha1.Sum(data)
	toEncrypt := make([]byte, 0, 255)
	toEncrypt = append(toEncrypt, digest[:]...)
	toEncrypt = append(toEncrypt, data...)
	if pad := 235 - len(data); pad > 0 {
		padding := make([]byte, pad)
		if _, err := rand.Read(padding); err != nil {
			return nil, NewSecurityError("failed to generate RSA padding: " + err.Error())
		}
		toEncrypt = append(toEncrypt, padding...)
	}

	m := new(big.Int).SetBytes(toEncrypt)
	e := big.NewInt(int64(pub.E))
	c := new(big.Int).Exp(m, e, pub.N)

	out := make([]byte, 256)
	cBytes := c.Bytes()
	copy(out[256-len(cBytes):], cBytes)
	return out, nil
}
