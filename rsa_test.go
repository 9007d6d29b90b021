package mtproto

import (
	"crypto/rsa"
	"testing"
)

func TestRSAKeyring_FindsEmbeddedKey(t *testing.T) {
	kr, err := newRSAKeyring()
	if err != nil {
		t.Fatalf("newRSAKeyring failed: %v", err)
	}
	if len(kr.byFingerprint) != 1 {
		t.Fatalf("expected exactly one embedded key, got %d", len(kr.byFingerprint))
	}
	for fp := range kr.byFingerprint {
		if _, ok := kr.find(fp); !ok {
			t.Fatalf("find(%d) failed for a fingerprint the keyring itself reported", fp)
		}
	}
}

func TestRSAFingerprint_Deterministic(t *testing.T) {
	kr, err := newRSAKeyring()
	if err != nil {
		t.Fatalf("newRSAKeyring failed: %v", err)
	}
	var fp int64
	for k := range kr.byFingerprint {
		fp = k
	}
	pub, ok := kr.find(fp)
	if !ok {
		t.Fatal("expected to find key by its own fingerprint")
	}
	if rsaFingerprint(pub) != fp {
		t.Fatal("rsaFingerprint must be deterministic for the same key")
	}
}

func TestRSAEncrypt_ProducesFullWidthBlock(t *testing.T) {
	kr, err := newRSAKeyring()
	if err != nil {
		t.Fatalf("newRSAKeyring failed: %v", err)
	}
	var pub *rsa.PublicKey
	for _, v := range kr.byFingerprint {
		pub = v
		break
	}
	if pub == nil {
		t.Fatal("expected at least one embedded key")
	}

	data := []byte("p_q_inner_data placeholder payload")
	out, err := rsaEncrypt(pub, data)
	if err != nil {
		t.Fatalf("rsaEncrypt failed: %v", err)
	}
	if len(out) != 256 {
		t.Fatalf("expected a 256-byte (2048-bit) ciphertext block, got %d", len(out))
	}
}
