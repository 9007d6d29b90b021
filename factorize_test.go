package mtproto

import "testing"

func TestFactorizePQ_KnownVector(t *testing.T) {
	const pq = 3118979781119966969
	const wantP = 1719614201
	const wantQ = 1813767169

	p, q := factorizePQ(pq)
	if p > q {
		p, q = q, p
	}
	if p != wantP || q != wantQ {
		t.Fatalf("factorizePQ(%d) = (%d, %d), want (%d, %d)", uint64(pq), p, q, wantP, wantQ)
	}
	if p*q != pq {
		t.Fatalf("p*q = %d, want %d", p*q, pq)
	}
}

func TestFactorizePQ_SmallSemiprimes(t *testing.T) {
	cases := []struct {
		pq   uint64
		p, q uint64
	}{
		{15, 3, 5},
		{35, 5, 7},
		{9797, 97, 101},
	}
	for _, c := range cases {
		p, q := factorizePQ(c.pq)
		if p > q {
			p, q = q, p
		}
		if p*q != c.pq {
			t.Errorf("factorizePQ(%d): got factors %d*%d != %d", c.pq, p, q, c.pq)
		}
	}
}
