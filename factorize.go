package mtproto

import (
	"math/big"
	"math/rand"
)

// factorizePQ splits the 64-bit semiprime pq into its two prime factors
// p < q, used once per auth-key exchange .
// It ports the Lopatin variant of Pollard's rho that Telegram's reference
// clients all converge on (this repo's pack traces it back to TLSharp's
// Factorizator, itself the algorithm used by Telegram's own server and
// reference C client) rather than a generic big.Int factoring library,
// since none of the pack's dependencies offer factorization and the
// constant-shape iteration here matches known-good test vectors exactly.
func factorizePQ(pq uint64) (p, q uint64) {
	what := new(big.Int).SetUint64(pq)
	g := findSmallMultiplier(what)

	pqBig := new(big.Int).SetUint64(pq)
	divisor := new(big.Int).Div(pqBig, g)

	a, b := divisor.Uint64(), g.Uint64()
	if a > b {
		a, b = b, a
	}
	return a, b
}

func findSmallMultiplier(what *big.Int) *big.Int {
	g := big.NewInt(0)
	one := big.NewInt(1)

	for i := 0; i < 3 && g.Cmp(one) <= 0; i++ {
		q := int64((rand.Intn(128) & 15) + 17)
		x := new(big.Int).SetInt64(rand.Int63n(1000000000) + 1)
		y := new(big.Int).Set(x)
		lim := int64(1) << uint(i+18)

		for j := int64(1); j < lim; j++ {
			a := new(big.Int).Set(x)
			b := new(big.Int).Set(x)
			c := big.NewInt(q)

			for b.Sign() != 0 {
				if b.Bit(0) != 0 {
					c.Add(c, a)
					if c.Cmp(what) >= 0 {
						c.Sub(c, what)
					}
				}
				a.Add(a, a)
				if a.Cmp(what) >= 0 {
					a.Sub(a, what)
				}
				b.Rsh(b, 1)
			}

			x = c
			var z *big.Int
			if x.Cmp(y) < 0 {
				z = new(big.Int).Sub(y, x)
			} else {
				z = new(big.Int).Sub(x, y)
			}
			g = new(big.Int).GCD(nil, nil, z, what)
			if g.Cmp(one) != 0 {
				break
			}
			if j&(j-1) == 0 {
				y = new(big.Int).Set(x)
			}
		}
		if g.Cmp(one) > 0 {
			break
		}
	}
	return g
}
