package mtproto

import (
	"net"

	"golang.org/x/net/proxy"
)

// netDialer abstracts the Connect method's dial step so a SOCKS5 proxy can
// be swapped in for a direct net.Dial without
// touching anything downstream of the returned net.Conn.
type netDialer interface {
	Dial(network, addr string) (net.Conn, error)
}

type directDialer struct{}

func (directDialer) Dial(network, addr string) (net.Conn, error) {
	return net.Dial(network, addr)
}

// proxyAuth carries SOCKS5 username/password credentials.
type proxyAuth struct {
	User     string
	Password string
}

type socks5Dialer struct {
	inner proxy.Dialer
}

func newSocks5Dialer(addr string, auth *proxyAuth) (*socks5Dialer, error) {
	var pa *proxy.Auth
	if auth != nil {
		pa = &proxy.Auth{User: auth.User, Password: auth.Password}
	}
	d, err := proxy.SOCKS5("tcp", addr, pa, proxy.Direct)
	if err != nil {
		return nil, NewTransportError("socks5 dial", err)
	}
	return &socks5Dialer{inner: d}, nil
}

func (s *socks5Dialer) Dial(network, addr string) (net.Conn, error) {
	return s.inner.Dial(network, addr)
}
