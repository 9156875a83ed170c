package network

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/cockroachdb/errors"

	"github.com/caelansar/kv/kverr"
)

var (
	_ Acceptor  = (*TLSServer)(nil)
	_ Connector = (*TLSClient)(nil)
)

// TLSServer terminates TLS on accepted connections. With a client CA it
// requires and verifies peer certificates (mTLS); without one any client
// may connect.
type TLSServer struct {
	config *tls.Config
}

// NewTLSServer builds a server transport from PEM-encoded cert and key,
// and an optional PEM-encoded client CA bundle.
func NewTLSServer(certPEM, keyPEM, clientCA []byte) (*TLSServer, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.WithSecondaryError(&kverr.CertificateParseError{Role: "server", Kind: "cert"}, err)
	}
	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS12,
	}
	if clientCA != nil {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(clientCA) {
			return nil, &kverr.CertificateParseError{Role: "server", Kind: "ca"}
		}
		config.ClientAuth = tls.RequireAndVerifyClientCert
		config.ClientCAs = pool
	}
	return &TLSServer{config: config}, nil
}

// Accept runs the server-side handshake on conn.
func (s *TLSServer) Accept(ctx context.Context, conn net.Conn) (net.Conn, error) {
	tc := tls.Server(conn, s.config)
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "tls accept")
	}
	return tc, nil
}

// TLSConfig returns a copy of the server's TLS configuration, usable for
// the QUIC listener.
func (s *TLSServer) TLSConfig() *tls.Config {
	return s.config.Clone()
}

// TLSClient dials TLS with a pinned server name. The CA bundle replaces
// the system roots when given; an optional identity enables mTLS.
type TLSClient struct {
	config *tls.Config
}

// NewTLSClient builds a client transport. serverName is used for SNI and
// certificate verification. identityCert/identityKey may both be nil.
func NewTLSClient(serverName string, identityCert, identityKey, serverCA []byte) (*TLSClient, error) {
	config := &tls.Config{
		ServerName: serverName,
		NextProtos: []string{ALPN},
		MinVersion: tls.VersionTLS12,
	}
	if serverCA != nil {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(serverCA) {
			return nil, &kverr.CertificateParseError{Role: "client", Kind: "ca"}
		}
		config.RootCAs = pool
	}
	if identityCert != nil {
		cert, err := tls.X509KeyPair(identityCert, identityKey)
		if err != nil {
			return nil, errors.WithSecondaryError(&kverr.CertificateParseError{Role: "client", Kind: "cert"}, err)
		}
		config.Certificates = []tls.Certificate{cert}
	}
	return &TLSClient{config: config}, nil
}

// Connect runs the client-side handshake on conn.
func (c *TLSClient) Connect(ctx context.Context, conn net.Conn) (net.Conn, error) {
	tc := tls.Client(conn, c.config)
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "tls connect")
	}
	return tc, nil
}

// TLSConfig returns a copy of the client's TLS configuration, usable for
// QUIC dialing.
func (c *TLSClient) TLSConfig() *tls.Config {
	return c.config.Clone()
}
