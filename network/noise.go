package network

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"io"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/flynn/noise"
)

// Noise transport: pattern Noise_XXpsk3_25519_ChaChaPoly_BLAKE2s with a
// 32-byte pre-shared key mixed in at position 3. Each side generates a
// fresh static keypair per connection, so the PSK is the only long-lived
// credential.
//
// The wire carries 2-byte big-endian length-prefixed Noise messages, both
// during the handshake and for transport records (Noise caps a message at
// 65535 bytes, 16 of which are the AEAD tag).

const (
	noisePSKLen     = 32
	noiseTagLen     = 16
	noiseMaxMessage = 65535
	noiseMaxPayload = noiseMaxMessage - noiseTagLen
)

var noiseCipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

var (
	_ Acceptor  = (*NoiseServer)(nil)
	_ Connector = (*NoiseClient)(nil)
)

// NoiseServer accepts Noise connections with a pre-shared key.
type NoiseServer struct {
	psk []byte
}

// NewNoiseServer returns a server transport for a 32-byte PSK.
func NewNoiseServer(psk []byte) (*NoiseServer, error) {
	if len(psk) != noisePSKLen {
		return nil, errors.Newf("noise: psk must be %d bytes, got %d", noisePSKLen, len(psk))
	}
	return &NoiseServer{psk: psk}, nil
}

func (s *NoiseServer) Accept(ctx context.Context, conn net.Conn) (net.Conn, error) {
	nc, err := noiseHandshake(conn, s.psk, false)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "noise accept")
	}
	return nc, nil
}

// NoiseClient dials Noise connections with a pre-shared key.
type NoiseClient struct {
	psk []byte
}

// NewNoiseClient returns a client transport for a 32-byte PSK.
func NewNoiseClient(psk []byte) (*NoiseClient, error) {
	if len(psk) != noisePSKLen {
		return nil, errors.Newf("noise: psk must be %d bytes, got %d", noisePSKLen, len(psk))
	}
	return &NoiseClient{psk: psk}, nil
}

func (c *NoiseClient) Connect(ctx context.Context, conn net.Conn) (net.Conn, error) {
	nc, err := noiseHandshake(conn, c.psk, true)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "noise connect")
	}
	return nc, nil
}

func noiseHandshake(conn net.Conn, psk []byte, initiator bool) (*noiseConn, error) {
	static, err := noiseCipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, err
	}
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:           noiseCipherSuite,
		Random:                rand.Reader,
		Pattern:               noise.HandshakeXX,
		Initiator:             initiator,
		StaticKeypair:         static,
		PresharedKey:          psk,
		PresharedKeyPlacement: 3,
	})
	if err != nil {
		return nil, err
	}

	var enc, dec *noise.CipherState
	if initiator {
		// -> e
		msg, _, _, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, err
		}
		if err := writeNoiseMessage(conn, msg); err != nil {
			return nil, err
		}
		// <- e, ee, s, es
		msg, err = readNoiseMessage(conn)
		if err != nil {
			return nil, err
		}
		if _, _, _, err = hs.ReadMessage(nil, msg); err != nil {
			return nil, err
		}
		// -> s, se, psk
		msg, cs1, cs2, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, err
		}
		if err := writeNoiseMessage(conn, msg); err != nil {
			return nil, err
		}
		enc, dec = cs1, cs2
	} else {
		msg, err := readNoiseMessage(conn)
		if err != nil {
			return nil, err
		}
		if _, _, _, err = hs.ReadMessage(nil, msg); err != nil {
			return nil, err
		}
		msg, _, _, err = hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, err
		}
		if err := writeNoiseMessage(conn, msg); err != nil {
			return nil, err
		}
		msg, err = readNoiseMessage(conn)
		if err != nil {
			return nil, err
		}
		_, cs1, cs2, err := hs.ReadMessage(nil, msg)
		if err != nil {
			return nil, err
		}
		enc, dec = cs2, cs1
	}

	return &noiseConn{Conn: conn, enc: enc, dec: dec}, nil
}

func writeNoiseMessage(w io.Writer, msg []byte) error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(msg)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

func readNoiseMessage(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	msg := make([]byte, binary.BigEndian.Uint16(hdr[:]))
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// noiseConn is the post-handshake transport. Reads and writes are
// plaintext; records are encrypted one Noise message at a time.
type noiseConn struct {
	net.Conn
	enc *noise.CipherState
	dec *noise.CipherState

	leftover []byte
}

func (c *noiseConn) Read(p []byte) (int, error) {
	if len(c.leftover) == 0 {
		record, err := readNoiseMessage(c.Conn)
		if err != nil {
			return 0, err
		}
		plain, err := c.dec.Decrypt(nil, nil, record)
		if err != nil {
			return 0, errors.Wrap(err, "noise decrypt")
		}
		c.leftover = plain
	}
	n := copy(p, c.leftover)
	c.leftover = c.leftover[n:]
	return n, nil
}

func (c *noiseConn) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		chunk := p
		if len(chunk) > noiseMaxPayload {
			chunk = chunk[:noiseMaxPayload]
		}
		record, err := c.enc.Encrypt(nil, nil, chunk)
		if err != nil {
			return written, errors.Wrap(err, "noise encrypt")
		}
		if err := writeNoiseMessage(c.Conn, record); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}
