// Package network implements the wire layers beneath the dispatcher:
// frame codec, secure transports (mTLS and Noise), stream multiplexing
// (yamux and QUIC), and the typed server/client stream endpoints.
package network

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/caelansar/kv/kverr"
	"github.com/caelansar/kv/pb"
)

const (
	frameHeaderLen = 4

	// MaxFrame is the largest payload the 31-bit length field can carry.
	MaxFrame = 1<<31 - 1

	// compressionLimit is the payload size above which frames are
	// gzipped: 1500 (MTU) - 20 (IP) - 20 (TCP) - 20 (slack) - 4 (header).
	compressionLimit = 1436

	// compressionBit flags a gzipped payload in the length header.
	compressionBit = 1 << 31
)

// checkFrameLen rejects payloads the 31-bit length field cannot carry.
func checkFrameLen(n int) error {
	if n > MaxFrame {
		return &kverr.FrameError{Detail: "length exceed"}
	}
	return nil
}

// WriteFrame encodes msg as one frame on w: a 4-byte big-endian header
// whose high bit flags gzip compression and whose low 31 bits carry the
// payload length, followed by the payload.
func WriteFrame(w io.Writer, msg pb.Message) error {
	payload, err := pb.Marshal(msg)
	if err != nil {
		return &kverr.FrameError{Detail: err.Error()}
	}
	if err := checkFrameLen(len(payload)); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, frameHeaderLen))
	header := uint32(len(payload))

	if len(payload) > compressionLimit {
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return &kverr.FrameError{Detail: err.Error()}
		}
		if err := zw.Close(); err != nil {
			return &kverr.FrameError{Detail: err.Error()}
		}
		compressed := buf.Len() - frameHeaderLen
		if err := checkFrameLen(compressed); err != nil {
			return err
		}
		header = uint32(compressed) | compressionBit
	} else {
		buf.Write(payload)
	}

	binary.BigEndian.PutUint32(buf.Bytes()[:frameHeaderLen], header)
	_, err = w.Write(buf.Bytes())
	return err
}

// ReadFrame reads exactly one frame from r and decodes it into msg.
// It blocks until the full frame is available; a length-0 frame decodes
// into the zero message. A stream that ends before a complete header,
// whether before its first byte or partway through, is reported as io.EOF.
func ReadFrame(r io.Reader, msg pb.Message) error {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}
	header := binary.BigEndian.Uint32(hdr[:])
	compressed := header&compressionBit != 0
	length := header &^ compressionBit

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}

	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return &kverr.FrameError{Detail: err.Error()}
		}
		payload, err = io.ReadAll(zr)
		if err != nil {
			return &kverr.FrameError{Detail: err.Error()}
		}
		if err := zr.Close(); err != nil {
			return &kverr.FrameError{Detail: err.Error()}
		}
	}

	if err := pb.Unmarshal(payload, msg); err != nil {
		return &kverr.FrameError{Detail: err.Error()}
	}
	return nil
}
