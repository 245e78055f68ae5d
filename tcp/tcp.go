/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package tcp is the stream transport mode:
// each message frame is preceded by a 2-byte big-endian length, and
// the kernel's ordering and reliability stand in for sequence numbers
// and acknowledgements. There is no fragmentation: a stream has no
// datagram size ceiling to respect.
package tcp

import (
	"encoding/binary"
	"io"

	liberr "github.com/sabouaram/msgnet/errors"
	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
	libwir "github.com/sabouaram/msgnet/wire"
)

// MaxFrameSize is the largest frame body a 2-byte length prefix can
// describe.
const MaxFrameSize = 1<<16 - 1

// EncodeMessage serializes one application message as a
// length-prefixed frame ready for the stream.
func EncodeMessage(m *libmsg.Message) ([]byte, liberr.Error) {
	f := librlb.Frame{
		MessageID: m.MessageID,
		Payload:   m.Payload,
	}

	return EncodeFrame(f)
}

// EncodeFrame serializes one frame as a length-prefixed body.
func EncodeFrame(f librlb.Frame) ([]byte, liberr.Error) {
	body := libwir.NewWriter(16 + len(f.Payload))
	librlb.EncodeFrame(body, f)

	if body.Len() > MaxFrameSize {
		return nil, liberr.ErrorMessageTooLargeAfterFragment.Error(nil)
	}

	out := libwir.NewWriter(2 + body.Len())
	out.WriteUint16BE(uint16(body.Len()))
	out.WriteBytes(body.Bytes())

	return out.Bytes(), nil
}

// ReadFrame reads one length-prefixed frame from the stream. It
// blocks until a full frame (or an error) arrives.
func ReadFrame(r io.Reader) (librlb.Frame, error) {
	var hdr [2]byte

	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return librlb.Frame{}, err
	}

	n := binary.BigEndian.Uint16(hdr[:])
	body := make([]byte, n)

	if _, err := io.ReadFull(r, body); err != nil {
		return librlb.Frame{}, err
	}

	f, err := librlb.DecodeFrame(libwir.NewReader(body))
	if err != nil {
		return librlb.Frame{}, err
	}

	return f, nil
}
