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

package reliable

import (
	libmsg "github.com/sabouaram/msgnet/message"
	libwir "github.com/sabouaram/msgnet/wire"
)

// fragFlag marks a frame as carrying FragmentInfo.
const fragFlag = 0x1

// FragmentInfo locates one fragment within an oversized message's
// transfer.
type FragmentInfo struct {
	TransferID uint16
	Total      uint16
	Index      uint16
}

// Frame is one length-prefixed message envelope inside a packet.
type Frame struct {
	MessageID      libmsg.ID
	ReliableNumber uint32
	ChainID        uint64

	// ChainSeq is the per-chain ordering index the receiver's waiting
	// room is keyed by. Only on the wire when ChainID is non-zero.
	ChainSeq uint64

	Fragment *FragmentInfo
	Payload  []byte
}

// EncodeFrame appends frame's wire representation to w.
func EncodeFrame(w *libwir.Writer, f Frame) {
	w.WriteVarUint(uint64(f.MessageID))
	w.WriteVarUint(uint64(f.ReliableNumber))
	w.WriteVarUint(f.ChainID)

	if f.ChainID != 0 {
		w.WriteVarUint(f.ChainSeq)
	}

	if f.Fragment != nil {
		w.WriteUint8(fragFlag)
		w.WriteVarUint(uint64(f.Fragment.Total))
		w.WriteVarUint(uint64(f.Fragment.Index))
		w.WriteVarUint(uint64(f.Fragment.TransferID))
	} else {
		w.WriteUint8(0)
	}

	w.WriteVarUint(uint64(len(f.Payload)))
	w.WriteBytes(f.Payload)
}

// DecodeFrame reads one frame from r.
func DecodeFrame(r *libwir.Reader) (Frame, error) {
	var f Frame

	id, err := r.ReadVarUint()
	if err != nil {
		return f, err
	}
	f.MessageID = libmsg.ID(id)

	rn, err := r.ReadVarUint()
	if err != nil {
		return f, err
	}
	f.ReliableNumber = uint32(rn)

	chain, err := r.ReadVarUint()
	if err != nil {
		return f, err
	}
	f.ChainID = chain

	if chain != 0 {
		cs, err := r.ReadVarUint()
		if err != nil {
			return f, err
		}
		f.ChainSeq = cs
	}

	flags, err := r.ReadUint8()
	if err != nil {
		return f, err
	}

	if flags&fragFlag != 0 {
		total, err := r.ReadVarUint()
		if err != nil {
			return f, err
		}
		idx, err := r.ReadVarUint()
		if err != nil {
			return f, err
		}
		xfer, err := r.ReadVarUint()
		if err != nil {
			return f, err
		}
		f.Fragment = &FragmentInfo{
			TransferID: uint16(xfer),
			Total:      uint16(total),
			Index:      uint16(idx),
		}
	}

	n, err := r.ReadVarUint()
	if err != nil {
		return f, err
	}

	payload, err := r.ReadBytes(int(n))
	if err != nil {
		return f, err
	}
	f.Payload = payload

	return f, nil
}

// EncodedSize returns the exact number of bytes EncodeFrame would
// write for f, used by the scheduler to decide whether a candidate
// frame still fits in the current datagram.
func EncodedSize(f Frame) int {
	w := libwir.NewWriter(32 + len(f.Payload))
	EncodeFrame(w, f)
	return w.Len()
}
