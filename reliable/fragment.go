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
	"context"
	"sync"
	"time"

	libcch "github.com/sabouaram/msgnet/cache"
)

// maxFragments bounds the total-fragment count of one transfer; the
// wire field is a 16-bit value.
const maxFragments = 1<<16 - 1

// partialTransfer accumulates the received fragments of one oversized
// message until the set is complete.
type partialTransfer struct {
	mu    sync.Mutex
	total int
	got   int
	parts [][]byte
	meta  Frame
}

// reassembler is the fragment reassembly table: a transfer-id keyed
// expiring cache, so a partial set older than the fragment timeout is
// discarded without the engine having to sweep it.
type reassembler struct {
	tbl libcch.Cache[uint16, *partialTransfer]
}

func newReassembler(ctx context.Context, timeout time.Duration) *reassembler {
	return &reassembler{
		tbl: libcch.New[uint16, *partialTransfer](ctx, timeout),
	}
}

// Offer feeds one received fragment frame into the table. When the
// fragment completes its transfer, the reassembled frame is returned
// with done=true and the transfer entry is dropped. Duplicate
// fragments are ignored.
func (r *reassembler) Offer(f Frame) (full Frame, done bool) {
	info := f.Fragment
	if info == nil || info.Total == 0 || uint32(info.Index) >= uint32(info.Total) {
		return full, false
	}

	p, _, ok := r.tbl.Load(info.TransferID)
	if !ok {
		p = &partialTransfer{
			total: int(info.Total),
			parts: make([][]byte, int(info.Total)),
		}
		if got, _, loaded := r.tbl.LoadOrStore(info.TransferID, p); loaded {
			p = got
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if int(info.Total) != p.total || p.parts[info.Index] != nil {
		return full, false
	}

	p.parts[info.Index] = f.Payload
	p.got++

	if info.Index == 0 {
		p.meta = f
	}

	if p.got < p.total {
		return full, false
	}

	r.tbl.Delete(info.TransferID)

	size := 0
	for _, part := range p.parts {
		size += len(part)
	}

	payload := make([]byte, 0, size)
	for _, part := range p.parts {
		payload = append(payload, part...)
	}

	full = p.meta
	full.Fragment = nil
	full.Payload = payload
	return full, true
}

// Close releases the table's expiry resources.
func (r *reassembler) Close() error {
	return r.tbl.Close()
}

// fragmentPayload splits payload into chunks of at most chunkSize
// bytes. The result always has at least one element.
func fragmentPayload(payload []byte, chunkSize int) [][]byte {
	if len(payload) <= chunkSize {
		return [][]byte{payload}
	}

	n := (len(payload) + chunkSize - 1) / chunkSize
	out := make([][]byte, 0, n)

	for off := 0; off < len(payload); off += chunkSize {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, payload[off:end])
	}

	return out
}
