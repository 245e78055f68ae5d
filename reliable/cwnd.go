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

// congestionWindow is a slow-start/congestion-avoidance window in
// units of datagrams: initialized to 1, grown by 1 per
// RTT while below ssthresh (slow start), grown by 1/cwnd per ack once
// above it (congestion avoidance), halved on loss.
type congestionWindow struct {
	cwnd     float64
	ssthresh float64

	// ackedThisRTT counts acks received during the current RTT, used
	// to apply the slow-start "+1 per RTT" growth once per window
	// rather than once per ack.
	ackedThisRTT int
}

func newCongestionWindow() *congestionWindow {
	return &congestionWindow{cwnd: 1, ssthresh: 64}
}

// Window returns the current window size, rounded down, minimum 1.
func (c *congestionWindow) Window() int {
	w := int(c.cwnd)
	if w < 1 {
		return 1
	}
	return w
}

// OnAck grows the window: in slow start by 1 once a full window's
// worth of acks has arrived (about once per RTT), in congestion
// avoidance by 1/cwnd per ack.
func (c *congestionWindow) OnAck() {
	if c.cwnd < c.ssthresh {
		c.ackedThisRTT++
		if c.ackedThisRTT >= c.Window() {
			c.cwnd++
			c.ackedThisRTT = 0
		}
	} else {
		c.cwnd += 1 / c.cwnd
	}
}

// OnLoss halves the window (never below 1) and drops ssthresh to half
// the old window (never below 2).
func (c *congestionWindow) OnLoss() {
	c.ssthresh = c.cwnd / 2
	if c.ssthresh < 2 {
		c.ssthresh = 2
	}
	c.cwnd /= 2
	if c.cwnd < 1 {
		c.cwnd = 1
	}
}
