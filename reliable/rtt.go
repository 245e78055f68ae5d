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

import "time"

// Default RTO bounds.
const (
	DefaultRTOMin = 200 * time.Millisecond
	DefaultRTOMax = 3 * time.Second
)

// rttEstimator implements the Jacobson/Karels smoothing:
// srtt <- 7/8 srtt + 1/8 sample, rttvar <- 3/4 rttvar + 1/4 |sample - srtt|.
// Samples are never taken for retransmitted datagrams (Karn's rule);
// callers enforce that by simply not calling Sample for them.
type rttEstimator struct {
	srtt   time.Duration
	rttvar time.Duration
	have   bool

	min time.Duration
	max time.Duration
}

func newRTTEstimator(min, max time.Duration) *rttEstimator {
	if min <= 0 {
		min = DefaultRTOMin
	}
	if max <= 0 {
		max = DefaultRTOMax
	}
	return &rttEstimator{min: min, max: max}
}

// Sample folds one RTT observation into the estimator.
func (e *rttEstimator) Sample(rtt time.Duration) {
	if !e.have {
		e.srtt = rtt
		e.rttvar = rtt / 2
		e.have = true
		return
	}

	diff := e.srtt - rtt
	if diff < 0 {
		diff = -diff
	}
	e.rttvar = (3*e.rttvar + diff) / 4
	e.srtt = (7*e.srtt + rtt) / 8
}

// RTO returns the current retransmission timeout: srtt + 4*rttvar,
// bounded to the configured [min, max].
func (e *rttEstimator) RTO() time.Duration {
	if !e.have {
		return e.min
	}

	rto := e.srtt + 4*e.rttvar
	if rto < e.min {
		return e.min
	}
	if rto > e.max {
		return e.max
	}
	return rto
}

// SRTT returns the smoothed RTT estimate, 0 if no sample has landed
// yet.
func (e *rttEstimator) SRTT() time.Duration {
	return e.srtt
}

// RTTVar returns the smoothed RTT deviation.
func (e *rttEstimator) RTTVar() time.Duration {
	return e.rttvar
}
