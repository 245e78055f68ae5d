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

// Package metrics exposes the engine's per-connection counters and
// estimator gauges as prometheus collectors. The host refreshes the
// gauges from each connection's published stats snapshot on every
// worker pass; counters are driven by deltas between snapshots.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	librlb "github.com/sabouaram/msgnet/reliable"
)

// Set is one registered family of engine metrics, labelled by remote
// endpoint.
type Set struct {
	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	packetsRetrans  *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec
	droppedStale    *prometheus.CounterVec
	droppedFull     *prometheus.CounterVec

	srtt *prometheus.GaugeVec
	cwnd *prometheus.GaugeVec

	connections prometheus.Gauge

	// last remembers the previous snapshot per remote so counter
	// deltas can be derived from cumulative stats.
	last map[string]librlb.Stats
}

// New builds and registers a Set on reg (or the default registerer if
// nil).
func New(reg prometheus.Registerer) *Set {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	lbl := []string{"remote"}

	s := &Set{
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "packets_sent_total",
			Help: "Datagrams handed to the wire, including retransmissions.",
		}, lbl),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "packets_received_total",
			Help: "Datagrams received from the wire.",
		}, lbl),
		packetsRetrans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "packets_retransmitted_total",
			Help: "Datagrams whose retransmission timer fired.",
		}, lbl),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "bytes_sent_total",
			Help: "Payload bytes handed to the wire.",
		}, lbl),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "bytes_received_total",
			Help: "Payload bytes received from the wire.",
		}, lbl),
		droppedStale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "messages_dropped_stale_total",
			Help: "Messages dropped by the stale-deadline policy.",
		}, lbl),
		droppedFull: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgnet", Name: "messages_dropped_outbound_full_total",
			Help: "Messages rejected because the outbound ring was full.",
		}, lbl),
		srtt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "msgnet", Name: "srtt_seconds",
			Help: "Smoothed round-trip time estimate.",
		}, lbl),
		cwnd: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "msgnet", Name: "congestion_window_datagrams",
			Help: "Current congestion window.",
		}, lbl),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "msgnet", Name: "connections",
			Help: "Connections currently registered with the host.",
		}),
		last: make(map[string]librlb.Stats),
	}

	reg.MustRegister(
		s.packetsSent, s.packetsReceived, s.packetsRetrans,
		s.bytesSent, s.bytesReceived,
		s.droppedStale, s.droppedFull,
		s.srtt, s.cwnd, s.connections,
	)

	return s
}

// Observe folds one connection's current stats snapshot into the
// collectors.
func (s *Set) Observe(remote string, st librlb.Stats) {
	prev := s.last[remote]
	s.last[remote] = st

	add := func(c *prometheus.CounterVec, cur, old uint64) {
		if cur > old {
			c.WithLabelValues(remote).Add(float64(cur - old))
		}
	}

	add(s.packetsSent, st.PacketsSent, prev.PacketsSent)
	add(s.packetsReceived, st.PacketsReceived, prev.PacketsReceived)
	add(s.packetsRetrans, st.PacketsRetransmitted, prev.PacketsRetransmitted)
	add(s.bytesSent, st.BytesSent, prev.BytesSent)
	add(s.bytesReceived, st.BytesReceived, prev.BytesReceived)
	add(s.droppedStale, st.MessagesDroppedStale, prev.MessagesDroppedStale)
	add(s.droppedFull, st.MessagesDroppedOutboundFull, prev.MessagesDroppedOutboundFull)

	s.srtt.WithLabelValues(remote).Set(st.SRTT.Seconds())
	s.cwnd.WithLabelValues(remote).Set(float64(st.CWND))
}

// SetConnections refreshes the registered-connection gauge.
func (s *Set) SetConnections(n int) {
	s.connections.Set(float64(n))
}

// Forget drops the per-remote series of a closed connection.
func (s *Set) Forget(remote string) {
	delete(s.last, remote)

	for _, c := range []*prometheus.CounterVec{
		s.packetsSent, s.packetsReceived, s.packetsRetrans,
		s.bytesSent, s.bytesReceived, s.droppedStale, s.droppedFull,
	} {
		c.DeleteLabelValues(remote)
	}

	s.srtt.DeleteLabelValues(remote)
	s.cwnd.DeleteLabelValues(remote)
}
