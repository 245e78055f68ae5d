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
	"math/rand"
	"time"

	libatc "github.com/sabouaram/msgnet/atomic"
	liberr "github.com/sabouaram/msgnet/errors"
	liblog "github.com/sabouaram/msgnet/logger"
	libmsg "github.com/sabouaram/msgnet/message"
	libsch "github.com/sabouaram/msgnet/scheduler"
	libwir "github.com/sabouaram/msgnet/wire"
)

// Config wires one Conn to its collaborators. Send pushes one raw
// datagram toward the wire; OnFrame hands one application frame
// (post-reassembly, pre-dedup) up to the inbound pipeline; OnState is
// notified of every lifecycle transition; OnDrop reports a reliable
// message the engine gave up on (stale deadline or connection death).
type Config struct {
	Client bool

	Send    func(data []byte)
	OnFrame func(seq uint16, f Frame)
	OnState func(s State, reason liberr.Error)
	OnDrop  func(m *libmsg.Message, reason liberr.Error)

	// OnDone is invoked when the engine is finished with a message:
	// an unreliable message once serialized, a reliable one once every
	// frame carrying it has been acknowledged. Used by the connection
	// facade to recycle message slots.
	OnDone func(m *libmsg.Message)

	Logger liblog.Logger
	Rand   *rand.Rand

	Options   Options
	Simulator SimulatorConfig
}

// Conn is the per-connection reliable UDP protocol engine. All methods
// except State and Stats must be called from the single network worker
// goroutine that owns the connection; State and Stats read atomic
// snapshots and are safe anywhere.
type Conn struct {
	cfg Config
	opt Options
	log liblog.Logger
	rng *rand.Rand

	state    State
	statePub libatc.Value[State]
	statsPub libatc.Value[Stats]
	stats    Stats

	sched *libsch.Queue
	sent  *sentTable
	rtt   *rttEstimator
	cwnd  *congestionWindow
	rwin  *recvWindow
	reasm *reassembler
	sim   *simulator

	nextSeq      uint16
	nextTransfer uint16

	// pending holds already-stamped frames waiting for datagram room:
	// fragments of an oversized message and retransmitted frames.
	// Drained before the scheduler.
	pending []Frame

	// pendingMsgs parallels pending: the message behind each pending
	// frame, nil for frames with no single owning message.
	pendingMsgs []*libmsg.Message

	ackPending bool
	ackOldest  time.Time

	lastRecv   time.Time
	lastPing   time.Time
	nextSendAt time.Time

	hs            *handshake
	srvChallenge  uint32
	peerConfirmed bool

	peerWindow uint32

	disconnectAt   time.Time
	peerInitiated  bool
	disconnectSent bool

	malformed []time.Time

	// refs counts the reliable frames of each message still awaiting
	// acknowledgement; a message is done when its count reaches zero.
	refs map[*libmsg.Message]int

	cancel context.CancelFunc
}

// NewConn builds a Conn ready to be driven by the worker. The client
// side begins its handshake on the first Tick; the server side waits
// for a Connect frame.
func NewConn(cfg Config) *Conn {
	opt := cfg.Options.withDefaults()

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	log := cfg.Logger
	if log == nil {
		log = liblog.New(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Conn{
		cfg:      cfg,
		opt:      opt,
		log:      log,
		rng:      rng,
		state:    StatePending,
		statePub: libatc.NewValue[State](),
		statsPub: libatc.NewValue[Stats](),
		sched:    libsch.New(),
		sent:     newSentTable(opt.MaxRetries),
		rtt:      newRTTEstimator(opt.RTOMin, opt.RTOMax),
		cwnd:     newCongestionWindow(),
		rwin:     newRecvWindow(),
		reasm:    newReassembler(ctx, opt.FragmentTimeout),
		sim:      newSimulator(cfg.Simulator, rng),
		refs:     make(map[*libmsg.Message]int),
		cancel:   cancel,
	}

	c.statePub.Store(StatePending)
	c.statsPub.Store(Stats{})

	return c
}

// State returns the last published connection state. Safe from any
// goroutine.
func (c *Conn) State() State {
	return c.statePub.Load()
}

// Stats returns the last published statistics snapshot. Safe from any
// goroutine.
func (c *Conn) Stats() Stats {
	return c.statsPub.Load()
}

// InFlight returns the number of unacknowledged reliable datagrams.
func (c *Conn) InFlight() int {
	return c.sent.Len()
}

// PendingOutbound returns the number of application messages not yet
// serialized onto the wire.
func (c *Conn) PendingOutbound() int {
	return c.sched.Len() + len(c.pending)
}

// SetSimulator replaces the send-side fault injector configuration.
func (c *Conn) SetSimulator(cfg SimulatorConfig) {
	c.sim.cfg = cfg
}

// Queue hands one application message to the outbound scheduler.
func (c *Conn) Queue(m *libmsg.Message) liberr.Error {
	if c.state >= StateDisconnecting {
		return liberr.ErrorConnectionClosed.Error(nil)
	}

	if len(m.Payload) > c.opt.MaxMessageSize {
		return liberr.ErrorMessageTooLargeAfterFragment.Error(nil)
	}

	c.sched.Push(m)
	return nil
}

// Disconnect initiates a graceful shutdown. Idempotent; completes
// asynchronously within the disconnect grace period.
func (c *Conn) Disconnect(now time.Time) {
	if c.state >= StateDisconnecting {
		return
	}

	c.setState(StateDisconnecting, nil)
	c.disconnectAt = now.Add(c.opt.DisconnectGrace)

	m := libmsg.New(libmsg.IDDisconnect, nil)
	m.Reliable = true
	m.Priority = ^uint32(0)
	c.sched.Push(m)
	c.disconnectSent = true
}

// Tick drives every timer of the engine: handshake retries, the
// retransmission scan, the outbound pump, delayed-ack emission, the
// keep-alive ping and the disconnect grace period. now is the worker's
// monotonic clock reading for this pass.
func (c *Conn) Tick(now time.Time) {
	c.flushSimulator(now)

	switch c.state {
	case StatePending:
		c.tickHandshake(now)
	case StateOK, StateDisconnecting:
		c.retransmit(now)
		c.pump(now)
		c.maybeAckOnly(now)
		c.maybePing(now)
		c.tickDisconnect(now)
	case StateClosed:
	}

	c.publish()
}

// HandleDatagram feeds one raw received datagram into the engine.
func (c *Conn) HandleDatagram(data []byte, now time.Time) {
	if c.state == StateClosed {
		return
	}

	c.stats.PacketsReceived++
	c.stats.BytesReceived += uint64(len(data))
	c.lastRecv = now

	r := libwir.NewReader(data)

	seq, ack, _, err := DecodeHeader(r)
	if err != nil {
		c.noteMalformed(now)
		return
	}

	if ack != nil {
		c.handleAck(*ack, now)
	}

	if r.Remaining() == 0 {
		// Ack-only datagram: its sequence is observed for window
		// bookkeeping but never generates an ack of its own.
		c.rwin.Observe(seq)
		c.publish()
		return
	}

	if c.rwin.Observe(seq) {
		// Duplicate datagram: the peer is retransmitting, so the ack
		// that covered it was likely lost. Re-arm the delayed ack;
		// acks are idempotent.
		if !c.ackPending {
			c.ackPending = true
			c.ackOldest = now
		}
		c.publish()
		return
	}

	var frames []Frame
	for r.Remaining() > 0 {
		f, err := DecodeFrame(r)
		if err != nil {
			c.noteMalformed(now)
			c.publish()
			return
		}
		frames = append(frames, f)
	}

	if !c.ackPending {
		c.ackPending = true
		c.ackOldest = now
	}

	for _, f := range frames {
		c.dispatchFrame(seq, f, now)
		if c.state == StateClosed {
			break
		}
	}

	c.publish()
}

func (c *Conn) dispatchFrame(seq uint16, f Frame, now time.Time) {
	if f.MessageID < libmsg.FirstUserID {
		c.handleControl(f, now)
		return
	}

	if f.Fragment != nil {
		full, done := c.reasm.Offer(f)
		if !done {
			return
		}
		f = full
	}

	if c.cfg.OnFrame != nil {
		c.cfg.OnFrame(seq, f)
	}
}

func (c *Conn) handleControl(f Frame, now time.Time) {
	switch f.MessageID {
	case libmsg.IDConnect:
		c.handleConnect(f, now)
	case libmsg.IDConnectAck:
		c.handleConnectAck(f, now)
	case libmsg.IDDisconnect:
		c.handleDisconnect(now)
	case libmsg.IDDisconnectAck:
		c.tickDisconnect(now)
	case libmsg.IDPing:
		c.sendControlNow(Frame{MessageID: libmsg.IDPong, Payload: f.Payload}, now)
	case libmsg.IDPong:
		c.handlePong(f, now)
	case libmsg.IDFlowControl:
		if p, err := decodeFlowControl(f.Payload); err == nil {
			c.peerWindow = p.Window
		} else {
			c.noteMalformed(now)
		}
	}
}

func (c *Conn) handleConnect(f Frame, now time.Time) {
	if c.cfg.Client {
		return
	}

	p, err := decodeConnect(f.Payload)
	if err != nil {
		c.noteMalformed(now)
		return
	}

	if c.srvChallenge == 0 {
		c.srvChallenge = c.rng.Uint32() | 1
	}

	// Re-sent on every duplicate Connect: the previous ConnectAck may
	// have been lost.
	c.sendControlNow(Frame{
		MessageID: libmsg.IDConnectAck,
		Payload: connectAckPayload{
			Echo:      p.Challenge,
			Challenge: c.srvChallenge,
			Version:   ProtocolVersion,
		}.encode(),
	}, now)
}

func (c *Conn) handleConnectAck(f Frame, now time.Time) {
	p, err := decodeConnectAck(f.Payload)
	if err != nil {
		c.noteMalformed(now)
		return
	}

	if c.cfg.Client {
		if c.state != StatePending || c.hs == nil || p.Echo != c.hs.challenge {
			return
		}

		c.hs.peerChallenge = p.Challenge
		c.hs.confirmed = true
		c.setState(StateOK, nil)

		// The confirm rides a reliable frame so its loss is repaired
		// by the normal retransmission path.
		m := libmsg.New(libmsg.IDConnectAck, connectAckPayload{
			Echo:      p.Challenge,
			Challenge: c.hs.challenge,
			Version:   ProtocolVersion,
		}.encode())
		m.Reliable = true
		m.Priority = ^uint32(0)
		c.sched.Push(m)
		return
	}

	// Server side: the client's confirm echoes our challenge.
	if c.state == StatePending && p.Echo == c.srvChallenge {
		c.peerConfirmed = true
		c.setState(StateOK, nil)
	}
}

func (c *Conn) handleDisconnect(now time.Time) {
	c.sendControlNow(Frame{MessageID: libmsg.IDDisconnectAck}, now)

	if c.state >= StateDisconnecting {
		return
	}

	c.peerInitiated = true
	c.setState(StateDisconnecting, nil)
	c.disconnectAt = now.Add(c.opt.DisconnectGrace)
}

func (c *Conn) handlePong(f Frame, now time.Time) {
	p, err := decodePing(f.Payload)
	if err != nil {
		c.noteMalformed(now)
		return
	}

	if s := now.UnixNano() - int64(p.SentNanos); s > 0 {
		c.rtt.Sample(time.Duration(s))
	}
}

func (c *Conn) handleAck(ack AckSection, now time.Time) {
	for _, d := range c.sent.Covered(ack) {
		if !d.resent {
			c.rtt.Sample(now.Sub(d.sentAt))
		}
		c.cwnd.OnAck()

		for i, f := range d.frames {
			if f.ReliableNumber == 0 || i >= len(d.messages) || d.messages[i] == nil {
				continue
			}
			c.release(d.messages[i])
		}
	}
}

// reportDrop surfaces one given-up message through OnDrop, skipping
// engine-internal control messages.
func (c *Conn) reportDrop(m *libmsg.Message, reason liberr.Error) {
	if c.cfg.OnDrop == nil || m == nil || m.MessageID < libmsg.FirstUserID {
		return
	}
	c.cfg.OnDrop(m, reason)
}

// release decrements a reliable message's outstanding frame count,
// handing it back through OnDone when the last frame is acknowledged.
func (c *Conn) release(m *libmsg.Message) {
	n, ok := c.refs[m]
	if !ok {
		return
	}

	n--
	if n > 0 {
		c.refs[m] = n
		return
	}

	delete(c.refs, m)
	if c.cfg.OnDone != nil {
		c.cfg.OnDone(m)
	}
}

// tickHandshake drives the client's Connect retries and both sides'
// handshake deadline.
func (c *Conn) tickHandshake(now time.Time) {
	if c.cfg.Client {
		if c.hs == nil {
			c.hs = newHandshake(c.rng, now, c.opt.HandshakeTimeout)
		}

		if c.hs.expired(now) {
			c.close(liberr.ErrorHandshakeTimeout.Error(nil))
			return
		}

		if c.hs.shouldSend(now) {
			c.sendControlNow(Frame{
				MessageID: libmsg.IDConnect,
				Payload:   connectPayload{Challenge: c.hs.challenge}.encode(),
			}, now)
		}
		return
	}

	// Server side: give up on a peer that never confirms.
	if c.srvChallenge != 0 && !c.lastRecv.IsZero() && now.Sub(c.lastRecv) > c.opt.HandshakeTimeout {
		c.close(liberr.ErrorHandshakeTimeout.Error(nil))
	}
}

// retransmit scans the sent-not-acked table, appends the frames of
// every expired datagram to the pending list (which is drained ahead
// of the scheduler), and tears the connection down if any message ran
// out of retries.
func (c *Conn) retransmit(now time.Time) {
	expired, unreachable := c.sent.Expired(now, c.rtt.RTO())

	if len(unreachable) > 0 {
		// These entries already left the sent table; report their
		// messages before close reports everything else.
		reason := liberr.ErrorPeerUnreachable.Error(nil)
		seen := map[*libmsg.Message]bool{}
		for _, d := range unreachable {
			for _, m := range d.messages {
				if m != nil && !seen[m] {
					seen[m] = true
					c.reportDrop(m, reason)
				}
			}
		}

		c.close(reason)
		return
	}

	if len(expired) == 0 {
		return
	}

	c.cwnd.OnLoss()

	for _, d := range expired {
		c.stats.PacketsRetransmitted++

		for i, f := range d.frames {
			var m *libmsg.Message
			if i < len(d.messages) {
				m = d.messages[i]
			}
			if m != nil {
				m.RetryCount = d.retries
			}
			c.pending = append(c.pending, f)
			c.pendingMsgs = append(c.pendingMsgs, m)
		}
	}
}

// effectiveWindow caps the congestion window by the peer-advertised
// flow control window, when one has been received.
func (c *Conn) effectiveWindow() int {
	w := c.cwnd.Window()
	if c.peerWindow > 0 && int(c.peerWindow) < w {
		w = int(c.peerWindow)
	}
	return w
}

// pump fills the wire: while in_flight < cwnd and pacing allows, it
// builds one datagram at a time from the pending frame list and the
// scheduler, fragments oversized messages, and sends.
func (c *Conn) pump(now time.Time) {
	for c.sent.Len() < c.effectiveWindow() {
		if !c.paceAllows(now) {
			return
		}

		frames, msgs := c.collect(now)
		if len(frames) == 0 {
			return
		}

		c.sendFrames(frames, msgs, now)
	}
}

// paceAllows implements the cwnd/srtt send-rate cap.
func (c *Conn) paceAllows(now time.Time) bool {
	if now.Before(c.nextSendAt) {
		return false
	}

	if srtt := c.rtt.SRTT(); srtt > 0 {
		c.nextSendAt = now.Add(srtt / time.Duration(c.cwnd.Window()))
	}

	return true
}

// collect gathers the frames of the next outgoing datagram, up to the
// datagram payload budget.
func (c *Conn) collect(now time.Time) (frames []Frame, msgs []*libmsg.Message) {
	budget := c.opt.MaxDatagramPayload - 2 - 6 // header + ack section
	used := 0

	for len(c.pending) > 0 {
		f := c.pending[0]
		sz := EncodedSize(f)

		if used+sz > budget {
			if len(frames) == 0 {
				// A single pending frame never exceeds the budget by
				// construction; guard against it anyway.
				c.pending = c.pending[1:]
				c.pendingMsgs = c.pendingMsgs[1:]
				continue
			}
			return frames, msgs
		}

		frames = append(frames, f)
		msgs = append(msgs, c.pendingMsgs[0])
		used += sz
		c.pending = c.pending[1:]
		c.pendingMsgs = c.pendingMsgs[1:]
	}

	for used < budget {
		m, dropped := c.sched.Pop(now)
		for _, d := range dropped {
			c.stats.MessagesDroppedStale++
			if d.Reliable {
				c.reportDrop(d, nil)
			}
		}
		if m == nil {
			break
		}

		f := Frame{
			MessageID:      m.MessageID,
			ReliableNumber: m.ReliableNumber,
			Payload:        m.Payload,
		}
		if m.InOrder && m.ContentID != 0 {
			f.ChainID = uint64(m.ContentID)
			f.ChainSeq = m.ChainSequence
		}

		sz := EncodedSize(f)

		if sz > budget {
			// Oversized message: split into reliable fragments, which
			// refill the pending list for this and later datagrams.
			c.fragment(f, m)
			continue
		}

		if m.Reliable {
			c.refs[m] = 1
		}

		if used+sz > budget {
			// Does not fit this datagram; carry it into the next one.
			c.pending = append(c.pending, f)
			c.pendingMsgs = append(c.pendingMsgs, m)
			return frames, msgs
		}

		frames = append(frames, f)
		msgs = append(msgs, m)
		used += sz
	}

	return frames, msgs
}

// fragment splits one oversized frame into reliable fragment frames
// sharing a transfer id, appended to the pending list.
func (c *Conn) fragment(f Frame, m *libmsg.Message) {
	// Leave generous room for the frame envelope around each chunk.
	chunk := c.opt.MaxDatagramPayload - 2 - 6 - 32
	parts := fragmentPayload(f.Payload, chunk)

	if len(parts) > maxFragments {
		c.reportDrop(m, liberr.ErrorMessageTooLargeAfterFragment.Error(nil))
		return
	}

	if m != nil && m.Reliable {
		c.refs[m] = len(parts)
	}

	c.nextTransfer++
	xfer := c.nextTransfer

	for i, part := range parts {
		ff := Frame{
			MessageID: f.MessageID,
			Payload:   part,
			Fragment: &FragmentInfo{
				TransferID: xfer,
				Total:      uint16(len(parts)),
				Index:      uint16(i),
			},
		}

		// Fragments are always reliable, each under its own number so
		// the receiver's duplicate window sees them independently.
		if i == 0 && f.ReliableNumber != 0 {
			ff.ReliableNumber = f.ReliableNumber
		} else {
			ff.ReliableNumber = c.sched.NextReliable()
		}

		if i == 0 {
			ff.ChainID = f.ChainID
			ff.ChainSeq = f.ChainSeq
		}

		c.pending = append(c.pending, ff)
		c.pendingMsgs = append(c.pendingMsgs, m)
	}
}

// sendFrames serializes one datagram carrying frames and sends it,
// recording it in the sent-not-acked table if any frame is reliable.
func (c *Conn) sendFrames(frames []Frame, msgs []*libmsg.Message, now time.Time) {
	seq := c.nextSeq
	c.nextSeq = seqAdd(seq, 1)

	reliable := false
	for _, f := range frames {
		if f.ReliableNumber != 0 {
			reliable = true
			break
		}
	}

	w := libwir.NewWriter(c.opt.MaxDatagramPayload)

	var ack *AckSection
	if c.ackPending {
		a := c.rwin.AckSection()
		ack = &a
	}

	EncodeHeader(w, seq, ack, reliable)

	for _, f := range frames {
		EncodeFrame(w, f)
	}

	if reliable {
		c.sent.Add(seq, frames, msgs, now)
	}

	// An unreliable message's life ends at serialization.
	if c.cfg.OnDone != nil {
		for i, f := range frames {
			if f.ReliableNumber == 0 && i < len(msgs) && msgs[i] != nil && !msgs[i].Reliable {
				c.cfg.OnDone(msgs[i])
			}
		}
	}

	if ack != nil {
		c.ackPending = false
	}

	c.emit(w.Bytes(), now)
}

// maybeAckOnly emits a dedicated ack-only datagram when received
// sequences have waited longer than the ack delay with no outbound
// data to piggy-back on.
func (c *Conn) maybeAckOnly(now time.Time) {
	if !c.ackPending || now.Sub(c.ackOldest) < c.opt.AckDelay {
		return
	}

	seq := c.nextSeq
	c.nextSeq = seqAdd(seq, 1)

	a := c.rwin.AckSection()

	w := libwir.NewWriter(8)
	EncodeHeader(w, seq, &a, false)

	c.ackPending = false
	c.emit(w.Bytes(), now)
}

// maybePing keeps the RTT estimate warm on an otherwise idle healthy
// connection.
func (c *Conn) maybePing(now time.Time) {
	if c.state != StateOK || c.sent.Len() > 0 || c.sched.Len() > 0 {
		return
	}

	if !c.lastPing.IsZero() && now.Sub(c.lastPing) < c.opt.PingInterval {
		return
	}

	c.lastPing = now
	c.sendControlNow(Frame{
		MessageID: libmsg.IDPing,
		Payload:   pingPayload{SentNanos: uint64(now.UnixNano())}.encode(),
	}, now)
}

// SendFlowControl advertises window datagrams of inbound capacity to
// the peer, capping its effective congestion window.
func (c *Conn) SendFlowControl(window uint32, now time.Time) {
	c.sendControlNow(Frame{
		MessageID: libmsg.IDFlowControl,
		Payload:   flowControlPayload{Window: window}.encode(),
	}, now)
}

// tickDisconnect completes the Disconnecting state once the
// sent-not-acked table has drained or the grace period expired.
func (c *Conn) tickDisconnect(now time.Time) {
	if c.state != StateDisconnecting {
		return
	}

	drained := c.sent.Len() == 0 && c.sched.Len() == 0 && len(c.pending) == 0

	if drained || now.After(c.disconnectAt) {
		var reason liberr.Error
		if c.peerInitiated {
			reason = liberr.ErrorPeerDisconnected.Error(nil)
		}
		c.close(reason)
	}
}

// sendControlNow serializes one unreliable control frame into its own
// datagram and sends it immediately, bypassing the scheduler.
func (c *Conn) sendControlNow(f Frame, now time.Time) {
	seq := c.nextSeq
	c.nextSeq = seqAdd(seq, 1)

	w := libwir.NewWriter(64 + len(f.Payload))

	var ack *AckSection
	if c.ackPending {
		a := c.rwin.AckSection()
		ack = &a
	}

	EncodeHeader(w, seq, ack, false)
	EncodeFrame(w, f)

	if ack != nil {
		c.ackPending = false
	}

	c.emit(w.Bytes(), now)
}

// emit pushes one wire-ready datagram through the send simulator.
func (c *Conn) emit(data []byte, now time.Time) {
	c.stats.PacketsSent++
	c.stats.BytesSent += uint64(len(data))

	if d := c.sim.Offer(data, now); d != nil && c.cfg.Send != nil {
		c.cfg.Send(d)
	}
}

// flushSimulator releases every delayed datagram whose time has come.
func (c *Conn) flushSimulator(now time.Time) {
	for _, d := range c.sim.Due(now) {
		if c.cfg.Send != nil {
			c.cfg.Send(d)
		}
	}
}

// noteMalformed counts one parse failure and tears the connection
// down when the sustained rate crosses the configured threshold.
func (c *Conn) noteMalformed(now time.Time) {
	cutoff := now.Add(-c.opt.MalformedRateOver)

	kept := c.malformed[:0]
	for _, t := range c.malformed {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.malformed = append(kept, now)

	limit := c.opt.MalformedRate * c.opt.MalformedRateOver.Seconds()
	if float64(len(c.malformed)) > limit {
		c.close(liberr.ErrorMalformedPacket.Error(nil))
	}
}

// close moves the connection to Closed, reporting every reliable
// message still unsent or unacknowledged.
func (c *Conn) close(reason liberr.Error) {
	if c.state == StateClosed {
		return
	}

	if reason != nil {
		seen := map[*libmsg.Message]bool{}

		for _, d := range c.sent.All() {
			for _, m := range d.messages {
				if m != nil && !seen[m] {
					seen[m] = true
					c.reportDrop(m, reason)
				}
			}
		}

		for _, m := range c.sched.Drain() {
			if m.Reliable && !seen[m] {
				seen[m] = true
				c.reportDrop(m, reason)
			}
		}
	}

	c.refs = make(map[*libmsg.Message]int)
	c.cancel()
	_ = c.reasm.Close()
	c.setState(StateClosed, reason)
}

func (c *Conn) setState(s State, reason liberr.Error) {
	if c.state == s {
		return
	}

	c.state = s
	c.statePub.Store(s)

	if reason != nil {
		c.log.Debug("connection state change to %s: %s", s.String(), reason.Error())
	} else {
		c.log.Debug("connection state change to %s", s.String())
	}

	if c.cfg.OnState != nil {
		c.cfg.OnState(s, reason)
	}
}

// publish refreshes the atomic stats snapshot read by the application
// thread and the metrics collector.
func (c *Conn) publish() {
	s := c.stats
	s.SRTT = c.rtt.SRTT()
	s.RTTVar = c.rtt.RTTVar()
	s.CWND = c.cwnd.Window()
	c.statsPub.Store(s)
}
