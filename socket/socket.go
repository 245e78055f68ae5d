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

// Package socket is the byte-oriented send/recv primitive under the
// message engine: a thin net.Conn/net.PacketConn wrapper shared by
// the TCP and UDP client/server variants, with no
// reliability, ordering or framing logic of its own. Everything above
// a raw byte stream lives in the reliable, inbound, scheduler and tcp
// packages.
package socket

import (
	"net"
	"strings"
)

// DefaultBufferSize is the read-buffer size used by client and server
// loops when the caller does not override it.
const DefaultBufferSize = 4096

// EOL is appended by callers that frame messages with a trailing
// newline; the engine's own framing (wire package) does not use it,
// but it is kept for callers layering a line-oriented protocol over a
// raw socket.
const EOL = byte('\n')

// ConnState tags the phase of a connection's lifecycle a RegisterFuncInfo
// callback is being notified about.
type ConnState uint8

const (
	ConnectionNew ConnState = iota
	ConnectionDial
	ConnectionRead
	ConnectionWrite
	ConnectionHandler
	ConnectionCloseRead
	ConnectionCloseWrite
	ConnectionClose
)

// String returns a human-readable label for the state, or "unknown
// connection state" for an unrecognized value.
func (s ConnState) String() string {
	switch s {
	case ConnectionNew:
		return "New Connection"
	case ConnectionDial:
		return "Dial Connection"
	case ConnectionRead:
		return "Read Incoming Stream"
	case ConnectionWrite:
		return "Write Outgoing Steam"
	case ConnectionHandler:
		return "Run HandlerFunc"
	case ConnectionCloseRead:
		return "Close Incoming Stream"
	case ConnectionCloseWrite:
		return "Close Outgoing Stream"
	case ConnectionClose:
		return "Close Connection"
	default:
		return "unknown connection state"
	}
}

// FuncInfo is notified of connection lifecycle transitions.
type FuncInfo func(local, remote net.Addr, state ConnState)

// FuncError is notified of a non-nil error observed on a connection.
// It is never called for errors ErrorFilter would have discarded.
type FuncError func(local, remote net.Addr, err error)

// Handler processes one accepted/dialed connection's byte stream. It
// is invoked on the worker goroutine that owns the connection and
// must return when the connection is done (the caller then closes
// it).
type Handler func(conn net.Conn)

// PacketHandler processes one received UDP datagram. remote is the
// peer that sent it; payload is only valid for the duration of the
// call.
type PacketHandler func(local net.Addr, remote net.Addr, payload []byte)

// ErrorFilter drops the error net/http-style "connection closed"
// noise produced by a socket torn down from under a pending
// Read/Write, so callers can log only errors that indicate an actual
// fault. A nil error, or an error produced by a normal shutdown race,
// is returned as nil.
func ErrorFilter(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "use of closed network connection") {
		return nil
	}
	return err
}

// Client is a dialed, single-peer byte-stream or datagram connection.
type Client interface {
	Connect() error
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	RegisterFuncInfo(f FuncInfo)
	RegisterFuncError(f FuncError)
	Close() error
}

// PacketWriter sends one datagram to a specific peer. The UDP server
// implements it so the layer above can answer the endpoints its
// PacketHandler observed.
type PacketWriter interface {
	WriteTo(remote net.Addr, p []byte) (int, error)
}

// Server accepts connections (TCP) or receives datagrams (UDP) on a
// bound local address and dispatches each to a Handler/PacketHandler
// supplied at construction.
type Server interface {
	Listen() error
	Shutdown() error
	IsRunning() bool
	LocalAddr() net.Addr
	OpenConnections() int64
	RegisterFuncInfo(f FuncInfo)
	RegisterFuncError(f FuncError)
}
