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

// Package udp is the UDP variant of socket.Server: a single
// ReadFrom loop on one bound *net.UDPConn, dispatching each datagram
// to the supplied socket.PacketHandler. There is no per-peer
// goroutine: the host package's Host multiplexes peers by remote
// address above this layer: accepting a new UDP "connection" means
// observing a well-formed Connect control frame from an unknown
// endpoint.
package udp

import (
	"net"
	"sync"

	libsck "github.com/sabouaram/msgnet/socket"
	libcfg "github.com/sabouaram/msgnet/socket/config"
)

type server struct {
	cfg     libcfg.Server
	handler libsck.PacketHandler

	mu   sync.Mutex
	conn *net.UDPConn

	peers sync.Map // string(remote addr) -> struct{}, for OpenConnections

	onInfo  libsck.FuncInfo
	onError libsck.FuncError
}

// New returns a UDP server bound to cfg.Address once Listen is called.
func New(cfg libcfg.Server, handler libsck.PacketHandler) (libsck.Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errNilHandler
	}
	return &server{cfg: cfg, handler: handler}, nil
}

func (s *server) notifyInfo(local, remote net.Addr, state libsck.ConnState) {
	if s.onInfo != nil {
		s.onInfo(local, remote, state)
	}
}

func (s *server) notifyError(local, remote net.Addr, err error) {
	if err = libsck.ErrorFilter(err); err != nil && s.onError != nil {
		s.onError(local, remote, err)
	}
}

func (s *server) Listen() error {
	laddr, err := net.ResolveUDPAddr(s.cfg.Network.String(), s.cfg.Address)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP(s.cfg.Network.String(), laddr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.notifyInfo(conn.LocalAddr(), nil, libsck.ConnectionNew)

	go s.readLoop(conn)
	return nil
}

func (s *server) readLoop(conn *net.UDPConn) {
	size := s.cfg.BufferSize
	if size <= 0 {
		size = libsck.DefaultBufferSize
	}
	buf := make([]byte, size)

	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			s.notifyError(conn.LocalAddr(), remote, err)
			return
		}

		if _, loaded := s.peers.LoadOrStore(remote.String(), struct{}{}); !loaded {
			s.notifyInfo(conn.LocalAddr(), remote, libsck.ConnectionNew)
		}

		s.notifyInfo(conn.LocalAddr(), remote, libsck.ConnectionRead)
		s.notifyInfo(conn.LocalAddr(), remote, libsck.ConnectionHandler)
		s.handler(conn.LocalAddr(), remote, buf[:n])
	}
}

// WriteTo sends one datagram to remote through the bound socket,
// implementing socket.PacketWriter.
func (s *server) WriteTo(remote net.Addr, p []byte) (int, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return 0, net.ErrClosed
	}

	raddr, ok := remote.(*net.UDPAddr)
	if !ok {
		var err error
		raddr, err = net.ResolveUDPAddr(s.cfg.Network.String(), remote.String())
		if err != nil {
			return 0, err
		}
	}

	n, err := conn.WriteToUDP(p, raddr)
	if err != nil {
		s.notifyError(conn.LocalAddr(), remote, err)
	} else {
		s.notifyInfo(conn.LocalAddr(), remote, libsck.ConnectionWrite)
	}
	return n, err
}

func (s *server) Shutdown() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (s *server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *server) OpenConnections() int64 {
	var n int64
	s.peers.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (s *server) RegisterFuncInfo(f libsck.FuncInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInfo = f
}

func (s *server) RegisterFuncError(f libsck.FuncError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = f
}
