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

// Package tcp is the TCP variant of socket.Server: Accept loop, one
// goroutine per connection running the supplied socket.Handler.
package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	libsck "github.com/sabouaram/msgnet/socket"
	libcfg "github.com/sabouaram/msgnet/socket/config"
)

type server struct {
	cfg     libcfg.Server
	handler libsck.Handler

	mu sync.Mutex
	ln net.Listener

	open atomic.Int64

	onInfo  libsck.FuncInfo
	onError libsck.FuncError
}

// New returns a TCP server bound to cfg.Address once Listen is called.
func New(cfg libcfg.Server, handler libsck.Handler) (libsck.Server, error) {
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
	ln, err := net.Listen(s.cfg.Network.String(), s.cfg.Address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.notifyInfo(ln.Addr(), nil, libsck.ConnectionNew)

	go s.acceptLoop(ln)
	return nil
}

func (s *server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.notifyError(ln.Addr(), nil, err)
			return
		}
		s.open.Add(1)
		go s.serve(conn)
	}
}

func (s *server) serve(conn net.Conn) {
	defer func() {
		s.open.Add(-1)
		s.notifyInfo(conn.LocalAddr(), conn.RemoteAddr(), libsck.ConnectionClose)
		_ = conn.Close()
	}()

	s.notifyInfo(conn.LocalAddr(), conn.RemoteAddr(), libsck.ConnectionDial)
	s.notifyInfo(conn.LocalAddr(), conn.RemoteAddr(), libsck.ConnectionHandler)
	s.handler(conn)
}

func (s *server) Shutdown() error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln != nil
}

func (s *server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *server) OpenConnections() int64 {
	return s.open.Load()
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
