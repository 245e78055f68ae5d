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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	libcon "github.com/sabouaram/msgnet/conn"
	libhst "github.com/sabouaram/msgnet/host"
	libmsg "github.com/sabouaram/msgnet/message"
)

func newServerCommand(code *int) *cobra.Command {
	return &cobra.Command{
		Use:   "server {tcp|udp} <port>",
		Short: "run an echo server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(args[0])
			if err != nil {
				*code = exitUsage
				return err
			}

			if err := runServer(mode, args[1]); err != nil {
				*code = exitNetwork
				return err
			}
			return nil
		},
	}
}

// echoHandler answers every application message with its own payload.
type echoHandler struct{}

func (echoHandler) HandleMessage(c *libcon.Connection, _ uint16, id libmsg.ID, payload []byte) {
	m, err := c.NewMessage(id, len(payload))
	if err != nil {
		return
	}

	m.Payload = append(m.Payload, payload...)
	m.Reliable = true
	_ = c.EndAndQueue(m)
}

func runServer(mode, port string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()

	h := libhst.New(libhst.Config{
		Logger:   log,
		Tunables: &cfg,
		Handler:  echoHandler{},
		Listener: libhst.ServerListenerFunc(func(c *libcon.Connection) {
			log.Info("new connection established from %s", c.Remote())
		}),
	})
	defer h.Shutdown()

	addr := fmt.Sprintf(":%s", port)

	switch mode {
	case "udp":
		err = h.ListenUDP(addr)
	case "tcp":
		err = h.ListenTCP(addr)
	}
	if err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	t := time.NewTicker(time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-t.C:
			h.Pump()
		}
	}
}
