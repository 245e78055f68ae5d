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
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	libcon "github.com/sabouaram/msgnet/conn"
	libhst "github.com/sabouaram/msgnet/host"
	libmsg "github.com/sabouaram/msgnet/message"
	librlb "github.com/sabouaram/msgnet/reliable"
)

// testMessageID is the application message id the harness exchanges.
const testMessageID = libmsg.FirstUserID

// testChainID is the in-order chain the harness counters ride on.
const testChainID = 1

var (
	flagCount    int
	flagLossRate float64
	flagDelay    time.Duration
	flagJitter   time.Duration
)

func newClientCommand(code *int) *cobra.Command {
	c := &cobra.Command{
		Use:   "client {tcp|udp} <host> <port>",
		Short: "send numbered reliable in-order messages and await their echoes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(args[0])
			if err != nil {
				*code = exitUsage
				return err
			}

			if err := runClient(mode, net.JoinHostPort(args[1], args[2])); err != nil {
				*code = exitNetwork
				return err
			}
			return nil
		},
	}

	c.Flags().IntVar(&flagCount, "count", 1000, "messages to send")
	c.Flags().Float64Var(&flagLossRate, "loss", 0, "simulated packet loss rate [0,1]")
	c.Flags().DurationVar(&flagDelay, "delay", 0, "simulated constant send delay")
	c.Flags().DurationVar(&flagJitter, "jitter", 0, "simulated uniform random send delay")

	return c
}

func runClient(mode, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()

	var received atomic.Int64

	handler := libcon.HandlerFunc(func(c *libcon.Connection, _ uint16, id libmsg.ID, payload []byte) {
		if id == testMessageID && len(payload) >= 4 {
			received.Add(1)
		}
	})

	h := libhst.New(libhst.Config{
		Logger:   log,
		Tunables: &cfg,
		Handler:  handler,
	})
	defer h.Shutdown()

	var c *libcon.Connection

	switch mode {
	case "udp":
		c, err = h.DialUDP(addr)
	case "tcp":
		c, err = h.DialTCP(addr)
	}
	if err != nil {
		return err
	}

	if flagLossRate > 0 || flagDelay > 0 || flagJitter > 0 {
		c.SetSimulator(librlb.SimulatorConfig{
			Enabled:            true,
			ConstantDelay:      flagDelay,
			UniformRandomDelay: flagJitter,
			LossRate:           flagLossRate,
		})
	}

	for i := 1; i <= flagCount; i++ {
		m, err := c.NewMessage(testMessageID, 4)
		if err != nil {
			return fmt.Errorf("new message: %s", err.Error())
		}

		m.Payload = binary.LittleEndian.AppendUint32(m.Payload, uint32(i))
		m.Reliable = true
		if mode == "udp" {
			m.InOrder = true
			m.ContentID = testChainID
		}

		for {
			qerr := c.EndAndQueue(m)
			if qerr == nil {
				break
			}
			h.Pump()
			time.Sleep(time.Millisecond)
		}

		h.Pump()
	}

	// Wait for every echo, bounded by a generous deadline.
	deadline := time.Now().Add(time.Minute)
	for received.Load() < int64(flagCount) {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out: %d/%d echoes received", received.Load(), flagCount)
		}
		h.Pump()
		time.Sleep(time.Millisecond)
	}

	c.Disconnect()

	closing := time.Now().Add(cfg.Protocol.DisconnectGrace.Time() + time.Second)
	for c.State() != librlb.StateClosed && time.Now().Before(closing) {
		h.Pump()
		time.Sleep(time.Millisecond)
	}

	log.Info("%d messages echoed, connection %s", received.Load(), c.State().String())
	return nil
}
