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

// Package tunables is the viper-backed configuration surface for every
// numeric knob of the engine: file, environment and flag layering over
// the protocol defaults.
package tunables

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	libdur "github.com/sabouaram/msgnet/duration"
	libptc "github.com/sabouaram/msgnet/network/protocol"
	librlb "github.com/sabouaram/msgnet/reliable"
)

// EnvPrefix is the prefix of every environment override
// (e.g. MSGNET_PROTOCOL_ACK_DELAY).
const EnvPrefix = "MSGNET"

// Protocol groups the reliable-engine knobs (protocol defaults as
// zero-value fallbacks).
type Protocol struct {
	AckDelay           libdur.Duration `mapstructure:"ack_delay" json:"ack_delay" yaml:"ack_delay"`
	RTOMin             libdur.Duration `mapstructure:"rto_min" json:"rto_min" yaml:"rto_min"`
	RTOMax             libdur.Duration `mapstructure:"rto_max" json:"rto_max" yaml:"rto_max"`
	MaxRetries         int             `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
	FragmentTimeout    libdur.Duration `mapstructure:"fragment_timeout" json:"fragment_timeout" yaml:"fragment_timeout"`
	MaxDatagramPayload int             `mapstructure:"max_datagram_payload" json:"max_datagram_payload" yaml:"max_datagram_payload"`
	MaxMessageSize     int             `mapstructure:"max_message_size" json:"max_message_size" yaml:"max_message_size"`
	HandshakeTimeout   libdur.Duration `mapstructure:"handshake_timeout" json:"handshake_timeout" yaml:"handshake_timeout"`
	DisconnectGrace    libdur.Duration `mapstructure:"disconnect_grace" json:"disconnect_grace" yaml:"disconnect_grace"`
	PingInterval       libdur.Duration `mapstructure:"ping_interval" json:"ping_interval" yaml:"ping_interval"`
	MalformedRate      float64         `mapstructure:"malformed_rate" json:"malformed_rate" yaml:"malformed_rate"`
	MalformedRateOver  libdur.Duration `mapstructure:"malformed_rate_over" json:"malformed_rate_over" yaml:"malformed_rate_over"`
}

// Rings sizes the per-connection hand-off rings. Values must be
// powers of two.
type Rings struct {
	Outbound uint64 `mapstructure:"outbound" json:"outbound" yaml:"outbound"`
	Inbound  uint64 `mapstructure:"inbound" json:"inbound" yaml:"inbound"`
}

// Worker groups the network-worker knobs.
type Worker struct {
	TickInterval libdur.Duration `mapstructure:"tick_interval" json:"tick_interval" yaml:"tick_interval"`
	ChainGrace   libdur.Duration `mapstructure:"chain_grace" json:"chain_grace" yaml:"chain_grace"`
}

// Config is the whole tunable surface.
type Config struct {
	Protocol Protocol `mapstructure:"protocol" json:"protocol" yaml:"protocol"`
	Rings    Rings    `mapstructure:"rings" json:"rings" yaml:"rings"`
	Worker   Worker   `mapstructure:"worker" json:"worker" yaml:"worker"`
}

// Default returns the protocol defaults.
func Default() Config {
	return Config{
		Protocol: Protocol{
			AckDelay:           libdur.ParseDuration(librlb.DefaultAckDelay),
			RTOMin:             libdur.ParseDuration(librlb.DefaultRTOMin),
			RTOMax:             libdur.ParseDuration(librlb.DefaultRTOMax),
			MaxRetries:         librlb.DefaultMaxRetries,
			FragmentTimeout:    libdur.ParseDuration(librlb.DefaultFragmentTimeout),
			MaxDatagramPayload: librlb.DefaultMaxDatagramPayload,
			MaxMessageSize:     librlb.DefaultMaxMessageSize,
			HandshakeTimeout:   libdur.ParseDuration(librlb.DefaultHandshakeTimeout),
			DisconnectGrace:    libdur.ParseDuration(librlb.DefaultDisconnectGrace),
			PingInterval:       libdur.ParseDuration(librlb.DefaultPingInterval),
			MalformedRate:      librlb.DefaultMalformedRate,
			MalformedRateOver:  libdur.ParseDuration(librlb.DefaultMalformedRateOver),
		},
		Rings: Rings{
			Outbound: 1 << 10,
			Inbound:  1 << 12,
		},
		Worker: Worker{
			TickInterval: libdur.ParseDuration(5 * time.Millisecond),
			ChainGrace:   libdur.ParseDuration(5 * time.Minute),
		},
	}
}

// Viper returns a viper instance primed with the defaults, the
// MSGNET_* environment layer, and, when path is not empty, the given
// config file.
func Viper(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("protocol.ack_delay", d.Protocol.AckDelay.String())
	v.SetDefault("protocol.rto_min", d.Protocol.RTOMin.String())
	v.SetDefault("protocol.rto_max", d.Protocol.RTOMax.String())
	v.SetDefault("protocol.max_retries", d.Protocol.MaxRetries)
	v.SetDefault("protocol.fragment_timeout", d.Protocol.FragmentTimeout.String())
	v.SetDefault("protocol.max_datagram_payload", d.Protocol.MaxDatagramPayload)
	v.SetDefault("protocol.max_message_size", d.Protocol.MaxMessageSize)
	v.SetDefault("protocol.handshake_timeout", d.Protocol.HandshakeTimeout.String())
	v.SetDefault("protocol.disconnect_grace", d.Protocol.DisconnectGrace.String())
	v.SetDefault("protocol.ping_interval", d.Protocol.PingInterval.String())
	v.SetDefault("protocol.malformed_rate", d.Protocol.MalformedRate)
	v.SetDefault("protocol.malformed_rate_over", d.Protocol.MalformedRateOver.String())
	v.SetDefault("rings.outbound", d.Rings.Outbound)
	v.SetDefault("rings.inbound", d.Rings.Inbound)
	v.SetDefault("worker.tick_interval", d.Worker.TickInterval.String())
	v.SetDefault("worker.chain_grace", d.Worker.ChainGrace.String())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// DecodeHook chains the custom decode hooks config structs in this
// module rely on: duration strings and network protocol names.
func DecodeHook() func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	hooks := []func(reflect.Type, reflect.Type, interface{}) (interface{}, error){
		libdur.ViperDecoderHook(),
		libptc.ViperDecoderHook(),
	}

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		var err error

		for _, h := range hooks {
			if data, err = h(from, to, data); err != nil {
				return nil, err
			}
			if from = reflect.TypeOf(data); from == nil {
				break
			}
		}

		return data, nil
	}
}

// Load builds a Config from the given viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.Protocol.MaxDatagramPayload < 64 || c.Protocol.MaxDatagramPayload > librlb.MaxDatagramPayload {
		return fmt.Errorf("max_datagram_payload must be in [64, %d]", librlb.MaxDatagramPayload)
	}
	if c.Protocol.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if c.Protocol.RTOMin.Time() > c.Protocol.RTOMax.Time() {
		return fmt.Errorf("rto_min must not exceed rto_max")
	}
	if !powerOfTwo(c.Rings.Outbound) || !powerOfTwo(c.Rings.Inbound) {
		return fmt.Errorf("ring capacities must be powers of two")
	}
	return nil
}

func powerOfTwo(n uint64) bool {
	return n >= 2 && n&(n-1) == 0
}

// Options converts the protocol section into the engine's option
// struct.
func (c Config) Options() librlb.Options {
	return librlb.Options{
		AckDelay:           c.Protocol.AckDelay.Time(),
		RTOMin:             c.Protocol.RTOMin.Time(),
		RTOMax:             c.Protocol.RTOMax.Time(),
		MaxRetries:         c.Protocol.MaxRetries,
		FragmentTimeout:    c.Protocol.FragmentTimeout.Time(),
		MaxDatagramPayload: c.Protocol.MaxDatagramPayload,
		MaxMessageSize:     c.Protocol.MaxMessageSize,
		HandshakeTimeout:   c.Protocol.HandshakeTimeout.Time(),
		DisconnectGrace:    c.Protocol.DisconnectGrace.Time(),
		PingInterval:       c.Protocol.PingInterval.Time(),
		MalformedRate:      c.Protocol.MalformedRate,
		MalformedRateOver:  c.Protocol.MalformedRateOver.Time(),
	}
}
