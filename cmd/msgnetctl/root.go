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
	"strings"

	"github.com/spf13/cobra"

	liblog "github.com/sabouaram/msgnet/logger"
	loglvl "github.com/sabouaram/msgnet/logger/level"
	libtun "github.com/sabouaram/msgnet/tunables"
)

var (
	flagConfig  string
	flagVerbose bool
)

func newRootCommand(code *int) *cobra.Command {
	root := &cobra.Command{
		Use:           "msgnetctl",
		Short:         "msgnet server/client reference harness",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand: print usage, exit 0 (unknown subcommands are
			// reported by cobra as an error and handled in run).
			return cmd.Usage()
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "tunables configuration file (yaml/json/toml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServerCommand(code))
	root.AddCommand(newClientCommand(code))

	return root
}

// run executes the harness and returns its process exit code.
func run(args []string) int {
	code := exitOK

	root := newRootCommand(&code)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		// Unknown subcommand: print usage and report success, per the
		// harness contract.
		if strings.Contains(err.Error(), "unknown command") {
			_ = root.Usage()
			return exitOK
		}

		fmt.Fprintln(os.Stderr, err)
		if code == exitOK {
			code = exitUsage
		}
	}

	return code
}

// loadConfig builds the tunables from the optional --config file plus
// the environment layer.
func loadConfig() (libtun.Config, error) {
	v, err := libtun.Viper(flagConfig)
	if err != nil {
		return libtun.Config{}, err
	}

	return libtun.Load(v)
}

func newLogger() liblog.Logger {
	l := liblog.New(os.Stderr)
	if flagVerbose {
		l.SetLevel(loglvl.DebugLevel)
	}
	return l
}

// parseMode validates the {tcp|udp} argument.
func parseMode(s string) (string, error) {
	switch s {
	case "tcp", "udp":
		return s, nil
	default:
		return "", fmt.Errorf("unknown transport %q: want tcp or udp", s)
	}
}
