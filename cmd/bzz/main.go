// Copyright 2019 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Command bzz talks to a swarm HTTP gateway: it uploads and downloads
// content, browses manifests and reads, updates and watches feeds.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethersphere/bzzclient/api/client"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	BzzAPIFlag = &cli.StringFlag{
		Name:    "bzzapi",
		Usage:   "Swarm HTTP gateway",
		Value:   client.DefaultGateway,
		EnvVars: []string{BZZ_ENV_API},
	}
	TimeoutFlag = &cli.DurationFlag{
		Name:    "timeout",
		Usage:   "Default timeout of gateway requests, 0 disables it",
		Value:   time.Minute,
		EnvVars: []string{BZZ_ENV_TIMEOUT},
	}
	KeyFileFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "File holding the hex encoded private key signing feed updates",
		EnvVars: []string{BZZ_ENV_KEY},
	}
	KeyStoreFlag = &cli.StringFlag{
		Name:  "keystore",
		Usage: "Encrypted keystore file signing feed updates",
	}
	PasswordFileFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "Password file unlocking --keystore",
	}
	VerbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	LogFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of stderr",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "bzz"
	app.Usage = "Swarm HTTP gateway client"
	app.Flags = []cli.Flag{
		BzzAPIFlag,
		TimeoutFlag,
		KeyFileFlag,
		KeyStoreFlag,
		PasswordFileFlag,
		ConfigPathFlag,
		VerbosityFlag,
		LogFileFlag,
	}
	app.Commands = []*cli.Command{
		upCommand,
		downCommand,
		lsCommand,
		hashCommand,
		rmCommand,
		feedCommand,
		DumpConfigCommand,
	}
	app.Before = setupLogging
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the root log handler, a terminal handler on stderr
// or logfmt into a rotated file
func setupLogging(ctx *cli.Context) error {
	var handler slog.Handler
	if file := ctx.String(LogFileFlag.Name); file != "" {
		handler = log.LogfmtHandler(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		})
	} else {
		usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		output := io.Writer(os.Stderr)
		if usecolor {
			output = colorable.NewColorable(os.Stderr)
		}
		handler = log.NewTerminalHandler(output, usecolor)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(ctx.Int(VerbosityFlag.Name)))
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
