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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethersphere/bzzclient/api/client"
	"github.com/urfave/cli/v2"
)

var (
	FeedUserFlag = &cli.StringFlag{
		Name:  "user",
		Usage: "Address of the feed owner, the signer address by default",
	}
	FeedNameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "Feed name, merged into --topic",
	}
	FeedTopicFlag = &cli.StringFlag{
		Name:  "topic",
		Usage: "0x prefixed hex feed topic",
	}
	FeedManifestFlag = &cli.StringFlag{
		Name:  "manifest",
		Usage: "Feed manifest hash, replaces --user, --topic and --name",
	}
	FeedModeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "What to read: feed-response, content-hash or content-response",
		Value: string(client.FeedResponse),
	}
	FeedContentFlag = &cli.BoolFlag{
		Name:  "content",
		Usage: "Upload the data and point the feed at its hash",
	}
	FeedHashFlag = &cli.BoolFlag{
		Name:  "hash",
		Usage: "The data is a hex content hash to point the feed at",
	}
	FeedMimeTypeFlag = &cli.StringFlag{
		Name:  "mime",
		Usage: "Content type of --content uploads",
		Value: "application/octet-stream",
	}
	WatchIntervalFlag = &cli.DurationFlag{
		Name:  "interval",
		Usage: "Time between feed reads",
		Value: 5 * time.Second,
	}
	WatchChangedOnlyFlag = &cli.BoolFlag{
		Name:  "changed-only",
		Usage: "Only report content hashes that differ from the last one",
	}
	WatchWhenEmptyFlag = &cli.StringFlag{
		Name:  "when-empty",
		Usage: "Reaction to a feed without value: accept, ignore or error",
		Value: string(client.EmptyAccept),
	}
	WatchDelayFirstFlag = &cli.BoolFlag{
		Name:  "delay-first",
		Usage: "Wait one interval before the first read",
	}
	WatchCountFlag = &cli.IntFlag{
		Name:  "count",
		Usage: "Stop after this many feed values, 0 watches until interrupted",
	}
)

var feedFlags = []cli.Flag{
	FeedUserFlag,
	FeedNameFlag,
	FeedTopicFlag,
	FeedManifestFlag,
}

var feedCommand = &cli.Command{
	Name:  "feed",
	Usage: "Read, update and watch feeds",
	Subcommands: []*cli.Command{
		{
			Action: feedCreateManifest,
			Name:   "create",
			Usage:  "Upload a manifest pointing at the feed",
			Flags:  feedFlags,
		},
		{
			Action: feedMetadata,
			Name:   "meta",
			Usage:  "Show the metadata needed for the next update",
			Flags:  feedFlags,
		},
		{
			Action: feedGet,
			Name:   "get",
			Usage:  "Print the latest feed value",
			Flags:  append([]cli.Flag{FeedModeFlag, DownloadOutputFlag}, feedFlags...),
		},
		{
			Action:    feedUpdate,
			Name:      "update",
			Usage:     "Sign and post a new feed value",
			ArgsUsage: "<data|->",
			Flags:     append([]cli.Flag{FeedContentFlag, FeedHashFlag, FeedMimeTypeFlag}, feedFlags...),
		},
		{
			Action: feedWatch,
			Name:   "watch",
			Usage:  "Poll the feed and print every value read",
			Flags: append([]cli.Flag{
				FeedModeFlag,
				WatchIntervalFlag,
				WatchChangedOnlyFlag,
				WatchWhenEmptyFlag,
				WatchDelayFirstFlag,
				WatchCountFlag,
			}, feedFlags...),
		},
	},
}

// feedParams selects the feed from the command flags, user defaulting to
// the configured owner
func feedParams(ctx *cli.Context, user common.Address) (client.FeedParams, error) {
	params := client.FeedParams{
		Topic:        ctx.String(FeedTopicFlag.Name),
		Name:         ctx.String(FeedNameFlag.Name),
		ManifestHash: ctx.String(FeedManifestFlag.Name),
	}
	if params.ManifestHash != "" {
		return params, nil
	}
	if user == (common.Address{}) {
		return params, errors.New("no feed owner, pass --user or a signing key")
	}
	params.User = user
	if _, err := params.FeedTopic(); err != nil {
		return params, err
	}
	return params, nil
}

func makeFeedClient(ctx *cli.Context) (*client.Client, client.FeedParams, error) {
	bzz, user, err := makeClient(ctx)
	if err != nil {
		return nil, client.FeedParams{}, err
	}
	params, err := feedParams(ctx, user)
	return bzz, params, err
}

func feedCreateManifest(ctx *cli.Context) error {
	bzz, params, err := makeFeedClient(ctx)
	if err != nil {
		return err
	}
	if params.ManifestHash != "" {
		return errors.New("a feed manifest is created from --user, --topic and --name")
	}
	hash, err := bzz.CreateFeedManifest(ctx.Context, params, client.UploadOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, hash)
	return nil
}

func feedMetadata(ctx *cli.Context) error {
	bzz, params, err := makeFeedClient(ctx)
	if err != nil {
		return err
	}
	meta, err := bzz.GetFeedMetadata(ctx.Context, params, client.FetchOptions{})
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, string(out))
	return nil
}

func parseFeedMode(ctx *cli.Context) (client.FeedMode, error) {
	switch mode := client.FeedMode(ctx.String(FeedModeFlag.Name)); mode {
	case client.FeedResponse, client.ContentHash, client.ContentResponse:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown feed mode %q", mode)
	}
}

func feedGet(ctx *cli.Context) error {
	mode, err := parseFeedMode(ctx)
	if err != nil {
		return err
	}
	bzz, params, err := makeFeedClient(ctx)
	if err != nil {
		return err
	}
	if mode == client.ContentHash {
		hash, err := bzz.GetFeedContentHash(ctx.Context, params, client.FetchOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, hash)
		return nil
	}
	var res *http.Response
	if mode == client.ContentResponse {
		res, err = bzz.GetFeedContent(ctx.Context, params, client.DownloadOptions{})
	} else {
		res, err = bzz.GetFeedValue(ctx.Context, params, client.FetchOptions{})
	}
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return writeOutput(ctx, res.Body)
}

func feedUpdate(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the data or - as the first and only argument")
	}
	if ctx.Bool(FeedContentFlag.Name) && ctx.Bool(FeedHashFlag.Name) {
		return errors.New("--content and --hash are mutually exclusive")
	}
	bzz, params, err := makeFeedClient(ctx)
	if err != nil {
		return err
	}
	if !bzz.HasSigner() {
		return client.ErrMissingSigner
	}
	data := []byte(ctx.Args().First())
	if ctx.Args().First() == "-" {
		if data, err = io.ReadAll(ctx.App.Reader); err != nil {
			return fmt.Errorf("error reading from stdin: %w", err)
		}
	}
	switch {
	case ctx.Bool(FeedContentFlag.Name):
		hash, err := bzz.SetFeedContent(ctx.Context, params, data, client.UploadOptions{ContentType: ctx.String(FeedMimeTypeFlag.Name)}, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, hash)
		return nil
	case ctx.Bool(FeedHashFlag.Name):
		return bzz.SetFeedContentHash(ctx.Context, params, string(data), client.FetchOptions{}, nil)
	default:
		return bzz.UpdateFeedValue(ctx.Context, params, data, client.FetchOptions{}, nil)
	}
}

func feedWatch(ctx *cli.Context) error {
	mode, err := parseFeedMode(ctx)
	if err != nil {
		return err
	}
	whenEmpty := client.EmptyPolicy(ctx.String(WatchWhenEmptyFlag.Name))
	switch whenEmpty {
	case client.EmptyAccept, client.EmptyIgnore, client.EmptyError:
	default:
		return fmt.Errorf("unknown empty feed policy %q", whenEmpty)
	}
	bzz, params, err := makeFeedClient(ctx)
	if err != nil {
		return err
	}

	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := make(chan *client.FeedPoll)
	sub, err := bzz.WatchFeed(sigctx, params, client.PollOptions{
		Interval:           ctx.Duration(WatchIntervalFlag.Name),
		Mode:               mode,
		DelayFirst:         ctx.Bool(WatchDelayFirstFlag.Name),
		WhenEmpty:          whenEmpty,
		ContentChangedOnly: ctx.Bool(WatchChangedOnlyFlag.Name),
	}, sink)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	var (
		count = ctx.Int(WatchCountFlag.Name)
		seen  int
	)
	for {
		select {
		case poll := <-sink:
			if err := printPoll(ctx.App.Writer, poll); err != nil {
				return err
			}
			if poll.Err == nil && !poll.Empty() {
				seen++
			}
			if count > 0 && seen >= count {
				return nil
			}
		case err := <-sub.Err():
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// printPoll writes a feed read to w. Empty reads and failures are only
// logged.
func printPoll(w io.Writer, poll *client.FeedPoll) error {
	switch {
	case poll.Err != nil:
		log.Warn("Feed read failed", "err", poll.Err)
		return nil
	case poll.Empty():
		log.Info("Feed has no value yet")
		return nil
	case poll.Response != nil:
		defer poll.Response.Body.Close()
		if poll.Hash != "" {
			log.Info("Feed content changed", "hash", poll.Hash)
		}
		if _, err := io.Copy(w, poll.Response.Body); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	default:
		_, err := fmt.Fprintln(w, poll.Hash)
		return err
	}
}
