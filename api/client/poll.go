// Copyright 2019 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package client

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethersphere/bzzclient/api"
)

// FeedMode selects what a feed watcher reads on every tick
type FeedMode string

const (
	FeedResponse    FeedMode = "feed-response"    // the raw feed value
	ContentHash     FeedMode = "content-hash"     // the feed value as a content hash
	ContentResponse FeedMode = "content-response" // the content the feed points at
)

// EmptyPolicy selects how a watcher reacts to a feed without a value
type EmptyPolicy string

const (
	EmptyAccept EmptyPolicy = "accept" // emit an empty FeedPoll
	EmptyIgnore EmptyPolicy = "ignore" // emit nothing
	EmptyError  EmptyPolicy = "error"  // end the subscription with the 404 error
)

// PollOptions configures WatchFeed. The zero Mode is FeedResponse and the
// zero WhenEmpty is EmptyAccept.
type PollOptions struct {
	FetchOptions
	Interval           time.Duration
	Mode               FeedMode
	DelayFirst         bool // wait one interval before the first read
	WhenEmpty          EmptyPolicy
	ContentChangedOnly bool            // content modes only, skip reads returning the last hash
	Trigger            <-chan struct{} // forces an extra read, nil disables it
	ContentMode        api.Mode        // scheme of content-response downloads, bzz:/ when empty
}

// FeedPoll is the outcome of a single feed read. Exactly one of Response,
// Hash and Err is meaningful for the mode, all of them are unset when the
// feed has no value yet. In content-response mode Hash is set along with
// Response, or along with Err when the content download failed. The receiver
// must close Response.Body.
type FeedPoll struct {
	Response *http.Response
	Hash     string
	Err      error
}

// Empty reports whether the poll found no feed value
func (p *FeedPoll) Empty() bool {
	return p.Response == nil && p.Hash == "" && p.Err == nil
}

func (p *FeedPoll) close() {
	if p.Response != nil {
		p.Response.Body.Close()
	}
}

// WatchFeed reads the feed every opts.Interval and sends the outcome of every
// read to sink until the subscription is cancelled or ctx is done.
//
// Reads never overlap: a tick that falls due while the previous read is still
// in flight is dropped, so polls are delivered in the order they were issued.
// Unsubscribing returns without waiting for an in-flight read, whose request
// is cancelled and whose result is dropped.
//
// Failed reads are delivered as a FeedPoll with Err set and polling carries
// on. The only way the subscription fails is a missing feed value with the
// EmptyError policy, in which case the *HTTPError is delivered on Err().
func (c *Client) WatchFeed(ctx context.Context, params FeedParams, opts PollOptions, sink chan<- *FeedPoll) (event.Subscription, error) {
	if opts.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if opts.Mode == "" {
		opts.Mode = FeedResponse
	}
	if opts.WhenEmpty == "" {
		opts.WhenEmpty = EmptyAccept
	}
	w := &feedWatcher{
		client: c,
		params: params,
		opts:   opts,
		sink:   sink,
		log:    c.log.New("user", params.User, "topic", params.Topic, "name", params.Name, "manifest", params.ManifestHash),
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		return w.loop(ctx, quit)
	}), nil
}

type feedWatcher struct {
	client *Client
	params FeedParams
	opts   PollOptions
	sink   chan<- *FeedPoll
	log    log.Logger

	lastHash string // hash of the last delivered poll, content modes only
}

type feedRead struct {
	poll     *FeedPoll
	skipped  bool // content unchanged, nothing was downloaded
	fromFeed bool // poll.Err comes from reading the feed itself
}

func (w *feedWatcher) loop(ctx context.Context, quit <-chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var (
		trigger = w.opts.Trigger
		pending chan feedRead
	)
	start := func() {
		if pending != nil {
			return
		}
		pending = make(chan feedRead, 1)
		go func(out chan<- feedRead, lastHash string) {
			out <- w.read(ctx, lastHash)
		}(pending, w.lastHash)
	}
	defer func() {
		if pending != nil {
			go func(in <-chan feedRead) {
				if r := <-in; r.poll != nil {
					r.poll.close()
				}
			}(pending)
		}
	}()

	w.log.Debug("Feed watcher started", "interval", w.opts.Interval, "mode", w.opts.Mode)
	defer w.log.Debug("Feed watcher stopped")

	if !w.opts.DelayFirst {
		start()
	}
	for {
		select {
		case <-ticker.C:
			start()

		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			start()

		case r := <-pending:
			pending = nil
			poll, err := w.handle(r)
			if err != nil {
				return err
			}
			if poll == nil {
				continue
			}
			select {
			case w.sink <- poll:
			case <-quit:
				poll.close()
				return nil
			case <-ctx.Done():
				poll.close()
				return ctx.Err()
			}

		case <-quit:
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// read performs a single read according to the watcher mode
func (w *feedWatcher) read(ctx context.Context, lastHash string) feedRead {
	c := w.client
	fetch := w.opts.FetchOptions

	if w.opts.Mode == FeedResponse {
		res, err := c.GetFeedValue(ctx, w.params, fetch)
		return feedRead{poll: &FeedPoll{Response: res, Err: err}, fromFeed: err != nil}
	}
	hash, err := c.GetFeedContentHash(ctx, w.params, fetch)
	if err != nil {
		return feedRead{poll: &FeedPoll{Err: err}, fromFeed: true}
	}
	if w.opts.ContentChangedOnly && hash == lastHash {
		return feedRead{skipped: true}
	}
	if w.opts.Mode != ContentResponse {
		return feedRead{poll: &FeedPoll{Hash: hash}}
	}
	res, err := c.Download(ctx, hash, DownloadOptions{FetchOptions: fetch, Mode: w.opts.ContentMode})
	if err != nil {
		return feedRead{poll: &FeedPoll{Hash: hash, Err: err}}
	}
	return feedRead{poll: &FeedPoll{Response: res, Hash: hash}}
}

// handle applies the empty policy to a finished read and returns the poll to
// deliver, if any. The policy only covers a feed without value, a failed
// content download is delivered like any other error. A non nil error ends
// the subscription.
func (w *feedWatcher) handle(r feedRead) (*FeedPoll, error) {
	if r.skipped {
		w.log.Trace("Feed content unchanged", "hash", w.lastHash)
		return nil, nil
	}
	poll := r.poll
	if poll.Err != nil {
		if !r.fromFeed || !IsNotFound(poll.Err) {
			w.log.Debug("Feed read failed", "err", poll.Err)
			return poll, nil
		}
		switch w.opts.WhenEmpty {
		case EmptyIgnore:
			return nil, nil
		case EmptyError:
			return nil, poll.Err
		default:
			w.lastHash = ""
			return &FeedPoll{}, nil
		}
	}
	if w.opts.Mode != FeedResponse {
		w.lastHash = poll.Hash
	}
	return poll, nil
}
