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
	"io"
	"net/http"
	"time"
)

// Transport performs a single HTTP round trip. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req)
func (f TransportFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// FetchOptions are the per request options shared by every operation
type FetchOptions struct {
	Headers http.Header
	Timeout time.Duration // zero falls back to the client default
}

type fetchResult struct {
	res *http.Response
	err error
}

// fetch issues a request through the transport. With a timeout the request
// context is cancelled when the deadline passes and ErrTimeout is returned
// right away, even if the transport ignores the cancellation; a response that
// still arrives afterwards is closed and dropped. The deadline only covers
// getting the response, reading the body is not bounded by it.
func (c *Client) fetch(ctx context.Context, method, uri string, body io.Reader, opts FetchOptions) (*http.Response, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		cancel()
		return nil, err
	}
	for key, values := range opts.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	c.log.Trace("Gateway request", "method", method, "url", uri, "timeout", timeout)

	if timeout <= 0 {
		res, err := c.transport.Do(req)
		if err != nil {
			cancel()
			return nil, err
		}
		return withCancel(res, cancel), nil
	}

	done := make(chan fetchResult, 1)
	go func() {
		res, err := c.transport.Do(req)
		done <- fetchResult{res, err}
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			cancel()
			return nil, out.err
		}
		return withCancel(out.res, cancel), nil
	case <-timer.C:
		cancel()
		go discardResult(done)
		c.log.Debug("Gateway request timed out", "method", method, "url", uri, "timeout", timeout)
		return nil, ErrTimeout
	case <-ctx.Done():
		cancel()
		go discardResult(done)
		return nil, ctx.Err()
	}
}

func discardResult(done <-chan fetchResult) {
	if out := <-done; out.res != nil && out.res.Body != nil {
		out.res.Body.Close()
	}
}

func withCancel(res *http.Response, cancel context.CancelFunc) *http.Response {
	body := res.Body
	if body == nil {
		body = http.NoBody
	}
	res.Body = &cancelReadCloser{ReadCloser: body, cancel: cancel}
	return res
}

// cancelReadCloser releases the request context once the body is closed
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
