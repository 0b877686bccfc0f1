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

// Package client implements a client for the swarm HTTP gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethersphere/bzzclient/api"
)

var (
	DefaultGateway = "http://localhost:8500"
	DefaultClient  = NewClient(DefaultGateway)
)

// Config holds the settings of a Client. Only Gateway is required.
type Config struct {
	Gateway     string
	Timeout     time.Duration // default per request timeout, zero disables it
	Signer      SignFunc      // required for feed updates
	Transport   Transport     // defaults to http.DefaultClient
	FormEncoder FormEncoder   // defaults to MultipartEncoder
	Logger      log.Logger    // defaults to the root logger
}

// Client wraps interaction with a swarm HTTP gateway. It is safe for
// concurrent use, its configuration is never modified after New.
type Client struct {
	urls *api.Resolver

	timeout   time.Duration
	sign      SignFunc
	transport Transport
	encoder   FormEncoder
	log       log.Logger
}

// NewClient creates a client for the gateway without a signer or timeout
func NewClient(gateway string) *Client {
	return New(Config{Gateway: gateway})
}

// New creates a client from cfg, filling in defaults for unset fields
func New(cfg Config) *Client {
	if cfg.Gateway == "" {
		cfg.Gateway = DefaultGateway
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultClient
	}
	if cfg.FormEncoder == nil {
		cfg.FormEncoder = MultipartEncoder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	return &Client{
		urls:      api.NewResolver(cfg.Gateway),
		timeout:   cfg.Timeout,
		sign:      cfg.Signer,
		transport: cfg.Transport,
		encoder:   cfg.FormEncoder,
		log:       cfg.Logger.New("gateway", cfg.Gateway),
	}
}

// Gateway returns the base URL requests are sent to
func (c *Client) Gateway() string {
	return c.urls.Base
}

// HasSigner reports whether feed updates can be signed
func (c *Client) HasSigner() bool {
	return c.sign != nil
}

// DownloadOptions selects the content to download
type DownloadOptions struct {
	FetchOptions
	Mode        api.Mode
	Path        string
	ContentType string // content type override, raw mode only
}

func (o DownloadOptions) resolve() api.DownloadOptions {
	return api.DownloadOptions{Mode: o.Mode, Path: o.Path, ContentType: o.ContentType}
}

// UploadOptions selects how and where content is uploaded
type UploadOptions struct {
	FetchOptions
	ContentType  string // empty uploads raw bytes without a manifest
	ManifestHash string
	Path         string
	DefaultPath  string
}

func (o UploadOptions) resolve() api.UploadOptions {
	return api.UploadOptions{ManifestHash: o.ManifestHash, Path: o.Path, DefaultPath: o.DefaultPath}
}

// Hash resolves a domain name or hash to a content hash using bzz-hash
func (c *Client) Hash(ctx context.Context, domain string, opts FetchOptions) (string, error) {
	return resText(c.fetch(ctx, http.MethodGet, c.urls.HashURL(domain), nil, opts))
}

// List lists the entries of the manifest at hash below opts.Path, grouping
// nested entries into common prefixes
func (c *Client) List(ctx context.Context, hash string, opts DownloadOptions) (*api.ManifestList, error) {
	var list api.ManifestList
	res, err := c.fetch(ctx, http.MethodGet, c.urls.ListURL(hash, opts.Path), nil, opts.FetchOptions)
	if err := resJSON(res, err, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Download returns the gateway response for hash. Any status outside of the
// 2xx range is returned as an *HTTPError. The caller must close the body.
func (c *Client) Download(ctx context.Context, hash string, opts DownloadOptions) (*http.Response, error) {
	res, err := c.fetch(ctx, http.MethodGet, c.urls.DownloadURL(hash, opts.resolve()), nil, opts.FetchOptions)
	if err != nil {
		return nil, err
	}
	if err := resOrError(res); err != nil {
		return nil, err
	}
	return res, nil
}

// DownloadData downloads the content at hash and reads it into memory
func (c *Client) DownloadData(ctx context.Context, hash string, opts DownloadOptions) ([]byte, error) {
	res, err := c.Download(ctx, hash, opts)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

func (c *Client) upload(ctx context.Context, body io.Reader, header http.Header, opts UploadOptions, raw bool) (string, error) {
	opts.Headers = header
	return resText(c.fetch(ctx, http.MethodPost, c.urls.UploadURL(opts.resolve(), raw), body, opts.FetchOptions))
}

// UploadFile uploads data and returns its hash. Without a content type the
// bytes are stored raw, otherwise they are wrapped in a new manifest (or
// added to opts.ManifestHash at opts.Path).
func (c *Client) UploadFile(ctx context.Context, data []byte, opts UploadOptions) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyData
	}
	raw := opts.ContentType == ""
	header := opts.Headers.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Length", strconv.Itoa(len(data)))
	if !raw && header.Get("Content-Type") == "" {
		header.Set("Content-Type", opts.ContentType)
	}
	return c.upload(ctx, bytes.NewReader(data), header, opts, raw)
}

// UploadDirectory uploads the files of dir in a single request encoded by
// the configured FormEncoder and returns the hash of the manifest
func (c *Client) UploadDirectory(ctx context.Context, dir api.Directory, opts UploadOptions) (string, error) {
	if len(dir) == 0 {
		return "", ErrEmptyData
	}
	body, encoded, err := c.encoder.Encode(dir)
	if err != nil {
		return "", fmt.Errorf("encoding directory: %w", err)
	}
	header := opts.Headers.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for key, values := range encoded {
		header[key] = values
	}
	return c.upload(ctx, body, header, opts, false)
}

// DeleteResource removes path from the manifest at hash and returns the hash
// of the updated manifest
func (c *Client) DeleteResource(ctx context.Context, hash, path string, opts FetchOptions) (string, error) {
	uri := c.urls.UploadURL(api.UploadOptions{ManifestHash: hash, Path: path}, false)
	return resText(c.fetch(ctx, http.MethodDelete, uri, nil, opts))
}

// UploadManifest uploads the given manifest as raw bytes and returns its hash
func (c *Client) UploadManifest(ctx context.Context, m *api.Manifest, opts UploadOptions) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	opts.ContentType = ""
	return c.UploadFile(ctx, data, opts)
}

// DownloadManifest downloads the manifest stored raw at hash
func (c *Client) DownloadManifest(ctx context.Context, hash string, opts FetchOptions) (*api.Manifest, error) {
	uri := c.urls.DownloadURL(hash, api.DownloadOptions{Mode: api.ModeRaw})
	var manifest api.Manifest
	res, err := c.fetch(ctx, http.MethodGet, uri, nil, opts)
	if err := resJSON(res, err, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}
