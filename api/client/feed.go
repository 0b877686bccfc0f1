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
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/bzzclient/api"
	"github.com/ethersphere/bzzclient/storage/feed"
)

// SignFunc signs a feed update digest on behalf of the feed user and returns
// the 65 byte [R || S || V] signature. params is passed through untouched
// from the update call.
type SignFunc func(ctx context.Context, digest common.Hash, params interface{}) ([]byte, error)

// SignerFunc adapts a feed.Signer to a SignFunc
func SignerFunc(signer feed.Signer) SignFunc {
	return func(_ context.Context, digest common.Hash, _ interface{}) ([]byte, error) {
		sig, err := signer.Sign(digest)
		if err != nil {
			return nil, err
		}
		return sig[:], nil
	}
}

// NewKeySigner returns a SignFunc signing with the given private key
func NewKeySigner(key *ecdsa.PrivateKey) SignFunc {
	return SignerFunc(feed.NewGenericSigner(key))
}

// FeedParams identifies a feed, either by the hash of a feed manifest or by
// user and topic. Topic is a 0x prefixed hex string and Name is merged into
// it; without a name the topic is used verbatim.
type FeedParams struct {
	User         common.Address
	ManifestHash string
	Topic        string
	Name         string
	Time         *uint64
	Level        *uint8
}

// FeedTopic derives the topic the params refer to
func (p FeedParams) FeedTopic() (feed.Topic, error) {
	var related []byte
	if p.Topic != "" {
		topic, err := feed.NewTopicFromHex(p.Topic)
		if err != nil {
			return feed.Topic{}, err
		}
		if p.Name == "" {
			return topic, nil
		}
		related = topic[:]
	}
	return feed.NewTopic(p.Name, related)
}

func (p FeedParams) query() api.FeedQuery {
	return api.FeedQuery{
		User:         p.User,
		ManifestHash: p.ManifestHash,
		Topic:        p.Topic,
		Name:         p.Name,
		Time:         p.Time,
		Level:        p.Level,
	}
}

// SignedUpdate is a feed update ready to be posted to the gateway
type SignedUpdate struct {
	Topic     feed.Topic
	Time      uint64
	Level     uint8
	Signature []byte
	Body      []byte
}

// GetFeedMetadata fetches the current metadata of a feed, including the
// epoch the next update has to be stored at
func (c *Client) GetFeedMetadata(ctx context.Context, params FeedParams, opts FetchOptions) (*feed.Metadata, error) {
	var meta feed.Metadata
	res, err := c.fetch(ctx, http.MethodGet, c.urls.FeedURL(params.query(), true), nil, opts)
	if err := resJSON(res, err, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SignFeedDigest signs digest with the configured signer
func (c *Client) SignFeedDigest(ctx context.Context, digest common.Hash, signParams interface{}) ([]byte, error) {
	if c.sign == nil {
		return nil, ErrMissingSigner
	}
	sig, err := c.sign(ctx, digest, signParams)
	if err != nil {
		return nil, fmt.Errorf("signing feed digest: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
	return sig, nil
}

// PostSignedFeedValue posts an already signed update of the feed owned by user
func (c *Client) PostSignedFeedValue(ctx context.Context, user common.Address, u *SignedUpdate, opts FetchOptions) error {
	q := api.FeedQuery{
		User:      user,
		Topic:     u.Topic.Hex(),
		Time:      &u.Time,
		Level:     &u.Level,
		Signature: u.Signature,
	}
	res, err := c.fetch(ctx, http.MethodPost, c.urls.FeedURL(q, false), bytes.NewReader(u.Body), opts)
	if err != nil {
		return err
	}
	if err := resOrError(res); err != nil {
		return err
	}
	return res.Body.Close()
}

// PostFeedValue signs data for the epoch in meta and posts it. meta has to
// be fresh, an epoch that has been used already is rejected by the gateway.
func (c *Client) PostFeedValue(ctx context.Context, meta *feed.Metadata, data []byte, opts FetchOptions, signParams interface{}) error {
	if c.sign == nil {
		return ErrMissingSigner
	}
	digest, err := feed.Digest(meta, data)
	if err != nil {
		return err
	}
	sig, err := c.SignFeedDigest(ctx, digest, signParams)
	if err != nil {
		return err
	}
	c.log.Debug("Posting feed update", "user", meta.Feed.User, "topic", meta.Feed.Topic.Hex(), "epoch", meta.Epoch.String(), "digest", digest)
	return c.PostSignedFeedValue(ctx, meta.Feed.User, &SignedUpdate{
		Topic:     meta.Feed.Topic,
		Time:      meta.Epoch.Time,
		Level:     meta.Epoch.Level,
		Signature: sig,
		Body:      data,
	}, opts)
}

// UpdateFeedValue stores data as the next value of the feed. The metadata is
// fetched once and the same snapshot is used for the digest and the post.
func (c *Client) UpdateFeedValue(ctx context.Context, params FeedParams, data []byte, opts FetchOptions, signParams interface{}) error {
	if c.sign == nil {
		return ErrMissingSigner
	}
	if len(data) == 0 {
		return ErrEmptyData
	}
	meta, err := c.GetFeedMetadata(ctx, params, opts)
	if err != nil {
		return fmt.Errorf("fetching feed metadata: %w", err)
	}
	return c.PostFeedValue(ctx, meta, data, opts, signParams)
}

// GetFeedValue returns the gateway response carrying the latest value of the
// feed. A feed without updates yields a 404 *HTTPError.
func (c *Client) GetFeedValue(ctx context.Context, params FeedParams, opts FetchOptions) (*http.Response, error) {
	res, err := c.fetch(ctx, http.MethodGet, c.urls.FeedURL(params.query(), false), nil, opts)
	if err != nil {
		return nil, err
	}
	if err := resOrError(res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetFeedContentHash reads the latest value of the feed as a content hash
func (c *Client) GetFeedContentHash(ctx context.Context, params FeedParams, opts FetchOptions) (string, error) {
	res, err := c.GetFeedValue(ctx, params, opts)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	value, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if len(value) != 32 && len(value) != 64 {
		return "", fmt.Errorf("feed value of %d bytes is not a content hash", len(value))
	}
	return hex.EncodeToString(value), nil
}

// GetFeedContent downloads the content the feed currently points at
func (c *Client) GetFeedContent(ctx context.Context, params FeedParams, opts DownloadOptions) (*http.Response, error) {
	hash, err := c.GetFeedContentHash(ctx, params, opts.FetchOptions)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, hash, opts)
}

// SetFeedContentHash points the feed at the given content hash
func (c *Client) SetFeedContentHash(ctx context.Context, params FeedParams, hash string, opts FetchOptions, signParams interface{}) error {
	value, err := hex.DecodeString(hash)
	if err != nil {
		return fmt.Errorf("invalid content hash %q: %w", hash, err)
	}
	return c.UpdateFeedValue(ctx, params, value, opts, signParams)
}

// SetFeedContent uploads data and points the feed at it, returning the hash
// of the uploaded content
func (c *Client) SetFeedContent(ctx context.Context, params FeedParams, data []byte, opts UploadOptions, signParams interface{}) (string, error) {
	if c.sign == nil {
		return "", ErrMissingSigner
	}
	hash, err := c.UploadFile(ctx, data, opts)
	if err != nil {
		return "", err
	}
	if err := c.SetFeedContentHash(ctx, params, hash, opts.FetchOptions, signParams); err != nil {
		return "", err
	}
	return hash, nil
}

// CreateFeedManifest uploads a manifest aliasing the feed and returns its
// hash, which can be used as FeedParams.ManifestHash afterwards
func (c *Client) CreateFeedManifest(ctx context.Context, params FeedParams, opts UploadOptions) (string, error) {
	topic, err := params.FeedTopic()
	if err != nil {
		return "", err
	}
	return c.UploadManifest(ctx, api.NewFeedManifest(&feed.Feed{Topic: topic, User: params.User}), opts)
}
