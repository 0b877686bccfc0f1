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

package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Mode selects how the gateway interprets a hash
type Mode string

const (
	ModeDefault   Mode = "default"
	ModeRaw       Mode = "raw"
	ModeImmutable Mode = "immutable"
	ModeFeed      Mode = "feed"
)

// URL schemes understood by the gateway
const (
	SchemeBzz          = "bzz:/"
	SchemeBzzRaw       = "bzz-raw:/"
	SchemeBzzImmutable = "bzz-immutable:/"
	SchemeBzzFeed      = "bzz-feed:/"
	SchemeBzzHash      = "bzz-hash:/"
	SchemeBzzList      = "bzz-list:/"
)

var modeSchemes = map[Mode]string{
	ModeDefault:   SchemeBzz,
	ModeRaw:       SchemeBzzRaw,
	ModeImmutable: SchemeBzzImmutable,
	ModeFeed:      SchemeBzzFeed,
}

// Scheme returns the URL scheme of the mode, bzz:/ for unknown modes
func (m Mode) Scheme() string {
	if scheme, ok := modeSchemes[m]; ok {
		return scheme
	}
	return SchemeBzz
}

// DownloadOptions selects what to fetch from a manifest or raw hash
type DownloadOptions struct {
	Mode        Mode
	Path        string
	ContentType string // only sent in raw mode
}

// UploadOptions selects where new content is stored
type UploadOptions struct {
	ManifestHash string // add to an existing manifest instead of creating one
	Path         string // path inside ManifestHash
	DefaultPath  string // entry served for an empty path
}

// FeedQuery identifies a feed either by the hash of a feed manifest or by
// user and topic and/or name. Nil Time and Level are left out of the query.
type FeedQuery struct {
	User         common.Address
	ManifestHash string
	Topic        string
	Name         string
	Time         *uint64
	Level        *uint8
	Signature    []byte
}

// Resolver builds gateway URLs. It performs no I/O.
type Resolver struct {
	Base string
}

// NewResolver creates a Resolver for the gateway at base, which always ends
// up with a trailing slash
func NewResolver(base string) *Resolver {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Resolver{Base: base}
}

// DownloadURL returns {base}{scheme}{hash}[/{path}], with a content_type
// query for raw downloads that override the content type
func (r *Resolver) DownloadURL(hash string, opts DownloadOptions) string {
	uri := r.Base + opts.Mode.Scheme() + hash
	if opts.Path != "" {
		uri += "/" + opts.Path
	}
	if opts.Mode == ModeRaw && opts.ContentType != "" {
		uri += "?content_type=" + opts.ContentType
	}
	return uri
}

// UploadURL returns {base}{scheme} for new content or
// {base}{scheme}{manifest}/[{path}] to update a manifest in place
func (r *Resolver) UploadURL(opts UploadOptions, raw bool) string {
	scheme := SchemeBzz
	if raw {
		scheme = SchemeBzzRaw
	}
	uri := r.Base + scheme
	if opts.ManifestHash != "" {
		uri += opts.ManifestHash + "/" + opts.Path
	}
	if opts.DefaultPath != "" {
		uri += "?defaultpath=" + opts.DefaultPath
	}
	return uri
}

// FeedURL returns the bzz-feed:/ URL for q. When meta is set the gateway
// answers with the feed metadata instead of its content.
func (r *Resolver) FeedURL(q FeedQuery, meta bool) string {
	uri := r.Base + SchemeBzzFeed
	var query []string
	if q.ManifestHash != "" {
		uri += q.ManifestHash
	} else {
		query = append(query, "user="+strings.ToLower(q.User.Hex()))
		if q.Topic != "" {
			query = append(query, "topic="+q.Topic)
		}
		if q.Name != "" {
			query = append(query, "name="+url.QueryEscape(q.Name))
		}
		if q.Time != nil {
			query = append(query, "time="+strconv.FormatUint(*q.Time, 10))
		}
		if q.Level != nil {
			query = append(query, "level="+strconv.FormatUint(uint64(*q.Level), 10))
		}
		if q.Signature != nil {
			query = append(query, "signature="+hexutil.Encode(q.Signature))
		}
	}
	if meta {
		query = append(query, "meta=1")
	}
	if len(query) == 0 {
		return uri
	}
	return uri + "?" + strings.Join(query, "&")
}

// HashURL returns the bzz-hash:/ URL resolving a domain or hash
func (r *Resolver) HashURL(domain string) string {
	return r.Base + SchemeBzzHash + domain
}

// ListURL returns the bzz-list:/ URL of a manifest, optionally below path
func (r *Resolver) ListURL(hash, path string) string {
	uri := r.Base + SchemeBzzList + hash
	if path != "" {
		uri += "/" + path
	}
	return uri
}
