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
	"time"

	"github.com/ethersphere/bzzclient/storage/feed"
)

const (
	ManifestType = "application/bzz-manifest+json"
	FeedType     = "application/bzz-feed"
)

// TarContentTypeKey is the PAX record carrying the content type of a file in
// a tar upload
const TarContentTypeKey = "SCHILY.xattr.user.swarm.content-type"

// Manifest represents a swarm manifest
type Manifest struct {
	Entries []ManifestEntry `json:"entries,omitempty"`
}

// ManifestEntry represents an entry in a swarm manifest
type ManifestEntry struct {
	Hash        string     `json:"hash,omitempty"`
	Path        string     `json:"path,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Mode        int64      `json:"mode,omitempty"`
	Size        int64      `json:"size,omitempty"`
	ModTime     time.Time  `json:"mod_time,omitempty"`
	Status      int        `json:"status,omitempty"`
	Feed        *feed.Feed `json:"feed,omitempty"`
}

// ManifestList represents the result of listing files in a manifest
type ManifestList struct {
	CommonPrefixes []string         `json:"common_prefixes,omitempty"`
	Entries        []*ManifestEntry `json:"entries,omitempty"`
}

// NewFeedManifest returns the manifest aliasing fd: a single entry of type
// application/bzz-feed with a zero modification time
func NewFeedManifest(fd *feed.Feed) *Manifest {
	return &Manifest{
		Entries: []ManifestEntry{
			{
				ContentType: FeedType,
				ModTime:     time.Time{},
				Feed:        fd,
			},
		},
	}
}

// DirectoryEntry is one file of a directory upload
type DirectoryEntry struct {
	Data        []byte
	ContentType string
}

// Directory maps manifest paths to file contents
type Directory map[string]DirectoryEntry
