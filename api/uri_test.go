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
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/bzzclient/storage/feed"
)

const (
	testBase = "http://localhost:8500/"
	testHash = "d1f25a870a7bb7e5d526a7623338e4e9b8399e76df8b634020d11d969594f24a"
)

func TestModeScheme(t *testing.T) {
	tests := map[Mode]string{
		"":            "bzz:/",
		"nonsense":    "bzz:/",
		ModeDefault:   "bzz:/",
		ModeRaw:       "bzz-raw:/",
		ModeImmutable: "bzz-immutable:/",
		ModeFeed:      "bzz-feed:/",
	}
	for mode, expected := range tests {
		if scheme := mode.Scheme(); scheme != expected {
			t.Errorf("mode %q: expected scheme %q, got %q", mode, expected, scheme)
		}
	}
}

func TestNewResolverAddsSlash(t *testing.T) {
	if base := NewResolver("http://localhost:8500").Base; base != testBase {
		t.Fatalf("expected base %q, got %q", testBase, base)
	}
	if base := NewResolver(testBase).Base; base != testBase {
		t.Fatalf("expected base %q, got %q", testBase, base)
	}
}

func TestDownloadURL(t *testing.T) {
	r := NewResolver(testBase)
	tests := []struct {
		opts     DownloadOptions
		expected string
	}{
		{DownloadOptions{}, testBase + "bzz:/" + testHash},
		{DownloadOptions{Path: "a/b.txt"}, testBase + "bzz:/" + testHash + "/a/b.txt"},
		{DownloadOptions{Mode: ModeImmutable}, testBase + "bzz-immutable:/" + testHash},
		{DownloadOptions{Mode: ModeRaw}, testBase + "bzz-raw:/" + testHash},
		{DownloadOptions{Mode: ModeRaw, ContentType: "text/plain"}, testBase + "bzz-raw:/" + testHash + "?content_type=text/plain"},
		// the content type override only applies to raw downloads
		{DownloadOptions{Mode: ModeDefault, ContentType: "text/plain"}, testBase + "bzz:/" + testHash},
		{DownloadOptions{Mode: ModeFeed}, testBase + "bzz-feed:/" + testHash},
	}
	for _, test := range tests {
		if url := r.DownloadURL(testHash, test.opts); url != test.expected {
			t.Errorf("%+v: expected %q, got %q", test.opts, test.expected, url)
		}
	}
}

func TestUploadURL(t *testing.T) {
	r := NewResolver(testBase)
	tests := []struct {
		opts     UploadOptions
		raw      bool
		expected string
	}{
		{UploadOptions{}, false, testBase + "bzz:/"},
		{UploadOptions{}, true, testBase + "bzz-raw:/"},
		{UploadOptions{ManifestHash: testHash}, false, testBase + "bzz:/" + testHash + "/"},
		{UploadOptions{ManifestHash: testHash, Path: "a/b"}, false, testBase + "bzz:/" + testHash + "/a/b"},
		{UploadOptions{DefaultPath: "index.html"}, false, testBase + "bzz:/?defaultpath=index.html"},
		{UploadOptions{ManifestHash: testHash, DefaultPath: "index.html"}, false, testBase + "bzz:/" + testHash + "/?defaultpath=index.html"},
	}
	for _, test := range tests {
		if url := r.UploadURL(test.opts, test.raw); url != test.expected {
			t.Errorf("%+v raw=%v: expected %q, got %q", test.opts, test.raw, test.expected, url)
		}
	}
}

func TestFeedURL(t *testing.T) {
	r := NewResolver(testBase)
	user := common.HexToAddress("0x876A8936A7Cd0b79Ef0735AD0896c1AFe278781c")
	time := uint64(1538650124)
	level := uint8(25)
	topic := "0x666f6f0000000000000000000000000000000000000000000000000000000000"

	tests := []struct {
		name     string
		query    FeedQuery
		meta     bool
		expected string
	}{
		{
			name:     "user only",
			query:    FeedQuery{User: user},
			expected: testBase + "bzz-feed:/?user=0x876a8936a7cd0b79ef0735ad0896c1afe278781c",
		},
		{
			name:     "name with meta",
			query:    FeedQuery{User: user, Name: "hello world"},
			meta:     true,
			expected: testBase + "bzz-feed:/?user=0x876a8936a7cd0b79ef0735ad0896c1afe278781c&name=hello+world&meta=1",
		},
		{
			name:     "signed update",
			query:    FeedQuery{User: user, Topic: topic, Time: &time, Level: &level, Signature: []byte{0xca, 0xfe}},
			expected: testBase + "bzz-feed:/?user=0x876a8936a7cd0b79ef0735ad0896c1afe278781c&topic=" + topic + "&time=1538650124&level=25&signature=0xcafe",
		},
		{
			name:     "manifest",
			query:    FeedQuery{ManifestHash: testHash},
			expected: testBase + "bzz-feed:/" + testHash,
		},
		{
			name:     "manifest with meta",
			query:    FeedQuery{ManifestHash: testHash, Name: "ignored"},
			meta:     true,
			expected: testBase + "bzz-feed:/" + testHash + "?meta=1",
		},
	}
	for _, test := range tests {
		if url := r.FeedURL(test.query, test.meta); url != test.expected {
			t.Errorf("%s: expected %q, got %q", test.name, test.expected, url)
		}
	}
}

func TestHashAndListURL(t *testing.T) {
	r := NewResolver(testBase)
	if url := r.HashURL("theswarm.eth"); url != testBase+"bzz-hash:/theswarm.eth" {
		t.Errorf("unexpected hash URL %q", url)
	}
	if url := r.ListURL(testHash, ""); url != testBase+"bzz-list:/"+testHash {
		t.Errorf("unexpected list URL %q", url)
	}
	if url := r.ListURL(testHash, "dir1/"); url != testBase+"bzz-list:/"+testHash+"/dir1/" {
		t.Errorf("unexpected list URL %q", url)
	}
}

func TestFeedManifestJSON(t *testing.T) {
	topic, _ := feed.NewTopic("foo", nil)
	fd := &feed.Feed{
		Topic: topic,
		User:  common.HexToAddress("0x876A8936A7Cd0b79Ef0735AD0896c1AFe278781c"),
	}
	data, err := json.Marshal(NewFeedManifest(fd))
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"entries":[{"contentType":"application/bzz-feed","mod_time":"0001-01-01T00:00:00Z","feed":{"topic":"0x666f6f0000000000000000000000000000000000000000000000000000000000","user":"0x876a8936a7cd0b79ef0735ad0896c1afe278781c"}}]}`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}
}
