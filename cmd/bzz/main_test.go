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
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/bzzclient/api/client"
	"github.com/ethersphere/bzzclient/internal/testutil"
	"github.com/ethersphere/bzzclient/storage/feed"
	"github.com/stretchr/testify/require"
)

// runBzz runs the command line with stdin as input and returns what it
// printed
func runBzz(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"bzz", "--verbosity", "0"}, args...))
	return out.String(), err
}

// bzzRunner runs commands against a test gateway
type bzzRunner struct {
	t       *testing.T
	gateway *testutil.TestGateway
	key     string
	user    common.Address
}

func newBzzRunner(t *testing.T) *bzzRunner {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "key")
	require.NoError(t, crypto.SaveECDSA(file, key))
	return &bzzRunner{
		t:       t,
		gateway: testutil.NewTestGateway(t),
		key:     file,
		user:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (r *bzzRunner) run(stdin string, args ...string) (string, error) {
	return runBzz(r.t, stdin, append([]string{"--bzzapi", r.gateway.URL, "--key", r.key}, args...)...)
}

// must runs the command and returns its trimmed output
func (r *bzzRunner) must(args ...string) string {
	r.t.Helper()
	out, err := r.run("", args...)
	require.NoError(r.t, err, "bzz %v", args)
	return strings.TrimSpace(out)
}

func TestUpDown(t *testing.T) {
	r := newBzzRunner(t)
	file := writeFile(t, "hello.txt", "hello swarm")

	hash := r.must("up", file)
	require.Len(t, hash, 64)
	require.Equal(t, "hello swarm", r.must("down", hash))

	out := filepath.Join(t.TempDir(), "out.txt")
	r.must("down", "--out", out, hash)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "hello swarm", string(data))
}

func TestUpRawStdin(t *testing.T) {
	r := newBzzRunner(t)
	out, err := r.run("raw bytes", "up", "--raw", "-")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.Equal(t, "raw bytes", r.must("down", "--mode", "raw", hash))

	_, err = r.run("", "down", "--mode", "mutable", hash)
	require.ErrorContains(t, err, "unknown download mode")
}

func TestUpMultiple(t *testing.T) {
	r := newBzzRunner(t)
	var (
		first  = writeFile(t, "a.txt", "first")
		second = writeFile(t, "b.txt", "second")
	)
	hashes := strings.Split(r.must("up", first, second), "\n")
	require.Len(t, hashes, 2)
	require.Equal(t, "first", r.must("down", hashes[0]))
	require.Equal(t, "second", r.must("down", hashes[1]))

	_, err := r.run("", "up", first, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestUpDirectory(t *testing.T) {
	for _, format := range []string{"multipart", "tar"} {
		t.Run(format, func(t *testing.T) {
			r := newBzzRunner(t)
			dir := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0700))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0600))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "main.css"), []byte("h1 {}"), 0600))

			args := []string{"up", "--defaultpath", "index.html", dir}
			if format == "tar" {
				args = append([]string{"up", "--tar"}, args[1:]...)
			}
			hash := r.must(args...)
			require.Equal(t, "h1 {}", r.must("down", "--path", "css/main.css", hash))
			require.Equal(t, "<h1>hi</h1>", r.must("down", hash))

			listing := r.must("ls", hash)
			require.Contains(t, listing, "css/")
			require.Contains(t, listing, "index.html")
			require.Contains(t, listing, "text/html")

			// remove a file from the manifest
			updated := r.must("rm", hash, "css/main.css")
			require.NotEqual(t, hash, updated)
			_, err := r.run("", "down", "--path", "css/main.css", updated)
			require.True(t, client.IsNotFound(err), "got %v", err)
		})
	}
}

func TestUpIntoManifest(t *testing.T) {
	r := newBzzRunner(t)
	base := r.must("up", writeFile(t, "a.txt", "a"))
	updated := r.must("up", "--manifest", base, "--path", "b.txt", writeFile(t, "b.txt", "b"))
	require.Equal(t, "a", r.must("down", updated))
	require.Equal(t, "b", r.must("down", "--path", "b.txt", updated))
}

func TestUpSeveralIntoManifest(t *testing.T) {
	r := newBzzRunner(t)
	base := r.must("up", writeFile(t, "a.txt", "a"))

	hashes := strings.Split(r.must("up", "--manifest", base, writeFile(t, "b.txt", "b"), writeFile(t, "c.txt", "c")), "\n")
	require.Len(t, hashes, 2)

	// the last manifest holds every file
	last := hashes[1]
	require.Equal(t, "a", r.must("down", last))
	require.Equal(t, "b", r.must("down", "--path", "b.txt", last))
	require.Equal(t, "c", r.must("down", "--path", "c.txt", last))

	_, err := r.run("", "up", "--manifest", base, "--path", "x.txt", writeFile(t, "d.txt", "d"), writeFile(t, "e.txt", "e"))
	require.ErrorContains(t, err, "--path needs a single argument")
}

func TestHashCommand(t *testing.T) {
	r := newBzzRunner(t)
	hash := r.must("up", writeFile(t, "index.html", "<h1>hi</h1>"))
	r.gateway.RegisterDomain("theswarm.eth", hash)
	require.Equal(t, hash, r.must("hash", "theswarm.eth"))

	_, err := r.run("", "hash")
	require.Error(t, err)
}

func TestFeedUpdateGet(t *testing.T) {
	r := newBzzRunner(t)
	r.must("feed", "update", "--name", "status", "online")
	require.Equal(t, "online", r.must("feed", "get", "--name", "status"))

	// other clients read with an explicit owner
	out, err := runBzz(t, "", "--bzzapi", r.gateway.URL, "feed", "get", "--user", r.user.Hex(), "--name", "status")
	require.NoError(t, err)
	require.Equal(t, "online", out)

	out, err = r.run("from stdin", "feed", "update", "--name", "status", "-")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Equal(t, "from stdin", r.must("feed", "get", "--name", "status"))
}

func TestFeedUpdateWithoutSigner(t *testing.T) {
	r := newBzzRunner(t)
	_, err := runBzz(t, "", "--bzzapi", r.gateway.URL, "feed", "update", "--user", r.user.Hex(), "--name", "status", "x")
	require.ErrorIs(t, err, client.ErrMissingSigner)

	_, err = runBzz(t, "", "--bzzapi", r.gateway.URL, "feed", "get", "--name", "status")
	require.ErrorContains(t, err, "no feed owner")
	require.Empty(t, r.gateway.Requests())
}

func TestFeedContent(t *testing.T) {
	r := newBzzRunner(t)
	hash := r.must("feed", "update", "--content", "--mime", "text/plain", "--name", "site", "hello")
	require.Len(t, hash, 64)
	require.Equal(t, hash, r.must("feed", "get", "--mode", "content-hash", "--name", "site"))
	require.Equal(t, "hello", r.must("feed", "get", "--mode", "content-response", "--name", "site"))

	// point the feed at other content by hash
	other := r.must("up", "--mime", "text/plain", writeFile(t, "other.txt", "other"))
	r.must("feed", "update", "--hash", "--name", "site", other)
	require.Equal(t, "other", r.must("feed", "get", "--mode", "content-response", "--name", "site"))

	// the feed manifest follows the feed
	manifest := r.must("feed", "create", "--name", "site")
	require.Equal(t, "other", r.must("down", manifest))
	require.Equal(t, "other", r.must("feed", "get", "--mode", "content-response", "--manifest", manifest))
}

func TestFeedMeta(t *testing.T) {
	r := newBzzRunner(t)
	var meta feed.Metadata
	require.NoError(t, json.Unmarshal([]byte(r.must("feed", "meta", "--name", "status")), &meta))
	require.Equal(t, r.user, meta.Feed.User)

	topic, err := client.FeedParams{Name: "status"}.FeedTopic()
	require.NoError(t, err)
	require.Equal(t, topic, meta.Feed.Topic)
}

func TestFeedWatch(t *testing.T) {
	r := newBzzRunner(t)
	hash := r.must("feed", "update", "--content", "--name", "site", "hello")

	out := r.must("feed", "watch", "--mode", "content-hash", "--interval", "20ms", "--changed-only", "--count", "1", "--name", "site")
	require.Equal(t, hash, out)

	out = r.must("feed", "watch", "--mode", "content-response", "--interval", "20ms", "--count", "2", "--name", "site")
	require.Equal(t, "hello\nhello", out)

	_, err := r.run("", "feed", "watch", "--when-empty", "error", "--interval", "20ms", "--name", "missing")
	require.True(t, client.IsNotFound(err), "got %v", err)

	_, err = r.run("", "feed", "watch", "--when-empty", "sometimes", "--name", "site")
	require.ErrorContains(t, err, "unknown empty feed policy")
}
