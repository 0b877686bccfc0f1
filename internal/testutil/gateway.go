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

// Package testutil provides an in-memory swarm HTTP gateway for tests.
package testutil

import (
	"archive/tar"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethersphere/bzzclient/api"
	"github.com/ethersphere/bzzclient/storage/feed"
)

var errNotFound = errors.New("not found")

type blob struct {
	data        []byte
	contentType string
}

// FeedUpdate is an update accepted by the gateway
type FeedUpdate struct {
	Epoch feed.Epoch
	Data  []byte
}

// TestGateway is an httptest server speaking the bzz gateway protocol on
// top of in-memory maps. Content hashes are the hex Keccak256 of the data.
type TestGateway struct {
	*httptest.Server

	mu       sync.Mutex
	blobs    map[string]blob
	domains  map[string]string
	feeds    map[common.Hash][]FeedUpdate
	requests []string
	log      log.Logger
}

// NewTestGateway starts a gateway which is closed when the test ends
func NewTestGateway(t testing.TB) *TestGateway {
	g := &TestGateway{
		blobs:   make(map[string]blob),
		domains: make(map[string]string),
		feeds:   make(map[common.Hash][]FeedUpdate),
		log:     log.New("module", "testgateway"),
	}
	g.Server = httptest.NewServer(g)
	t.Cleanup(g.Close)
	return g
}

// Requests returns "METHOD /uri" for every request served so far
func (g *TestGateway) Requests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.requests...)
}

// RegisterDomain makes bzz-hash:/name resolve to hash
func (g *TestGateway) RegisterDomain(name, hash string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.domains[name] = hash
}

// Updates returns the updates accepted for fd in order
func (g *TestGateway) Updates(fd *feed.Feed) []FeedUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]FeedUpdate(nil), g.feeds[feedKey(fd)]...)
}

func (g *TestGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, r.Method+" "+r.URL.RequestURI())
	g.mu.Unlock()
	g.log.Trace("Serving request", "method", r.Method, "uri", r.URL.RequestURI())

	scheme, rest, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), ":/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case scheme == "bzz-raw" && r.Method == http.MethodPost:
		g.handlePostRaw(w, r)
	case scheme == "bzz-raw" && r.Method == http.MethodGet:
		g.handleGetRaw(w, r, rest)
	case scheme == "bzz" && r.Method == http.MethodPost:
		g.handlePostFiles(w, r, rest)
	case scheme == "bzz" && r.Method == http.MethodDelete:
		g.handleDelete(w, r, rest)
	case (scheme == "bzz" || scheme == "bzz-immutable") && r.Method == http.MethodGet:
		g.handleGetFile(w, r, rest, scheme == "bzz")
	case scheme == "bzz-list" && r.Method == http.MethodGet:
		g.handleGetList(w, r, rest)
	case scheme == "bzz-hash" && r.Method == http.MethodGet:
		g.handleGetHash(w, r, rest)
	case scheme == "bzz-feed" && r.Method == http.MethodGet:
		g.handleGetFeed(w, r, rest)
	case scheme == "bzz-feed" && r.Method == http.MethodPost:
		g.handlePostFeed(w, r, rest)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (g *TestGateway) store(data []byte, contentType string) string {
	hash := hex.EncodeToString(crypto.Keccak256(data))
	g.mu.Lock()
	g.blobs[hash] = blob{data: data, contentType: contentType}
	g.mu.Unlock()
	return hash
}

func (g *TestGateway) load(hash string) (blob, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.blobs[hash]
	if !ok {
		return blob{}, errNotFound
	}
	return b, nil
}

func (g *TestGateway) loadManifest(hash string) (*api.Manifest, error) {
	b, err := g.load(hash)
	if err != nil {
		return nil, err
	}
	var m api.Manifest
	if err := json.Unmarshal(b.data, &m); err != nil {
		return nil, errNotFound
	}
	return &m, nil
}

func (g *TestGateway) storeManifest(m *api.Manifest) string {
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path })
	data, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return g.store(data, api.ManifestType)
}

func respondText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, text)
}

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (g *TestGateway) handlePostRaw(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, err)
		return
	}
	if len(data) == 0 {
		http.Error(w, "missing Content-Length header in request", http.StatusBadRequest)
		return
	}
	respondText(w, g.store(data, r.Header.Get("Content-Type")))
}

func (g *TestGateway) handleGetRaw(w http.ResponseWriter, r *http.Request, hash string) {
	b, err := g.load(hash)
	if err != nil {
		respondError(w, err)
		return
	}
	contentType := r.URL.Query().Get("content_type")
	if contentType == "" {
		contentType = b.contentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(b.data)
}

// splitAddr splits "<hash>/<path>" into its parts
func splitAddr(rest string) (string, string) {
	hash, path, _ := strings.Cut(rest, "/")
	return hash, path
}

func (g *TestGateway) handlePostFiles(w http.ResponseWriter, r *http.Request, rest string) {
	contentType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		respondError(w, err)
		return
	}
	hash, prefix := splitAddr(rest)
	manifest := new(api.Manifest)
	if hash != "" {
		if manifest, err = g.loadManifest(hash); err != nil {
			respondError(w, err)
			return
		}
	}

	var entries []api.ManifestEntry
	switch contentType {
	case "application/x-tar":
		entries, err = g.readTar(r.Body, prefix)
	case "multipart/form-data":
		entries, err = g.readMultipart(r.Body, params["boundary"], prefix)
	default:
		var data []byte
		if data, err = io.ReadAll(r.Body); err == nil {
			entries = []api.ManifestEntry{g.addEntry(prefix, r.Header.Get("Content-Type"), data)}
		}
	}
	if err != nil {
		respondError(w, err)
		return
	}
	if defaultPath := r.URL.Query().Get("defaultpath"); defaultPath != "" {
		for _, entry := range entries {
			if entry.Path == defaultPath {
				entry.Path = ""
				entries = append(entries, entry)
				break
			}
		}
	}
	for _, entry := range entries {
		manifest.Entries = removeEntry(manifest.Entries, entry.Path)
		manifest.Entries = append(manifest.Entries, entry)
	}
	respondText(w, g.storeManifest(manifest))
}

func (g *TestGateway) addEntry(path, contentType string, data []byte) api.ManifestEntry {
	return api.ManifestEntry{
		Hash:        g.store(data, contentType),
		Path:        path,
		ContentType: contentType,
		Mode:        0644,
		Size:        int64(len(data)),
	}
}

func (g *TestGateway) readTar(body io.Reader, prefix string) ([]api.ManifestEntry, error) {
	var entries []api.ManifestEntry
	tr := tar.NewReader(body)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		} else if err != nil {
			return nil, fmt.Errorf("error reading tar stream: %w", err)
		}
		if !hdr.FileInfo().Mode().IsRegular() {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, g.addEntry(path.Join(prefix, hdr.Name), hdr.PAXRecords[api.TarContentTypeKey], data))
	}
}

func (g *TestGateway) readMultipart(body io.Reader, boundary, prefix string) ([]api.ManifestEntry, error) {
	var entries []api.ManifestEntry
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return entries, nil
		} else if err != nil {
			return nil, fmt.Errorf("error reading multipart form: %w", err)
		}
		// FileName strips directories, the form name carries the full path
		name := part.FormName()
		if name == "" {
			name = part.FileName()
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		entries = append(entries, g.addEntry(path.Join(prefix, name), part.Header.Get("Content-Type"), data))
	}
}

func removeEntry(entries []api.ManifestEntry, path string) []api.ManifestEntry {
	kept := entries[:0]
	for _, entry := range entries {
		if entry.Path != path {
			kept = append(kept, entry)
		}
	}
	return kept
}

func (g *TestGateway) handleDelete(w http.ResponseWriter, r *http.Request, rest string) {
	hash, path := splitAddr(rest)
	manifest, err := g.loadManifest(hash)
	if err != nil {
		respondError(w, err)
		return
	}
	manifest.Entries = removeEntry(manifest.Entries, path)
	respondText(w, g.storeManifest(manifest))
}

func (g *TestGateway) handleGetFile(w http.ResponseWriter, r *http.Request, rest string, resolveFeeds bool) {
	hash, path := splitAddr(rest)
	manifest, err := g.loadManifest(hash)
	if err != nil {
		respondError(w, err)
		return
	}
	for _, entry := range manifest.Entries {
		if entry.Path != path {
			continue
		}
		if entry.ContentType == api.FeedType {
			if !resolveFeeds || entry.Feed == nil {
				respondError(w, errNotFound)
				return
			}
			latest, ok := g.latest(entry.Feed)
			if !ok {
				respondError(w, errNotFound)
				return
			}
			g.handleGetFile(w, r, hex.EncodeToString(latest.Data), false)
			return
		}
		b, err := g.load(entry.Hash)
		if err != nil {
			respondError(w, err)
			return
		}
		if entry.ContentType != "" {
			w.Header().Set("Content-Type", entry.ContentType)
		}
		w.Write(b.data)
		return
	}
	respondError(w, errNotFound)
}

// handleGetList groups the entries below the requested prefix, entries with
// further slashes are collapsed into a common prefix
func (g *TestGateway) handleGetList(w http.ResponseWriter, r *http.Request, rest string) {
	hash, prefix := splitAddr(rest)
	manifest, err := g.loadManifest(hash)
	if err != nil {
		respondError(w, err)
		return
	}
	var (
		list     api.ManifestList
		prefixes = make(map[string]bool)
	)
	for i := range manifest.Entries {
		entry := manifest.Entries[i]
		if !strings.HasPrefix(entry.Path, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(entry.Path, prefix)
		if index := strings.Index(suffix, "/"); index > -1 {
			dir := prefix + suffix[:index+1]
			if !prefixes[dir] {
				prefixes[dir] = true
				list.CommonPrefixes = append(list.CommonPrefixes, dir)
			}
			continue
		}
		if entry.Path == "" {
			entry.Path = "/"
		}
		list.Entries = append(list.Entries, &entry)
	}
	sort.Strings(list.CommonPrefixes)
	respondJSON(w, &list)
}

func (g *TestGateway) handleGetHash(w http.ResponseWriter, r *http.Request, name string) {
	g.mu.Lock()
	hash, ok := g.domains[name]
	g.mu.Unlock()
	if !ok {
		if _, err := g.load(name); err != nil {
			respondError(w, err)
			return
		}
		hash = name
	}
	respondText(w, hash)
}

func feedKey(fd *feed.Feed) common.Hash {
	return crypto.Keccak256Hash(fd.Topic[:], fd.User[:])
}

// resolveFeed finds the feed addressed by a bzz-feed request, either by feed
// manifest hash or by user, topic and name query parameters
func (g *TestGateway) resolveFeed(r *http.Request, hash string) (*feed.Feed, error) {
	if hash != "" {
		manifest, err := g.loadManifest(hash)
		if err != nil {
			return nil, err
		}
		for _, entry := range manifest.Entries {
			if entry.ContentType == api.FeedType && entry.Feed != nil {
				return entry.Feed, nil
			}
		}
		return nil, errNotFound
	}
	query := r.URL.Query()
	user := query.Get("user")
	if !common.IsHexAddress(user) {
		return nil, fmt.Errorf("invalid user address %q", user)
	}
	var related []byte
	if topic := query.Get("topic"); topic != "" {
		t, err := feed.NewTopicFromHex(topic)
		if err != nil {
			return nil, err
		}
		if query.Get("name") == "" {
			return &feed.Feed{Topic: t, User: common.HexToAddress(user)}, nil
		}
		related = t[:]
	}
	topic, err := feed.NewTopic(query.Get("name"), related)
	if err != nil {
		return nil, err
	}
	return &feed.Feed{Topic: topic, User: common.HexToAddress(user)}, nil
}

func (g *TestGateway) latest(fd *feed.Feed) (FeedUpdate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	updates := g.feeds[feedKey(fd)]
	if len(updates) == 0 {
		return FeedUpdate{}, false
	}
	return updates[len(updates)-1], true
}

// nextEpoch returns the epoch following last, which keeps moving forward even
// when several updates land within the same second
func nextEpoch(last *feed.Epoch, now uint64) feed.Epoch {
	if last == nil {
		return feed.Epoch{Time: now, Level: feed.HighestLevel}
	}
	next := feed.Epoch{Time: last.Time, Level: last.Level}
	if next.Level > 0 {
		next.Level--
	}
	if now > next.Time {
		next.Time = now
	}
	if !next.After(*last) || next.Equals(*last) {
		next.Time = last.Time + 1
	}
	return next
}

func (g *TestGateway) handleGetFeed(w http.ResponseWriter, r *http.Request, hash string) {
	fd, err := g.resolveFeed(r, hash)
	if err != nil {
		respondError(w, err)
		return
	}
	latest, ok := g.latest(fd)
	if r.URL.Query().Get("meta") != "" {
		var last *feed.Epoch
		if ok {
			last = &latest.Epoch
		}
		respondJSON(w, &feed.Metadata{
			Feed:            *fd,
			Epoch:           nextEpoch(last, feed.TimestampProvider.Now().Time),
			ProtocolVersion: feed.ProtocolVersion,
		})
		return
	}
	if !ok {
		respondError(w, errNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(latest.Data)
}

func (g *TestGateway) handlePostFeed(w http.ResponseWriter, r *http.Request, hash string) {
	fd, err := g.resolveFeed(r, hash)
	if err != nil {
		respondError(w, err)
		return
	}
	query := r.URL.Query()
	epochTime, err := strconv.ParseUint(query.Get("time"), 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("invalid time: %w", err))
		return
	}
	level, err := strconv.ParseUint(query.Get("level"), 10, 8)
	if err != nil {
		respondError(w, fmt.Errorf("invalid level: %w", err))
		return
	}
	signature, err := hexutil.Decode(query.Get("signature"))
	if err != nil {
		respondError(w, fmt.Errorf("invalid signature: %w", err))
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, err)
		return
	}
	meta := &feed.Metadata{
		Feed:            *fd,
		Epoch:           feed.Epoch{Time: epochTime, Level: uint8(level)},
		ProtocolVersion: feed.ProtocolVersion,
	}
	if err := feed.Verify(meta, data, signature); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	key := feedKey(fd)
	if updates := g.feeds[key]; len(updates) > 0 {
		last := updates[len(updates)-1].Epoch
		if meta.Epoch.Equals(last) || !meta.Epoch.After(last) {
			http.Error(w, fmt.Sprintf("epoch %v already used", meta.Epoch.String()), http.StatusConflict)
			return
		}
	}
	g.feeds[key] = append(g.feeds[key], FeedUpdate{Epoch: meta.Epoch, Data: data})
	w.WriteHeader(http.StatusOK)
}
