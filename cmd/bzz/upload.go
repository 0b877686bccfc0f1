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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethersphere/bzzclient/api"
	"github.com/ethersphere/bzzclient/api/client"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var (
	UploadMimeTypeFlag = &cli.StringFlag{
		Name:  "mime",
		Usage: "Content type of uploaded files, detected when empty",
	}
	UploadRawFlag = &cli.BoolFlag{
		Name:  "raw",
		Usage: "Upload the bytes without wrapping them in a manifest",
	}
	UploadManifestFlag = &cli.StringFlag{
		Name:  "manifest",
		Usage: "Add the content to an existing manifest",
	}
	UploadPathFlag = &cli.StringFlag{
		Name:  "path",
		Usage: "Manifest path of the uploaded content",
	}
	UploadDefaultPathFlag = &cli.StringFlag{
		Name:  "defaultpath",
		Usage: "File of a directory upload served for the empty path",
	}
	UploadTarFlag = &cli.BoolFlag{
		Name:  "tar",
		Usage: "Send directories as a tar stream instead of a multipart form",
	}
	DownloadPathFlag = &cli.StringFlag{
		Name:  "path",
		Usage: "Path inside the manifest",
	}
	DownloadModeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Download mode (default, raw, immutable, feed)",
		Value: string(api.ModeDefault),
	}
	DownloadContentTypeFlag = &cli.StringFlag{
		Name:  "content-type",
		Usage: "Content type served for raw downloads",
	}
	DownloadOutputFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Write the content to a file instead of stdout",
	}
)

var (
	upCommand = &cli.Command{
		Action:    upload,
		Name:      "up",
		Usage:     "Upload files and directories",
		ArgsUsage: "<file|dir|->...",
		Flags: []cli.Flag{
			UploadMimeTypeFlag,
			UploadRawFlag,
			UploadManifestFlag,
			UploadPathFlag,
			UploadDefaultPathFlag,
			UploadTarFlag,
		},
		Description: `Uploads every argument and prints one hash per argument in the same order.
A "-" argument reads the content from stdin.

With --manifest and several arguments the files are added one after the
other, each under its base name, and the last hash printed is the manifest
holding all of them.`,
	}
	downCommand = &cli.Command{
		Action:    download,
		Name:      "down",
		Usage:     "Download content",
		ArgsUsage: "<hash>",
		Flags: []cli.Flag{
			DownloadPathFlag,
			DownloadModeFlag,
			DownloadContentTypeFlag,
			DownloadOutputFlag,
		},
	}
	lsCommand = &cli.Command{
		Action:    list,
		Name:      "ls",
		Usage:     "List the entries of a manifest",
		ArgsUsage: "<hash> [prefix]",
	}
	hashCommand = &cli.Command{
		Action:    hashDomain,
		Name:      "hash",
		Usage:     "Resolve a domain name or hash to a content hash",
		ArgsUsage: "<domain>",
	}
	rmCommand = &cli.Command{
		Action:    remove,
		Name:      "rm",
		Usage:     "Remove a path from a manifest",
		ArgsUsage: "<hash> <path>",
	}
)

func upload(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("need at least one file, directory or - as argument")
	}
	bzz, _, err := makeClient(ctx)
	if err != nil {
		return err
	}
	opts := client.UploadOptions{
		ContentType:  ctx.String(UploadMimeTypeFlag.Name),
		ManifestHash: ctx.String(UploadManifestFlag.Name),
		Path:         ctx.String(UploadPathFlag.Name),
		DefaultPath:  ctx.String(UploadDefaultPathFlag.Name),
	}
	raw := ctx.Bool(UploadRawFlag.Name)

	var (
		args   = ctx.Args().Slice()
		hashes = make([]string, len(args))
	)
	if len(args) > 1 && opts.Path != "" {
		return errors.New("--path needs a single argument")
	}
	if len(args) > 1 && opts.ManifestHash != "" {
		hashes, err := uploadIntoManifest(ctx.Context, bzz, args, opts, raw)
		if err != nil {
			return err
		}
		for _, hash := range hashes {
			fmt.Fprintln(ctx.App.Writer, hash)
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx.Context)
	for i, arg := range args {
		i := i
		if arg == "-" {
			// stdin can only be consumed once, read it before fanning out
			data, err := io.ReadAll(ctx.App.Reader)
			if err != nil {
				return fmt.Errorf("error reading from stdin: %w", err)
			}
			g.Go(func() error {
				hash, err := uploadData(gctx, bzz, data, "", opts, raw)
				hashes[i] = hash
				return err
			})
			continue
		}
		file := expandPath(arg)
		g.Go(func() error {
			hash, err := uploadPath(gctx, bzz, file, opts, raw)
			if err != nil {
				return fmt.Errorf("upload of %s failed: %w", file, err)
			}
			hashes[i] = hash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, hash := range hashes {
		fmt.Fprintln(ctx.App.Writer, hash)
	}
	return nil
}

// uploadIntoManifest adds the files one by one to opts.ManifestHash, every
// upload extending the manifest returned by the previous one
func uploadIntoManifest(ctx context.Context, bzz *client.Client, args []string, opts client.UploadOptions, raw bool) ([]string, error) {
	if raw {
		return nil, errors.New("raw uploads cannot be added to a manifest")
	}
	hashes := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			return nil, errors.New("stdin cannot be added to a manifest with other files")
		}
		file := expandPath(arg)
		opts.Path = filepath.Base(file)
		hash, err := uploadPath(ctx, bzz, file, opts, false)
		if err != nil {
			return nil, fmt.Errorf("upload of %s failed: %w", file, err)
		}
		opts.ManifestHash = hash
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

func uploadPath(ctx context.Context, bzz *client.Client, file string, opts client.UploadOptions, raw bool) (string, error) {
	stat, err := os.Stat(file)
	if err != nil {
		return "", err
	}
	if stat.IsDir() {
		if raw {
			return "", errors.New("directories cannot be uploaded raw")
		}
		dir, err := readDirectory(file)
		if err != nil {
			return "", err
		}
		log.Debug("Uploading directory", "dir", file, "files", len(dir))
		return bzz.UploadDirectory(ctx, dir, opts)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return uploadData(ctx, bzz, data, file, opts, raw)
}

func uploadData(ctx context.Context, bzz *client.Client, data []byte, file string, opts client.UploadOptions, raw bool) (string, error) {
	if raw {
		opts.ContentType = ""
	} else if opts.ContentType == "" {
		opts.ContentType = detectMimeType(file, data)
	}
	log.Debug("Uploading file", "file", file, "size", len(data), "type", opts.ContentType)
	return bzz.UploadFile(ctx, data, opts)
}

// readDirectory loads every regular file below root, keyed by its slash
// separated path relative to root
func readDirectory(root string) (api.Directory, error) {
	dir := make(api.Directory)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		dir[filepath.ToSlash(rel)] = api.DirectoryEntry{Data: data, ContentType: detectMimeType(p, data)}
		return nil
	})
	return dir, err
}

func download(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the hash as the first and only argument")
	}
	bzz, _, err := makeClient(ctx)
	if err != nil {
		return err
	}
	mode := api.Mode(ctx.String(DownloadModeFlag.Name))
	if _, ok := map[api.Mode]bool{api.ModeDefault: true, api.ModeRaw: true, api.ModeImmutable: true, api.ModeFeed: true}[mode]; !ok {
		return fmt.Errorf("unknown download mode %q", mode)
	}
	res, err := bzz.Download(ctx.Context, ctx.Args().First(), client.DownloadOptions{
		Mode:        mode,
		Path:        ctx.String(DownloadPathFlag.Name),
		ContentType: ctx.String(DownloadContentTypeFlag.Name),
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return writeOutput(ctx, res.Body)
}

// writeOutput copies r to --out or the app writer
func writeOutput(ctx *cli.Context, r io.Reader) error {
	out := ctx.App.Writer
	if file := ctx.String(DownloadOutputFlag.Name); file != "" {
		f, err := os.Create(expandPath(file))
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err := io.Copy(out, r)
	return err
}

func list(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return errors.New("need the manifest hash and an optional prefix as arguments")
	}
	bzz, _, err := makeClient(ctx)
	if err != nil {
		return err
	}
	ls, err := bzz.List(ctx.Context, ctx.Args().Get(0), client.DownloadOptions{Path: ctx.Args().Get(1)})
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Path", "Type", "Size", "Hash"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, prefix := range ls.CommonPrefixes {
		table.Append([]string{prefix, "DIR", "", ""})
	}
	for _, entry := range ls.Entries {
		table.Append([]string{entry.Path, entry.ContentType, fmt.Sprint(entry.Size), entry.Hash})
	}
	table.Render()
	return nil
}

func hashDomain(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the domain as the first and only argument")
	}
	bzz, _, err := makeClient(ctx)
	if err != nil {
		return err
	}
	hash, err := bzz.Hash(ctx.Context, ctx.Args().First(), client.FetchOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, hash)
	return nil
}

func remove(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return errors.New("need the manifest hash and the path as arguments")
	}
	bzz, _, err := makeClient(ctx)
	if err != nil {
		return err
	}
	hash, err := bzz.DeleteResource(ctx.Context, ctx.Args().Get(0), ctx.Args().Get(1), client.FetchOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, hash)
	return nil
}

// Expands a file path
// 1. replace tilde with users home dir
// 2. expands embedded environment variables
// 3. cleans the path, e.g. /a/b/../c -> /a/c
// Note, it has limitations, e.g. ~someuser/tmp will not be expanded
func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home := homeDir(); home != "" {
			p = home + p[1:]
		}
	}
	return path.Clean(os.ExpandEnv(p))
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// detectMimeType guesses the content type from the file extension, falling
// back to sniffing the content
func detectMimeType(file string, data []byte) string {
	if ext := filepath.Ext(file); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType
		}
	}
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}
