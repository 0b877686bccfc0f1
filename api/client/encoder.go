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
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"time"

	"github.com/ethersphere/bzzclient/api"
)

// FormEncoder turns a directory into a request body the gateway accepts on
// bzz:/ uploads, along with the headers describing it
type FormEncoder interface {
	Encode(dir api.Directory) (io.Reader, http.Header, error)
}

// FormEncoderFunc adapts a function to the FormEncoder interface
type FormEncoderFunc func(dir api.Directory) (io.Reader, http.Header, error)

// Encode calls f(dir)
func (f FormEncoderFunc) Encode(dir api.Directory) (io.Reader, http.Header, error) {
	return f(dir)
}

// MultipartEncoder encodes directories as multipart/form-data, one part per
// file named after its path
type MultipartEncoder struct{}

// Encode implements FormEncoder
func (MultipartEncoder) Encode(dir api.Directory) (io.Reader, http.Header, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for _, path := range sortedPaths(dir) {
		file := dir[path]
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf("form-data; name=%q; filename=%q", path, path))
		if file.ContentType != "" {
			hdr.Set("Content-Type", file.ContentType)
		}
		hdr.Set("Content-Length", strconv.Itoa(len(file.Data)))
		w, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, nil, err
		}
		if _, err := w.Write(file.Data); err != nil {
			return nil, nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}
	header := make(http.Header)
	header.Set("Content-Type", mw.FormDataContentType())
	header.Set("Content-Length", strconv.Itoa(body.Len()))
	return body, header, nil
}

// TarEncoder encodes directories as an application/x-tar stream
type TarEncoder struct {
	ModTime time.Time // applied to every entry, zero means now
}

// Encode implements FormEncoder
func (e TarEncoder) Encode(dir api.Directory) (io.Reader, http.Header, error) {
	modTime := e.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	body := new(bytes.Buffer)
	tw := tar.NewWriter(body)
	for _, path := range sortedPaths(dir) {
		file := dir[path]
		hdr := &tar.Header{
			Name:     path,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(file.Data)),
			ModTime:  modTime,
			Format:   tar.FormatPAX,
		}
		if file.ContentType != "" {
			hdr.PAXRecords = map[string]string{api.TarContentTypeKey: file.ContentType}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, nil, err
		}
		if _, err := tw.Write(file.Data); err != nil {
			return nil, nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, nil, err
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/x-tar")
	header.Set("Content-Length", strconv.Itoa(body.Len()))
	return body, header, nil
}

func sortedPaths(dir api.Directory) []string {
	paths := make([]string, 0, len(dir))
	for path := range dir {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
