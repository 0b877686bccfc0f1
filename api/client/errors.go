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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrTimeout         = errors.New("timeout")
	ErrMissingSigner   = errors.New("missing signing function")
	ErrInvalidInterval = errors.New("poll interval must be greater than zero")
	ErrEmptyData       = errors.New("data size must be greater than zero")
)

// HTTPError is returned for every gateway response outside of the 2xx range
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 gateway response
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsStatus reports whether err is a gateway response with the given status
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}

func statusText(res *http.Response) string {
	if text := strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)+" "); text != "" && text != res.Status {
		return text
	}
	return http.StatusText(res.StatusCode)
}

// resOrError turns a non 2xx response into an *HTTPError, closing its body
func resOrError(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	res.Body.Close()
	return &HTTPError{Status: res.StatusCode, Message: statusText(res)}
}

func resText(res *http.Response, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if err := resOrError(res); err != nil {
		return "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func resJSON(res *http.Response, err error, v interface{}) error {
	if err != nil {
		return err
	}
	if err := resOrError(res); err != nil {
		return err
	}
	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(v)
}
