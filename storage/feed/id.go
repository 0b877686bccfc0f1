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

package feed

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ID uniquely identifies an update on the network.
type ID struct {
	Feed  `json:"feed"`
	Epoch `json:"epoch"`
}

// ID layout:
// Feed feedLength bytes
// Epoch EpochLength
const idLength = feedLength + EpochLength

// Addr calculates the feed update chunk address corresponding to this ID
func (u *ID) Addr() common.Hash {
	serializedData := make([]byte, idLength)
	var cursor int
	u.Feed.binaryPut(serializedData[cursor : cursor+feedLength])
	cursor += feedLength

	eid := u.Epoch.ID()
	copy(serializedData[cursor:cursor+EpochLength], eid[:])

	return crypto.Keccak256Hash(serializedData)
}

// binaryPut serializes this instance into the provided slice
func (u *ID) binaryPut(serializedData []byte) error {
	if len(serializedData) != idLength {
		return NewErrorf(ErrInvalidValue, "Incorrect slice size to serialize ID. Expected %d, got %d", idLength, len(serializedData))
	}
	var cursor int
	if err := u.Feed.binaryPut(serializedData[cursor : cursor+feedLength]); err != nil {
		return err
	}
	cursor += feedLength

	return u.Epoch.binaryPut(serializedData[cursor : cursor+EpochLength])
}

// binaryLength returns the expected size of this structure when serialized
func (u *ID) binaryLength() int {
	return idLength
}

// binaryGet restores the current instance from the information contained in the passed slice
func (u *ID) binaryGet(serializedData []byte) error {
	if len(serializedData) != idLength {
		return NewErrorf(ErrInvalidValue, "Incorrect slice size to read ID. Expected %d, got %d", idLength, len(serializedData))
	}

	var cursor int
	if err := u.Feed.binaryGet(serializedData[cursor : cursor+feedLength]); err != nil {
		return err
	}
	cursor += feedLength

	return u.Epoch.binaryGet(serializedData[cursor : cursor+EpochLength])
}

// Hex serializes the ID to a hex string
func (u *ID) Hex() string {
	serializedData := make([]byte, idLength)
	u.binaryPut(serializedData)
	return hexutil.Encode(serializedData)
}
