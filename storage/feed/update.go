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
	"github.com/ethereum/go-ethereum/crypto"
)

// ProtocolVersion defines the current version of the feed update header
const ProtocolVersion uint8 = 0

const headerLength = 8

// chunkSize is the payload size of a swarm chunk, an update must fit in one
const chunkSize = 4096

// MaxUpdateDataLength indicates the maximum payload size for a feed update
const MaxUpdateDataLength = chunkSize - signatureLength - idLength - headerLength

// Header reserves the first bytes of an update for the protocol version
type Header struct {
	Version uint8
	Padding [headerLength - 1]uint8
}

// Metadata is what the gateway reports about a feed when queried with meta=1:
// the feed identity, the epoch the next update must be stored at and the
// header version the update must be signed with.
type Metadata struct {
	Feed            Feed  `json:"feed"`
	Epoch           Epoch `json:"epoch"`
	ProtocolVersion uint8 `json:"protocolVersion"`
}

// ID returns the update ID the metadata points at
func (m *Metadata) ID() ID {
	return ID{Feed: m.Feed, Epoch: m.Epoch}
}

// update is the signed portion of a feed update, laid out as
// Header|ID|data
type update struct {
	Header
	ID
	data []byte
}

func (r *update) binaryLength() int {
	return headerLength + idLength + len(r.data)
}

func (r *update) binaryPut(serializedData []byte) error {
	datalength := len(r.data)
	if datalength == 0 {
		return NewError(ErrInvalidValue, "a feed update must contain data")
	}
	if datalength > MaxUpdateDataLength {
		return NewErrorf(ErrInvalidValue, "feed update data is too big (length=%d). Max length=%d", datalength, MaxUpdateDataLength)
	}
	if len(serializedData) != r.binaryLength() {
		return NewErrorf(ErrInvalidValue, "slice passed to putBinary must be of exact size. Expected %d bytes", r.binaryLength())
	}

	var cursor int
	serializedData[cursor] = r.Header.Version
	copy(serializedData[cursor+1:headerLength], r.Header.Padding[:])
	cursor += headerLength

	if err := r.ID.binaryPut(serializedData[cursor : cursor+idLength]); err != nil {
		return err
	}
	cursor += idLength

	copy(serializedData[cursor:], r.data)
	return nil
}

// Digest computes the value a feed owner has to sign to authorize storing
// data at the epoch described by meta. It only depends on its arguments.
func Digest(meta *Metadata, data []byte) (common.Hash, error) {
	u := &update{
		Header: Header{Version: meta.ProtocolVersion},
		ID:     meta.ID(),
		data:   data,
	}
	serialized := make([]byte, u.binaryLength())
	if err := u.binaryPut(serialized); err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(serialized), nil
}

// Verify checks that signature was produced by the feed user over the digest
// of meta and data
func Verify(meta *Metadata, data []byte, signature []byte) error {
	if len(signature) != signatureLength {
		return NewErrorf(ErrInvalidSignature, "signature must be %d bytes long, got %d", signatureLength, len(signature))
	}
	digest, err := Digest(meta, data)
	if err != nil {
		return err
	}
	var sig Signature
	copy(sig[:], signature)
	owner, err := getUserAddr(digest, sig)
	if err != nil {
		return NewError(ErrInvalidSignature, "Error verifying signature")
	}
	if owner != meta.Feed.User {
		return NewError(ErrInvalidSignature, "signature is valid but signer does not own the feed")
	}
	return nil
}
