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
	"encoding/binary"
	"fmt"
)

// EpochLength stores the serialized binary length of an Epoch
const EpochLength = 8

// MaxTime contains the highest possible time value an Epoch can handle
const MaxTime uint64 = (1 << 56) - 1

// HighestLevel is the level the gateway assigns to the first update of a feed
const HighestLevel uint8 = 25

// Epoch represents a time slot at a particular frequency level. The gateway
// hands out the epoch of the next update; the client never computes one.
type Epoch struct {
	Time  uint64 `json:"time"`  // Time stores the time at which the update or lookup takes place
	Level uint8  `json:"level"` // Level indicates the frequency level as the exponent of a power of 2
}

// EpochID is a unique identifier for an Epoch, based on its level and base time.
type EpochID [8]byte

// Base returns the base time of the Epoch
func (e *Epoch) Base() uint64 {
	return e.Time & (^((1 << e.Level) - 1))
}

// ID Returns the unique identifier of this epoch
func (e *Epoch) ID() EpochID {
	base := e.Base()
	var id EpochID
	binary.LittleEndian.PutUint64(id[:], base)
	id[7] = e.Level
	return id
}

// MarshalBinary implements the encoding.BinaryMarshaller interface
func (e *Epoch) MarshalBinary() (data []byte, err error) {
	b := make([]byte, EpochLength)
	if err := e.binaryPut(b); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaller interface
func (e *Epoch) UnmarshalBinary(data []byte) error {
	return e.binaryGet(data)
}

func (e *Epoch) binaryPut(data []byte) error {
	if len(data) != EpochLength {
		return NewError(ErrInvalidValue, "epoch data has the wrong size")
	}
	if e.Time > MaxTime {
		return NewErrorf(ErrDataOverflow, "epoch time %d does not fit in 7 bytes", e.Time)
	}
	binary.LittleEndian.PutUint64(data, e.Time)
	data[7] = e.Level
	return nil
}

func (e *Epoch) binaryGet(data []byte) error {
	if len(data) != EpochLength {
		return NewError(ErrCorruptData, "epoch data has the wrong size")
	}
	e.Level = data[7]
	var t [8]byte
	copy(t[:7], data[:7])
	e.Time = binary.LittleEndian.Uint64(t[:])
	return nil
}

// After returns true if this epoch occurs later or exactly at the other epoch.
func (e *Epoch) After(epoch Epoch) bool {
	if e.Time == epoch.Time {
		return e.Level < epoch.Level
	}
	return e.Time >= epoch.Time
}

// Equals compares two epochs and returns true if they refer to the same time period.
func (e *Epoch) Equals(epoch Epoch) bool {
	return e.Level == epoch.Level && e.Base() == epoch.Base()
}

// String implements the Stringer interface.
func (e *Epoch) String() string {
	return fmt.Sprintf("Epoch{Time:%d, Level:%d}", e.Time, e.Level)
}
