// go-mfrc522
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mfrc522.
//
// go-mfrc522 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mfrc522 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mfrc522; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package i2c

import (
	"context"
	"testing"

	"github.com/ZaparooProject/go-mfrc522/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func playbackRef(name string, ops ...i2ctest.IO) *i2creg.Ref {
	return &i2creg.Ref{
		Name: name,
		Open: func() (i2c.BusCloser, error) {
			return &i2ctest.Playback{Ops: ops, DontPanic: true}, nil
		},
	}
}

func TestDetectRefs_SafeProbesDefaultAddress(t *testing.T) {
	t.Parallel()

	ref := playbackRef("I2C1", i2ctest.IO{Addr: 0x28, W: []byte{0x37}, R: []byte{0x92}})
	opts := detection.DefaultOptions()

	devices, err := detectRefs(context.Background(), []*i2creg.Ref{ref}, &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "I2C1:0x28", devices[0].Path)
	assert.Equal(t, byte(0x92), devices[0].Version)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "0x28", devices[0].Metadata["address"])
}

func TestDetectRefs_FullScansAllAddresses(t *testing.T) {
	t.Parallel()

	// only 0x2A answers with a chip version; the playback errors on the rest
	ops := make([]i2ctest.IO, 0, 8)
	for addr := uint16(0x28); addr <= 0x2F; addr++ {
		v := byte(0x00)
		if addr == 0x2A {
			v = 0x91
		}
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{0x37}, R: []byte{v}})
	}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Full

	devices, err := detectRefs(context.Background(), []*i2creg.Ref{playbackRef("I2C1", ops...)}, &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "I2C1:0x2A", devices[0].Path)
	assert.Equal(t, byte(0x91), devices[0].Version)
}

func TestDetectRefs_Passive(t *testing.T) {
	t.Parallel()

	ref := playbackRef("I2C1")
	opts := detection.DefaultOptions()
	opts.Mode = detection.Passive

	devices, err := detectRefs(context.Background(), []*i2creg.Ref{ref}, &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, detection.Medium, devices[0].Confidence)
	assert.Zero(t, devices[0].Version)
}

func TestDetectRefs_NoAnswer(t *testing.T) {
	t.Parallel()

	opts := detection.DefaultOptions()
	_, err := detectRefs(context.Background(), []*i2creg.Ref{playbackRef("I2C1")}, &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetector_Transport(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "i2c", New().Transport())
}
