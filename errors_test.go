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

package mfrc522

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Err(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want   error
		name   string
		status Status
	}{
		{name: "ok", status: StatusOK, want: nil},
		{name: "no tag", status: StatusNoTag, want: ErrNoTag},
		{name: "error", status: StatusError, want: ErrProtocol},
		{name: "timeout", status: StatusTimeout, want: ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.want == nil {
				assert.NoError(t, tt.status.Err())
				return
			}
			assert.ErrorIs(t, tt.status.Err(), tt.want)
		})
	}
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "OK", StatusOK.String())
	assert.Equal(t, "NO_TAG", StatusNoTag.String())
	assert.Equal(t, "ERROR", StatusError.String())
	assert.Equal(t, "TIMEOUT", StatusTimeout.String())
	assert.Equal(t, "UNKNOWN", Status(42).String())
}

func TestLinkError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", NewLinkError("read", StatusNoTag))
	assert.ErrorIs(t, err, ErrNoTag)
	assert.Contains(t, err.Error(), "read: status NO_TAG")

	var le *LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, StatusNoTag, le.Status)

	err = NewLinkError("select", StatusError)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, "select: status ERROR", err.Error())
}

func TestBusError(t *testing.T) {
	t.Parallel()

	io := errors.New("i/o error")
	err := NewBusError("read", "/dev/spidev0.0", io)
	assert.ErrorIs(t, err, io)
	assert.Equal(t, "read /dev/spidev0.0: i/o error", err.Error())
	assert.Equal(t, "write: i/o error", NewBusError("write", "", io).Error())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "no tag", err: ErrNoTag, want: true},
		{name: "status timeout", err: NewLinkError("x", StatusTimeout), want: true},
		{name: "no data", err: fmt.Errorf("block 4: %w", ErrNoData), want: true},
		{name: "bus", err: NewBusError("read", "mock", ErrBusIO), want: false},
		{name: "argument", err: ErrInvalidArgument, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
