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

// Status is the uniform result of every chip interaction.
//
// Link conditions (no card, collision, timeout) are routine on a contactless
// link, so they are returned as a Status rather than as an error.
type Status int

const (
	// StatusOK indicates the operation completed and the reply had the expected shape
	StatusOK Status = iota
	// StatusNoTag indicates no card answered before the chip timer fired
	StatusNoTag
	// StatusError indicates a chip error bit, or a reply of the wrong shape
	StatusError
	// StatusTimeout indicates the poll budget ran out before the chip signalled completion
	StatusTimeout
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoTag:
		return "NO_TAG"
	case StatusError:
		return "ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// OK reports whether s is StatusOK
func (s Status) OK() bool {
	return s == StatusOK
}

// Err maps a non-OK status to its sentinel error, or nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNoTag:
		return ErrNoTag
	case StatusTimeout:
		return ErrTimeout
	case StatusError:
		return ErrProtocol
	default:
		return ErrProtocol
	}
}
