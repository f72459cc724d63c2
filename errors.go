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
)

// Link errors, returned by Status.Err
var (
	ErrNoTag    = errors.New("no tag")
	ErrProtocol = errors.New("protocol error")
	ErrTimeout  = errors.New("operation timeout")
)

// Data and usage errors
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoData            = errors.New("no data read")
	ErrInvalidValueBlock = errors.New("invalid value block")
	ErrBCCMismatch       = errors.New("UID check byte mismatch")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidState      = errors.New("invalid session state")
)

// Bus errors
var (
	ErrBusClosed      = errors.New("bus closed")
	ErrBusIO          = errors.New("bus I/O failed")
	ErrDeviceNotFound = errors.New("device not found")
	ErrEchoMismatch   = errors.New("echo mismatch")
)

// BusError describes a failed register exchange on a bus
type BusError struct {
	Err  error
	Op   string
	Port string
}

// NewBusError creates a new bus error
func NewBusError(op, port string, err error) *BusError {
	return &BusError{Op: op, Port: port, Err: err}
}

// Error implements the error interface
func (e *BusError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *BusError) Unwrap() error {
	return e.Err
}

// LinkError carries a non-OK link status through an error return.
type LinkError struct {
	Op     string
	Status Status
}

// NewLinkError creates a new link error
func NewLinkError(op string, status Status) *LinkError {
	return &LinkError{Op: op, Status: status}
}

// Error implements the error interface
func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: status %s", e.Op, e.Status)
}

// Unwrap maps the status to its sentinel so errors.Is(err, ErrNoTag) works
func (e *LinkError) Unwrap() error {
	return e.Status.Err()
}

// IsRetryable reports whether err is a link condition worth retrying
// after the card is re-presented.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrNoTag),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrProtocol),
		errors.Is(err, ErrBCCMismatch),
		errors.Is(err, ErrNoData):
		return true
	default:
		return false
	}
}
