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

import "fmt"

// SessionState is the acquisition state of one card tap
type SessionState int

// Session states
const (
	SessionIdle SessionState = iota
	SessionRequested
	SessionAnticollided
	SessionSelected
	SessionAuthenticated
)

// String returns the state name
func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionRequested:
		return "requested"
	case SessionAnticollided:
		return "anticollided"
	case SessionSelected:
		return "selected"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session walks one card through request, anticollision, selection and
// authentication, and rejects steps taken out of order.
//
// A Session holds per-tap state only. Like Device it is not safe for
// concurrent use.
type Session struct {
	dev    *Device
	uid    UID
	state  SessionState
	sector int
	sak    byte
}

// NewSession creates an idle session on dev
func NewSession(dev *Device) *Session {
	return &Session{dev: dev, sector: -1}
}

// State returns the current state
func (s *Session) State() SessionState {
	return s.state
}

// UID returns the UID found by anticollision
func (s *Session) UID() UID {
	return s.uid
}

// SAK returns the select acknowledge byte
func (s *Session) SAK() byte {
	return s.sak
}

// Sector returns the authenticated sector, or -1
func (s *Session) Sector() int {
	return s.sector
}

func (s *Session) expect(op string, states ...SessionState) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrInvalidState, op, s.state)
}

func (s *Session) reset() {
	s.state = SessionIdle
	s.uid = UID{}
	s.sak = 0
	s.sector = -1
}

// Request sends REQA or WUPA
func (s *Session) Request(mode byte) (Status, error) {
	if err := s.expect("request", SessionIdle); err != nil {
		return StatusError, err
	}
	status, err := s.dev.Request(mode)
	if err != nil || status != StatusOK {
		s.reset()
		return status, err
	}
	s.state = SessionRequested
	return status, nil
}

// Anticoll recovers the UID of the answering card
func (s *Session) Anticoll() (UID, Status, error) {
	if err := s.expect("anticollision", SessionRequested); err != nil {
		return UID{}, StatusError, err
	}
	uid, status, err := s.dev.Anticoll()
	if err != nil || status != StatusOK {
		s.reset()
		return uid, status, err
	}
	s.uid = uid
	s.state = SessionAnticollided
	return uid, status, nil
}

// Select selects the card found by Anticoll
func (s *Session) Select() (byte, Status, error) {
	if err := s.expect("select", SessionAnticollided); err != nil {
		return 0, StatusError, err
	}
	sak, status, err := s.dev.SelectTag(s.uid)
	if err != nil || status != StatusOK {
		s.reset()
		return 0, status, err
	}
	s.sak = sak
	s.state = SessionSelected
	return sak, status, nil
}

// Begin runs Request, Anticoll and Select from the idle state
func (s *Session) Begin(mode byte) (UID, Status, error) {
	s.reset()

	if status, err := s.Request(mode); err != nil || status != StatusOK {
		return UID{}, status, err
	}
	uid, status, err := s.Anticoll()
	if err != nil || status != StatusOK {
		return UID{}, status, err
	}
	if _, status, err := s.Select(); err != nil || status != StatusOK {
		return UID{}, status, err
	}
	return uid, StatusOK, nil
}

// Authenticate authenticates the sector holding block. On failure the
// session stays selected so the other key can be tried.
func (s *Session) Authenticate(t KeyType, block byte, key Key) (Status, error) {
	if err := s.expect("authenticate", SessionSelected, SessionAuthenticated); err != nil {
		return StatusError, err
	}
	status, err := s.dev.Authenticate(t, block, key, s.uid)
	if err != nil || status != StatusOK {
		s.state = SessionSelected
		s.sector = -1
		return status, err
	}
	s.state = SessionAuthenticated
	s.sector = SectorOf(int(block))
	return status, nil
}

// AuthenticateWith authenticates with keys from store, trying key A then key B
func (s *Session) AuthenticateWith(store KeyStore, block byte) (Status, error) {
	sk, err := store.SectorKey(SectorOf(int(block)))
	if err != nil {
		return StatusError, err
	}
	status, err := s.Authenticate(KeyA, block, sk.A)
	if err != nil || status == StatusOK {
		return status, err
	}
	if err := s.dev.reselect(s.uid); err != nil {
		return StatusError, err
	}
	return s.Authenticate(KeyB, block, sk.B)
}

// ReadBlock reads block from the authenticated sector
func (s *Session) ReadBlock(block byte) ([]byte, Status, error) {
	if err := s.expect("read", SessionAuthenticated); err != nil {
		return nil, StatusError, err
	}
	return s.dev.ReadBlock(block)
}

// WriteBlock writes block in the authenticated sector
func (s *Session) WriteBlock(block byte, data []byte) (Status, error) {
	if err := s.expect("write", SessionAuthenticated); err != nil {
		return StatusError, err
	}
	return s.dev.WriteBlock(block, data)
}

// Increment adds delta to a value block
func (s *Session) Increment(block byte, delta int32) (Status, error) {
	if err := s.expect("increment", SessionAuthenticated); err != nil {
		return StatusError, err
	}
	return s.dev.Increment(block, delta)
}

// Decrement subtracts delta from a value block
func (s *Session) Decrement(block byte, delta int32) (Status, error) {
	if err := s.expect("decrement", SessionAuthenticated); err != nil {
		return StatusError, err
	}
	return s.dev.Decrement(block, delta)
}

// Restore loads a value block into the transfer buffer
func (s *Session) Restore(block byte) (Status, error) {
	if err := s.expect("restore", SessionAuthenticated); err != nil {
		return StatusError, err
	}
	return s.dev.Restore(block)
}

// Transfer commits the transfer buffer to block
func (s *Session) Transfer(block byte) (Status, error) {
	if err := s.expect("transfer", SessionAuthenticated); err != nil {
		return StatusError, err
	}
	return s.dev.Transfer(block)
}

// Halt halts the selected card and returns the session to idle
func (s *Session) Halt() (Status, error) {
	if err := s.expect("halt", SessionSelected, SessionAuthenticated); err != nil {
		return StatusError, err
	}
	status, err := s.dev.Halt()
	s.reset()
	return status, err
}

// Close stops Crypto1 and returns the session to idle
func (s *Session) Close() error {
	s.reset()
	return s.dev.StopCrypto1()
}
