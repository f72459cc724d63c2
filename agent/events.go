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

package agent

import (
	"time"

	"github.com/google/uuid"
)

// Event types streamed to websocket clients
const (
	EventHello        = "hello"
	EventCardDetected = "card_detected"
	EventCardChanged  = "card_changed"
	EventCardRemoved  = "card_removed"
)

// Event is one JSON message on the /ws stream
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
}

// CardPayload describes the card an event refers to
type CardPayload struct {
	UID    string `json:"uid"`
	Type   string `json:"type"`
	Reader string `json:"reader"`
	SAK    byte   `json:"sak"`
}

// HelloPayload is sent once to each client after it connects
type HelloPayload struct {
	Card     *CardPayload `json:"card,omitempty"`
	ClientID string       `json:"client_id"`
	Reader   string       `json:"reader"`
}

func newEvent(eventType string, payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
