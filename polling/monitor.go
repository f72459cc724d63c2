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

package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
)

// Config holds the monitor timing
type Config struct {
	PollInterval       time.Duration
	CardRemovalTimeout time.Duration
}

// DefaultConfig returns the default monitor timing
func DefaultConfig() *Config {
	return &Config{
		PollInterval:       250 * time.Millisecond,
		CardRemovalTimeout: time.Second,
	}
}

// Monitor handles continuous card monitoring with state machine.
//
// Each poll wakes every card in the field with WUPA, runs anticollision,
// selects the card and halts it again once the callbacks are done. The
// detected and changed callbacks run while the card is selected, so they
// may authenticate and read before the monitor halts it.
type Monitor struct {
	device         *mfrc522.Device
	config         *Config
	OnCardDetected func(uid mfrc522.UID) error
	OnCardRemoved  func()
	OnCardChanged  func(uid mfrc522.UID) error
	state          CardState
	generation     uint64
	mu             sync.Mutex
}

// NewMonitor creates a new card monitor
func NewMonitor(device *mfrc522.Device, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		device: device,
		config: config,
	}
}

// Start polls until ctx is done and returns ctx.Err()
func (m *Monitor) Start(ctx context.Context) error {
	if m.config.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %v", mfrc522.ErrInvalidArgument, m.config.PollInterval)
	}
	return m.continuousPolling(ctx)
}

// GetState returns a snapshot of the current card state
func (m *Monitor) GetState() CardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetDevice returns the underlying MFRC522 device
func (m *Monitor) GetDevice() *mfrc522.Device {
	return m.device
}

// Close cleans up the monitor resources
func (m *Monitor) Close() error {
	m.stopRemovalTimer()
	if err := m.device.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}

func (m *Monitor) stopRemovalTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	safeTimerStop(m.state.RemovalTimer)
	m.state.RemovalTimer = nil
}

func (m *Monitor) continuousPolling(ctx context.Context) error {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()
	defer m.stopRemovalTimer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.pollOnce()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) pollOnce() {
	uid, sak, err := m.performSinglePoll()
	if err != nil {
		if !errors.Is(err, ErrNoTagInPoll) {
			m.handlePollingError(err)
		}
		return
	}

	m.processPollingResults(uid, sak)
	m.parkCard()
}

// performSinglePoll runs one WUPA, anticollision and SELECT cycle
func (m *Monitor) performSinglePoll() (mfrc522.UID, byte, error) {
	status, err := m.device.Request(mfrc522.PICCReqAll)
	if err != nil {
		return mfrc522.UID{}, 0, fmt.Errorf("request failed: %w", err)
	}
	if !status.OK() {
		return mfrc522.UID{}, 0, ErrNoTagInPoll
	}

	uid, status, err := m.device.Anticoll()
	if err != nil {
		return mfrc522.UID{}, 0, fmt.Errorf("anticollision failed: %w", err)
	}
	if !status.OK() {
		return mfrc522.UID{}, 0, ErrNoTagInPoll
	}

	sak, status, err := m.device.SelectTag(uid)
	if err != nil {
		return mfrc522.UID{}, 0, fmt.Errorf("select failed: %w", err)
	}
	if !status.OK() {
		return mfrc522.UID{}, 0, ErrNoTagInPoll
	}
	return uid, sak, nil
}

// parkCard ends the crypto session and halts the card until the next WUPA
func (m *Monitor) parkCard() {
	_ = m.device.StopCrypto1()
	_, _ = m.device.Halt()
}

// handlePollingError treats a bus fault as immediate card removal
func (m *Monitor) handlePollingError(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	m.removeCard(0)
}

// removalCallback returns a timer callback bound to the current generation
// so that a timer replaced while it was firing does nothing
func (m *Monitor) removalCallback() func() {
	m.generation++
	gen := m.generation
	return func() {
		m.removeCard(gen)
	}
}

// removeCard clears the card state and fires OnCardRemoved. A zero gen
// forces removal regardless of the timer state.
func (m *Monitor) removeCard(gen uint64) {
	m.mu.Lock()
	if !m.state.Present {
		m.mu.Unlock()
		return
	}
	if gen != 0 && (gen != m.generation || !m.state.CanStartRemovalTimer()) {
		m.mu.Unlock()
		return
	}
	m.state.TransitionToIdle()
	m.mu.Unlock()

	if m.OnCardRemoved != nil {
		m.OnCardRemoved()
	}
}

type cardEvent int

const (
	eventNone cardEvent = iota
	eventDetected
	eventChanged
)

// processPollingResults runs the state machine for a card seen in this poll
func (m *Monitor) processPollingResults(uid mfrc522.UID, sak byte) {
	m.mu.Lock()
	event := m.updateCardState(uid, sak)
	needsTest := event != eventNone || m.state.NeedsTest(uid)
	if needsTest {
		m.state.TransitionToReading()
		m.state.MarkTested(uid)
	} else if m.state.DetectionState != StateReading {
		m.state.TransitionToDetected(m.config.CardRemovalTimeout, m.removalCallback())
	}
	m.mu.Unlock()

	if !needsTest {
		return
	}

	switch event {
	case eventChanged:
		if m.OnCardChanged != nil {
			_ = m.OnCardChanged(uid)
		}
	default:
		if m.OnCardDetected != nil {
			_ = m.OnCardDetected(uid)
		}
	}

	m.mu.Lock()
	if m.state.Present && m.state.LastUID == uid {
		m.state.TransitionToPostReadGrace(m.config.CardRemovalTimeout, m.removalCallback())
	}
	m.mu.Unlock()
}

// updateCardState records uid and reports whether it is a new or changed card
func (m *Monitor) updateCardState(uid mfrc522.UID, sak byte) cardEvent {
	if !m.state.Present {
		m.state.Present = true
		m.state.LastUID = uid
		m.state.LastSAK = sak
		m.state.LastSeenTime = time.Now()
		return eventDetected
	}

	m.state.LastSeenTime = time.Now()
	if m.state.LastUID != uid {
		m.state.LastUID = uid
		m.state.LastSAK = sak
		return eventChanged
	}
	return eventNone
}
