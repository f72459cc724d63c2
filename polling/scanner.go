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
	"sync"
	"sync/atomic"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
)

// Scanner wraps a Monitor with start/stop control and lets callers queue
// an operation for the next card that is presented.
type Scanner struct {
	device        *mfrc522.Device
	config        *ScanConfig
	monitor       *Monitor
	pendingWrite  atomic.Pointer[WriteRequest]
	cancelFunc    context.CancelFunc
	done          chan struct{}
	OnTagDetected func(uid mfrc522.UID) error
	OnTagRemoved  func()
	OnTagChanged  func(uid mfrc522.UID) error
	OnError       func(error)
	writeMutex    sync.Mutex
	stopMutex     sync.Mutex
	running       atomic.Bool
}

// ScanConfig holds configuration options for the Scanner
type ScanConfig struct {
	PollInterval       time.Duration
	CardRemovalTimeout time.Duration

	// Retries for a queued operation that fails with a link condition
	MaxRetries   int
	RetryBackoff time.Duration
}

// TagOperation runs against a session already selected on the tag
type TagOperation func(sess *mfrc522.Session) error

// WriteRequest represents a pending write operation
type WriteRequest struct {
	operation TagOperation
	result    chan error
	ctx       context.Context
	createdAt time.Time
}

// Scanner-specific errors
var (
	ErrWriteAlreadyPending = errors.New("write operation already pending")
	ErrScannerNotRunning   = errors.New("scanner is not running")
	ErrScannerRunning      = errors.New("scanner is already running")
	ErrScannerStopped      = errors.New("scanner was stopped")
	ErrTagChanged          = errors.New("tag changed before the operation ran")
)

// NewScanner creates a new scanner instance with the given device and configuration
func NewScanner(device *mfrc522.Device, config *ScanConfig) (*Scanner, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultScanConfig()
	}

	return &Scanner{
		device: device,
		config: config,
	}, nil
}

// DefaultScanConfig returns sensible default configuration values
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		PollInterval:       250 * time.Millisecond,
		CardRemovalTimeout: time.Second,
		MaxRetries:         3,
		RetryBackoff:       100 * time.Millisecond,
	}
}

// Start begins continuous scanning in the background
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.stopMutex.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.stopMutex.Lock()
			s.cancelFunc = nil
			s.stopMutex.Unlock()
			s.running.Store(false)
			s.failPendingWrite(ErrScannerStopped)
		}()

		if err := s.startScanning(scanCtx); err != nil && !errors.Is(err, context.Canceled) {
			if s.OnError != nil {
				s.OnError(err)
			}
		}
	}()

	return nil
}

// Stop cancels scanning and blocks until the polling goroutine has exited
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancelFunc := s.cancelFunc
	done := s.done
	s.stopMutex.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}
	if done != nil {
		<-done
	}
	return nil
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingWrite returns true if a write operation is waiting
func (s *Scanner) HasPendingWrite() bool {
	return s.pendingWrite.Load() != nil
}
