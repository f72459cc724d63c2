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
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrVerifyFailed is returned when read-back data never matches
var ErrVerifyFailed = errors.New("verification failed")

// ValidationConfig holds configuration for read and write verification
type ValidationConfig struct {
	// RetryDelay specifies delay between retry attempts
	RetryDelay time.Duration

	// ReadRetries specifies max number of extra reads used to confirm data
	ReadRetries int

	// WriteRetries specifies max number of write retries on verification failure
	WriteRetries int

	// EnableReadVerification requires two consecutive identical reads
	EnableReadVerification bool

	// EnableWriteVerification reads each written block back
	EnableWriteVerification bool
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		EnableReadVerification:  true,
		ReadRetries:             3,
		EnableWriteVerification: true,
		WriteRetries:            3,
		RetryDelay:              20 * time.Millisecond,
	}
}

// ValidationMetrics tracks validation statistics
type ValidationMetrics struct {
	LastValidation    time.Time
	TotalOperations   uint64
	FailedValidations uint64
}

// ValidatedSession wraps an authenticated Session with verified block access
type ValidatedSession struct {
	*Session
	config  *ValidationConfig
	metrics ValidationMetrics
	mu      sync.RWMutex
}

// NewValidatedSession wraps s. A nil config uses DefaultValidationConfig.
func NewValidatedSession(s *Session, config *ValidationConfig) *ValidatedSession {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidatedSession{Session: s, config: config}
}

// GetValidationMetrics returns current validation metrics
func (vs *ValidatedSession) GetValidationMetrics() ValidationMetrics {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.metrics
}

func (vs *ValidatedSession) record(ok bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.metrics.TotalOperations++
	vs.metrics.LastValidation = time.Now()
	if !ok {
		vs.metrics.FailedValidations++
	}
}

// readOnce turns a non-OK read status into an error
func (vs *ValidatedSession) readOnce(block byte) ([]byte, error) {
	data, status, err := vs.Session.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, NewLinkError("read", status)
	}
	return data, nil
}

// ReadBlockValidated reads block until two consecutive reads agree
func (vs *ValidatedSession) ReadBlockValidated(block byte) ([]byte, error) {
	data, err := vs.readOnce(block)
	if !vs.config.EnableReadVerification || err != nil {
		vs.record(err == nil)
		return data, err
	}

	var lastErr error
	last := data
	for retry := 0; retry < vs.config.ReadRetries; retry++ {
		if retry > 0 {
			time.Sleep(vs.config.RetryDelay)
		}

		verify, err := vs.readOnce(block)
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(last, verify) {
			vs.record(true)
			return verify, nil
		}
		last = verify
	}

	vs.record(false)
	if lastErr != nil {
		return nil, fmt.Errorf("%w: block %d after %d reads: %w", ErrVerifyFailed, block, vs.config.ReadRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: block %d returned inconsistent data", ErrVerifyFailed, block)
}

// WriteBlockValidated writes block and reads it back. Sector trailers are not
// read back since key A always reads as zeros.
func (vs *ValidatedSession) WriteBlockValidated(block byte, data []byte) error {
	if len(data) != mifareBlockSize {
		return fmt.Errorf("%w: block data must be %d bytes, got %d", ErrInvalidArgument, mifareBlockSize, len(data))
	}

	var lastErr error
	for retry := 0; retry <= vs.config.WriteRetries; retry++ {
		if retry > 0 {
			time.Sleep(vs.config.RetryDelay)
		}

		status, err := vs.Session.WriteBlock(block, data)
		if err != nil {
			vs.record(false)
			return err
		}
		if status != StatusOK {
			lastErr = NewLinkError("write", status)
			continue
		}

		if !vs.config.EnableWriteVerification || IsSectorTrailer(int(block)) {
			vs.record(true)
			return nil
		}

		readBack, err := vs.readOnce(block)
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(data, readBack) {
			vs.record(true)
			return nil
		}
		lastErr = errors.New("data mismatch")
	}

	vs.record(false)
	return fmt.Errorf("%w: write of block %d after %d retries: %w", ErrVerifyFailed, block, vs.config.WriteRetries, lastErr)
}
