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
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/internal/retry"
)

// WriteToNextTag waits for the next detected tag and runs operation on it.
// It blocks until the operation completes, times out, or is cancelled.
func (s *Scanner) WriteToNextTag(ctx context.Context, timeout time.Duration, operation TagOperation) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	if s.pendingWrite.Load() != nil {
		return ErrWriteAlreadyPending
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	req := &WriteRequest{
		operation: operation,
		result:    result,
		ctx:       writeCtx,
		createdAt: time.Now(),
	}

	s.pendingWrite.Store(req)
	defer s.pendingWrite.CompareAndSwap(req, nil)

	if !s.running.Load() {
		return ErrScannerStopped
	}

	select {
	case err := <-result:
		return err
	case <-writeCtx.Done():
		return writeCtx.Err()
	}
}

// processPendingWrites runs the queued operation against the tag the
// monitor just selected
func (s *Scanner) processPendingWrites(uid mfrc522.UID) {
	req := s.pendingWrite.Swap(nil)
	if req == nil {
		return
	}

	select {
	case <-req.ctx.Done():
		s.sendWriteResult(req, req.ctx.Err())
		return
	default:
	}

	s.sendWriteResult(req, s.runWithRetry(uid, req.operation))
}

// runWithRetry reselects the tag before every attempt. The tag is halted
// first so that WUPA wakes it from a known state.
func (s *Scanner) runWithRetry(uid mfrc522.UID, operation TagOperation) error {
	var lastErr error

	_, err := retry.Do(retry.Config{
		Description: "tag operation",
		MaxRetries:  s.config.MaxRetries,
		RetryDelay:  s.config.RetryBackoff,
	}, func() (struct{}, bool, error) {
		lastErr = s.runOnce(uid, operation)
		if lastErr == nil {
			return struct{}{}, false, nil
		}
		if mfrc522.IsRetryable(lastErr) {
			return struct{}{}, true, nil
		}
		return struct{}{}, false, lastErr
	})
	if errors.Is(err, retry.ErrExhausted) && lastErr != nil {
		return fmt.Errorf("%w: %w", err, lastErr)
	}
	return err
}

func (s *Scanner) runOnce(uid mfrc522.UID, operation TagOperation) error {
	if _, err := s.device.Halt(); err != nil {
		return err
	}

	sess := mfrc522.NewSession(s.device)
	defer func() { _ = sess.Close() }()

	got, status, err := sess.Begin(mfrc522.PICCReqAll)
	if err != nil {
		return err
	}
	if !status.OK() {
		return mfrc522.NewLinkError("select", status)
	}
	if got != uid {
		return fmt.Errorf("%w: expected %s, got %s", ErrTagChanged, uid, got)
	}
	return operation(sess)
}

// failPendingWrite completes a queued request that will never see a tag
func (s *Scanner) failPendingWrite(err error) {
	if req := s.pendingWrite.Swap(nil); req != nil {
		s.sendWriteResult(req, err)
	}
}

// sendWriteResult hands the result to the waiting caller without blocking
func (*Scanner) sendWriteResult(req *WriteRequest, err error) {
	select {
	case req.result <- err:
	default:
	}
}
