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
	"sync/atomic"
	"testing"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastScanConfig() *ScanConfig {
	return &ScanConfig{
		PollInterval:       2 * time.Millisecond,
		CardRemovalTimeout: 60 * time.Millisecond,
		MaxRetries:         2,
		RetryBackoff:       time.Millisecond,
	}
}

// startScanner starts s and registers a cleanup that stops it
func startScanner(t *testing.T, s *Scanner) {
	t.Helper()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { assert.NoError(t, s.Stop()) })
}

// absentCard returns a card that is outside the field
func absentCard() *testutil.VirtualCard {
	card := testutil.NewVirtualMIFARE1K(nil)
	card.Remove()
	return card
}

func writeBlock4(payload []byte) TagOperation {
	return func(sess *mfrc522.Session) error {
		key, err := mfrc522.ParseKey("FFFFFFFFFFFF")
		if err != nil {
			return err
		}
		status, err := sess.Authenticate(mfrc522.KeyA, 4, key)
		if err != nil {
			return err
		}
		if !status.OK() {
			return mfrc522.NewLinkError("authenticate", status)
		}
		status, err = sess.WriteBlock(4, payload)
		if err != nil {
			return err
		}
		return status.Err()
	}
}

func TestNewScanner(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	t.Run("with valid parameters", func(t *testing.T) {
		t.Parallel()
		config := DefaultScanConfig()
		scanner, err := NewScanner(device, config)
		require.NoError(t, err)

		assert.Equal(t, config, scanner.config)
		assert.False(t, scanner.IsRunning())
		assert.False(t, scanner.HasPendingWrite())
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		t.Parallel()
		scanner, err := NewScanner(device, nil)
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, scanner.config.PollInterval)
	})

	t.Run("with nil device returns error", func(t *testing.T) {
		t.Parallel()
		scanner, err := NewScanner(nil, DefaultScanConfig())
		require.Error(t, err)
		assert.Nil(t, scanner)
		assert.Contains(t, err.Error(), "device cannot be nil")
	})
}

func TestDefaultScanConfig(t *testing.T) {
	t.Parallel()
	config := DefaultScanConfig()

	assert.Equal(t, 250*time.Millisecond, config.PollInterval)
	assert.Equal(t, time.Second, config.CardRemovalTimeout)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, config.RetryBackoff)
}

func TestScanner_StartStop(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)

	require.NoError(t, scanner.Start(context.Background()))
	assert.True(t, scanner.IsRunning())
	require.ErrorIs(t, scanner.Start(context.Background()), ErrScannerRunning)

	require.NoError(t, scanner.Stop())
	assert.False(t, scanner.IsRunning())

	// Stopping twice is safe
	require.NoError(t, scanner.Stop())
}

func TestScanner_StopWhenNotRunningSafe(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	scanner, err := NewScanner(device, nil)
	require.NoError(t, err)
	assert.NoError(t, scanner.Stop())
}

func TestScanner_WriteToNextTag_Success(t *testing.T) {
	t.Parallel()
	card := absentCard()
	device, _ := createSimulatedDevice(t, card)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	startScanner(t, scanner)

	payload := []byte("0123456789abcdef")
	result := make(chan error, 1)
	go func() {
		result <- scanner.WriteToNextTag(context.Background(), waitFor, writeBlock4(payload))
	}()

	require.Eventually(t, scanner.HasPendingWrite, waitFor, time.Millisecond)
	card.Insert()

	require.NoError(t, receive(t, result))
	assert.Equal(t, payload, card.Block(4))
	assert.False(t, scanner.HasPendingWrite())
}

func TestScanner_WriteToNextTag_Timeout(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	startScanner(t, scanner)

	start := time.Now()
	err = scanner.WriteToNextTag(context.Background(), 50*time.Millisecond, writeBlock4(make([]byte, 16)))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.False(t, scanner.HasPendingWrite())
}

func TestScanner_WriteToNextTag_AlreadyPending(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	startScanner(t, scanner)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		first <- scanner.WriteToNextTag(ctx, waitFor, writeBlock4(make([]byte, 16)))
	}()
	require.Eventually(t, scanner.HasPendingWrite, waitFor, time.Millisecond)

	// The write mutex serializes callers, so a second caller waits behind
	// the first and then finds nothing pending
	second := make(chan error, 1)
	go func() {
		second <- scanner.WriteToNextTag(context.Background(), 10*time.Millisecond, writeBlock4(make([]byte, 16)))
	}()

	cancel()
	require.ErrorIs(t, receive(t, first), context.Canceled)
	require.ErrorIs(t, receive(t, second), context.DeadlineExceeded)
}

func TestScanner_WriteAfterStop(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)

	err = scanner.WriteToNextTag(context.Background(), time.Second, writeBlock4(make([]byte, 16)))
	require.ErrorIs(t, err, ErrScannerNotRunning)
}

func TestScanner_StopFailsPendingWrite(t *testing.T) {
	t.Parallel()
	device, _ := createSimulatedDevice(t, nil)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	require.NoError(t, scanner.Start(context.Background()))

	result := make(chan error, 1)
	go func() {
		result <- scanner.WriteToNextTag(context.Background(), waitFor, writeBlock4(make([]byte, 16)))
	}()
	require.Eventually(t, scanner.HasPendingWrite, waitFor, time.Millisecond)

	require.NoError(t, scanner.Stop())
	require.ErrorIs(t, receive(t, result), ErrScannerStopped)
}

func TestScanner_WriteToNextTag_RetriesLinkErrors(t *testing.T) {
	t.Parallel()
	card := absentCard()
	device, _ := createSimulatedDevice(t, card)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	startScanner(t, scanner)

	var attempts atomic.Int32
	operation := func(*mfrc522.Session) error {
		if attempts.Add(1) < 2 {
			return mfrc522.NewLinkError("read", mfrc522.StatusTimeout)
		}
		return nil
	}

	result := make(chan error, 1)
	go func() {
		result <- scanner.WriteToNextTag(context.Background(), waitFor, operation)
	}()
	require.Eventually(t, scanner.HasPendingWrite, waitFor, time.Millisecond)
	card.Insert()

	require.NoError(t, receive(t, result))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestScanner_WriteToNextTag_ExhaustedKeepsCause(t *testing.T) {
	t.Parallel()
	card := absentCard()
	device, _ := createSimulatedDevice(t, card)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	startScanner(t, scanner)

	var attempts atomic.Int32
	operation := func(*mfrc522.Session) error {
		attempts.Add(1)
		return mfrc522.NewLinkError("read", mfrc522.StatusNoTag)
	}

	result := make(chan error, 1)
	go func() {
		result <- scanner.WriteToNextTag(context.Background(), waitFor, operation)
	}()
	require.Eventually(t, scanner.HasPendingWrite, waitFor, time.Millisecond)
	card.Insert()

	err = receive(t, result)
	require.ErrorIs(t, err, mfrc522.ErrNoTag)
	assert.Equal(t, int32(fastScanConfig().MaxRetries+1), attempts.Load())
}

func TestScanner_WriteToNextTag_PermanentError(t *testing.T) {
	t.Parallel()
	card := absentCard()
	device, _ := createSimulatedDevice(t, card)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)
	startScanner(t, scanner)

	errBoom := errors.New("boom")
	var attempts atomic.Int32
	operation := func(*mfrc522.Session) error {
		attempts.Add(1)
		return errBoom
	}

	result := make(chan error, 1)
	go func() {
		result <- scanner.WriteToNextTag(context.Background(), waitFor, operation)
	}()
	require.Eventually(t, scanner.HasPendingWrite, waitFor, time.Millisecond)
	card.Insert()

	require.ErrorIs(t, receive(t, result), errBoom)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestScanner_EventCallbacks(t *testing.T) {
	t.Parallel()
	card := absentCard()
	device, _ := createSimulatedDevice(t, card)

	scanner, err := NewScanner(device, fastScanConfig())
	require.NoError(t, err)

	detected := make(chan mfrc522.UID, 4)
	removed := make(chan struct{}, 4)
	var changed atomic.Int32
	scanner.OnTagDetected = func(uid mfrc522.UID) error {
		detected <- uid
		return nil
	}
	scanner.OnTagRemoved = func() { removed <- struct{}{} }
	scanner.OnTagChanged = func(mfrc522.UID) error {
		changed.Add(1)
		return nil
	}
	startScanner(t, scanner)

	card.Insert()
	assert.Equal(t, "12345678", receive(t, detected).Hex())

	card.Remove()
	receive(t, removed)
	assert.Equal(t, int32(0), changed.Load())
}
