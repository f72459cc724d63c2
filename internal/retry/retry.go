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

// Package retry provides the bounded retry loops shared by the transports
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt asked to be retried
var ErrExhausted = errors.New("retries exhausted")

// Operation is a single attempt.
// Returns: result, shouldRetry, error
//   - shouldRetry: the attempt hit a transient condition
//   - error: a permanent failure that stops the loop
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry     func() error
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// Do runs op until it succeeds, fails permanently, or MaxRetries extra
// attempts have been spent.
func Do[T any](config Config, op Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := op()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}

		if config.RetryDelay > 0 {
			time.Sleep(config.RetryDelay)
		}
	}

	if config.Description != "" {
		return zero, &ExhaustedError{Description: config.Description, Attempts: config.MaxRetries + 1}
	}
	return zero, ErrExhausted
}

// ExhaustedError names the operation that ran out of attempts
type ExhaustedError struct {
	Description string
	Attempts    int
}

func (e *ExhaustedError) Error() string {
	return e.Description + ": " + ErrExhausted.Error()
}

// Unwrap returns ErrExhausted
func (*ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// Poll repeats op every interval until it succeeds, fails permanently or
// ctx is done.
func Poll[T any](ctx context.Context, interval time.Duration, op Operation[T]) (T, error) {
	var zero T

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, shouldRetry, err := op()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
