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

// Package simple stores a short text on a MIFARE Classic 1K card in three
// data blocks of sector 2, the way hobby MFRC522 projects usually do.
//
//	reader, err := simple.NewReader(device)
//	id, text, err := reader.Read(ctx)
package simple

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/internal/retry"
)

const (
	// DefaultTrailerBlock is the trailer of the sector holding the text
	DefaultTrailerBlock = 11

	// DefaultPollInterval is how often blocking calls look for a card
	DefaultPollInterval = 100 * time.Millisecond

	blockSize = 16
)

// DefaultBlocks are the data blocks the text is spread over
var DefaultBlocks = []byte{8, 9, 10}

// ErrTextTooLong is returned when an NDEF message does not fit the blocks
var ErrTextTooLong = errors.New("text too long")

// Reader reads and writes text on whichever card is presented
type Reader struct {
	dev          *mfrc522.Device
	verify       *mfrc522.ValidationConfig
	blocks       []byte
	pollInterval time.Duration
	key          mfrc522.Key
	trailer      byte
	ndef         bool
}

// Option configures a Reader
type Option func(*Reader) error

// WithKey sets the key A used for the text sector
func WithKey(key mfrc522.Key) Option {
	return func(r *Reader) error {
		r.key = key
		return nil
	}
}

// WithPollInterval sets how often blocking calls retry
func WithPollInterval(d time.Duration) Option {
	return func(r *Reader) error {
		if d <= 0 {
			return fmt.Errorf("%w: poll interval %s", mfrc522.ErrInvalidArgument, d)
		}
		r.pollInterval = d
		return nil
	}
}

// WithBlocks moves the text to other data blocks of the sector closed by trailer
func WithBlocks(trailer byte, blocks ...byte) Option {
	return func(r *Reader) error {
		if !mfrc522.IsSectorTrailer(int(trailer)) || int(trailer) >= mfrc522.Classic1KBlocks {
			return fmt.Errorf("%w: block %d is not a sector trailer", mfrc522.ErrInvalidArgument, trailer)
		}
		if len(blocks) == 0 {
			return fmt.Errorf("%w: no data blocks", mfrc522.ErrInvalidArgument)
		}
		sector := mfrc522.SectorOf(int(trailer))
		for _, b := range blocks {
			if mfrc522.SectorOf(int(b)) != sector || b == trailer {
				return fmt.Errorf("%w: block %d outside data blocks of sector %d",
					mfrc522.ErrInvalidArgument, b, sector)
			}
		}
		r.trailer = trailer
		r.blocks = append([]byte(nil), blocks...)
		return nil
	}
}

// WithVerification reads every block twice and reads written blocks back.
// A nil config uses mfrc522.DefaultValidationConfig.
func WithVerification(config *mfrc522.ValidationConfig) Option {
	return func(r *Reader) error {
		if config == nil {
			config = mfrc522.DefaultValidationConfig()
		}
		r.verify = config
		return nil
	}
}

// WithNDEF stores the text as an NDEF text record inside a TLV instead of
// raw space-padded bytes.
func WithNDEF() Option {
	return func(r *Reader) error {
		r.ndef = true
		return nil
	}
}

// NewReader creates a text reader on an initialized device
func NewReader(dev *mfrc522.Device, opts ...Option) (*Reader, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", mfrc522.ErrInvalidArgument)
	}

	r := &Reader{
		dev:          dev,
		key:          mfrc522.DefaultKey,
		trailer:      DefaultTrailerBlock,
		blocks:       append([]byte(nil), DefaultBlocks...),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Capacity returns the number of text bytes the blocks hold
func (r *Reader) Capacity() int {
	return len(r.blocks) * blockSize
}

// ReadIDNoBlock returns the UID of a card in the field as 8 hex characters.
// It does not select the card.
func (r *Reader) ReadIDNoBlock() (string, error) {
	s := mfrc522.NewSession(r.dev)

	status, err := s.Request(mfrc522.PICCReqIdle)
	if err := statusErr("request", status, err); err != nil {
		return "", err
	}
	uid, status, err := s.Anticoll()
	if err := statusErr("anticollision", status, err); err != nil {
		return "", err
	}
	return uid.Hex(), nil
}

// ReadID blocks until a card answers or ctx is done
func (r *Reader) ReadID(ctx context.Context) (string, error) {
	return retry.Poll(ctx, r.pollInterval, func() (string, bool, error) {
		return retryable(r.ReadIDNoBlock())
	})
}

// ReadNoBlock reads the text from a card in the field
func (r *Reader) ReadNoBlock() (id, text string, err error) {
	s, uid, err := r.open()
	if err != nil {
		return "", "", err
	}
	defer closeSession(s, &err)

	data := make([]byte, 0, r.Capacity())
	for _, block := range r.blocks {
		b, err := r.readBlock(s, block)
		if err != nil {
			return uid.Hex(), "", err
		}
		data = append(data, b...)
	}

	text, err = r.decode(data)
	if err != nil {
		return uid.Hex(), "", err
	}
	return uid.Hex(), text, nil
}

// Read blocks until a card is read or ctx is done
func (r *Reader) Read(ctx context.Context) (id, text string, err error) {
	res, err := retry.Poll(ctx, r.pollInterval, func() ([2]string, bool, error) {
		id, text, err := r.ReadNoBlock()
		return retryable([2]string{id, text}, err)
	})
	return res[0], res[1], err
}

// WriteNoBlock writes text to a card in the field. It returns the card id
// and the part of text that was stored.
func (r *Reader) WriteNoBlock(text string) (id, written string, err error) {
	data, written, err := r.encode(text)
	if err != nil {
		return "", "", err
	}

	s, uid, err := r.open()
	if err != nil {
		return "", "", err
	}
	defer closeSession(s, &err)

	for i, block := range r.blocks {
		if err := r.writeBlock(s, block, data[i*blockSize:(i+1)*blockSize]); err != nil {
			return uid.Hex(), "", err
		}
	}
	return uid.Hex(), written, nil
}

func (r *Reader) readBlock(s *mfrc522.Session, block byte) ([]byte, error) {
	if r.verify != nil {
		return mfrc522.NewValidatedSession(s, r.verify).ReadBlockValidated(block)
	}
	b, status, err := s.ReadBlock(block)
	if err := statusErr(fmt.Sprintf("read block %d", block), status, err); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Reader) writeBlock(s *mfrc522.Session, block byte, data []byte) error {
	if r.verify != nil {
		return mfrc522.NewValidatedSession(s, r.verify).WriteBlockValidated(block, data)
	}
	status, err := s.WriteBlock(block, data)
	return statusErr(fmt.Sprintf("write block %d", block), status, err)
}

// Write blocks until text is written to a card or ctx is done
func (r *Reader) Write(ctx context.Context, text string) (id, written string, err error) {
	res, err := retry.Poll(ctx, r.pollInterval, func() ([2]string, bool, error) {
		id, written, err := r.WriteNoBlock(text)
		return retryable([2]string{id, written}, err)
	})
	return res[0], res[1], err
}

// open selects the card and authenticates the text sector with key A
func (r *Reader) open() (*mfrc522.Session, mfrc522.UID, error) {
	s := mfrc522.NewSession(r.dev)

	uid, status, err := s.Begin(mfrc522.PICCReqIdle)
	if err := statusErr("select", status, err); err != nil {
		return nil, uid, err
	}

	status, err = s.Authenticate(mfrc522.KeyA, r.trailer, r.key)
	if err != nil {
		_ = s.Close()
		return nil, uid, err
	}
	if status != mfrc522.StatusOK {
		_ = s.Close()
		return nil, uid, fmt.Errorf("%w: sector %d", mfrc522.ErrAuthFailed, mfrc522.SectorOf(int(r.trailer)))
	}
	return s, uid, nil
}

func (r *Reader) encode(text string) (data []byte, written string, err error) {
	if r.ndef {
		data, err = encodeNDEF(text, r.Capacity())
		return data, text, err
	}
	return padText(text, r.Capacity())
}

func (r *Reader) decode(data []byte) (string, error) {
	if r.ndef {
		return decodeNDEF(data)
	}
	return strings.TrimRight(string(data), " \x00"), nil
}

// padText pads text with spaces to size bytes, truncating longer text
func padText(text string, size int) ([]byte, string, error) {
	b := []byte(text)
	if len(b) > size {
		b = b[:size]
	}
	written := string(b)
	for len(b) < size {
		b = append(b, ' ')
	}
	return b, written, nil
}

func closeSession(s *mfrc522.Session, err *error) {
	if cerr := s.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// statusErr turns a non-OK link status into an error
func statusErr(op string, status mfrc522.Status, err error) error {
	if err != nil {
		return err
	}
	if status != mfrc522.StatusOK {
		return mfrc522.NewLinkError(op, status)
	}
	return nil
}

// retryable adapts a single attempt for retry.Poll: link conditions are
// retried, everything else stops the loop.
func retryable[T any](v T, err error) (T, bool, error) {
	if err == nil {
		return v, false, nil
	}
	if mfrc522.IsRetryable(err) {
		var zero T
		return zero, true, nil
	}
	return v, false, err
}
