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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/internal/retry"
	"github.com/ZaparooProject/go-mfrc522/simple"
)

var errUsage = errors.New("usage")

// app runs one CLI command against an initialized device
type app struct {
	dev    *mfrc522.Device
	keys   *mfrc522.MifareKeys
	out    io.Writer
	poll   time.Duration
	ndef   bool
	verify bool

	// create opens the -o file; nil means os.Create
	create func(name string) (io.WriteCloser, error)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	switch args[0] {
	case "id":
		return a.runID(ctx)
	case "read":
		return a.runRead(ctx)
	case "write":
		return a.runWrite(ctx, args[1:])
	case "dump":
		return a.runDump(ctx, args[1:])
	case "value":
		return a.runValue(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func (a *app) reader() (*simple.Reader, error) {
	sk, err := a.keys.ForBlock(simple.DefaultTrailerBlock)
	if err != nil {
		return nil, err
	}
	opts := []simple.Option{simple.WithKey(sk.A), simple.WithPollInterval(a.poll)}
	if a.ndef {
		opts = append(opts, simple.WithNDEF())
	}
	if a.verify {
		opts = append(opts, simple.WithVerification(nil))
	}
	return simple.NewReader(a.dev, opts...)
}

func (a *app) runID(ctx context.Context) error {
	r, err := a.reader()
	if err != nil {
		return err
	}
	id, err := r.ReadID(ctx)
	if err != nil {
		return fmt.Errorf("read id: %w", err)
	}
	_, err = fmt.Fprintln(a.out, id)
	return err
}

func (a *app) runRead(ctx context.Context) error {
	r, err := a.reader()
	if err != nil {
		return err
	}
	id, text, err := r.Read(ctx)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	_, err = fmt.Fprintf(a.out, "%s\t%s\n", id, text)
	return err
}

func (a *app) runWrite(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: write <text>", errUsage)
	}
	r, err := a.reader()
	if err != nil {
		return err
	}
	id, written, err := r.Write(ctx, args[0])
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if written != args[0] {
		_, _ = fmt.Fprintf(os.Stderr, "text truncated to %d bytes\n", len(written))
	}
	_, err = fmt.Fprintf(a.out, "%s\t%s\n", id, written)
	return err
}

func (a *app) runDump(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	format := fs.String("format", formatHex, "Output format: hex, json or cbor")
	output := fs.String("o", "", "Write the dump to a file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	switch *format {
	case formatHex, formatJSON, formatCBOR:
	default:
		return fmt.Errorf("%w: unknown dump format %q", errUsage, *format)
	}

	sess, uid, err := a.waitForCard(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	dump, err := a.dev.DumpClassic1K(a.keys, uid)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	rec := newDumpRecord(dump, sess.SAK(), time.Now())
	if *output == "" {
		return writeDump(a.out, rec, *format)
	}
	return a.writeDumpFile(*output, rec, *format)
}

// writeDumpFile writes rec to path. A failed close is reported since the
// file may be truncated.
func (a *app) writeDumpFile(path string, rec DumpRecord, format string) (err error) {
	create := a.create
	if create == nil {
		create = func(name string) (io.WriteCloser, error) { return os.Create(name) }
	}

	f, err := create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return writeDump(f, rec, format)
}

func (a *app) runValue(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: value get|set|inc|dec <block> [n]", errUsage)
	}
	op := args[0]
	block, err := parseValueBlock(args[1])
	if err != nil {
		return err
	}

	var operand int32
	switch op {
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("%w: value get <block>", errUsage)
		}
	case "set", "inc", "dec":
		if len(args) != 3 {
			return fmt.Errorf("%w: value %s <block> <n>", errUsage, op)
		}
		n, err := strconv.ParseInt(args[2], 0, 32)
		if err != nil {
			return fmt.Errorf("%w: bad value %q: %w", errUsage, args[2], err)
		}
		operand = int32(n)
	default:
		return fmt.Errorf("%w: unknown value operation %q", errUsage, op)
	}

	sess, _, err := a.waitForCard(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	status, err := sess.AuthenticateWith(a.keys, block)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if !status.OK() {
		return mfrc522.NewLinkError("authenticate", status)
	}

	switch op {
	case "set":
		b := mfrc522.FormatValueBlock(operand, block)
		if err := checkStatus("write", func() (mfrc522.Status, error) { return sess.WriteBlock(block, b[:]) }); err != nil {
			return err
		}
	case "inc", "dec":
		step := sess.Increment
		if op == "dec" {
			step = sess.Decrement
		}
		if err := checkStatus(op, func() (mfrc522.Status, error) { return step(block, operand) }); err != nil {
			return err
		}
		if err := checkStatus("transfer", func() (mfrc522.Status, error) { return sess.Transfer(block) }); err != nil {
			return err
		}
	}

	data, status, err := sess.ReadBlock(block)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if !status.OK() {
		return mfrc522.NewLinkError("read", status)
	}
	value, err := mfrc522.GetBlockValue(data)
	if err != nil {
		return fmt.Errorf("block %d: %w", block, err)
	}
	_, err = fmt.Fprintf(a.out, "%d\n", value)
	return err
}

// parseValueBlock rejects the manufacturer block and sector trailers
func parseValueBlock(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: bad block %q: %w", errUsage, s, err)
	}
	block := int(n)
	if block == 0 || block >= mfrc522.Classic1KSectors*4 || mfrc522.IsSectorTrailer(block) {
		return 0, fmt.Errorf("%w: block %d cannot hold a value", errUsage, block)
	}
	return byte(block), nil
}

func checkStatus(op string, fn func() (mfrc522.Status, error)) error {
	status, err := fn()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !status.OK() {
		return mfrc522.NewLinkError(op, status)
	}
	return nil
}

type selectedCard struct {
	sess *mfrc522.Session
	uid  mfrc522.UID
}

// waitForCard polls until a card answers REQA and is selected
func (a *app) waitForCard(ctx context.Context) (*mfrc522.Session, mfrc522.UID, error) {
	card, err := retry.Poll(ctx, a.poll, func() (selectedCard, bool, error) {
		sess := mfrc522.NewSession(a.dev)
		uid, status, err := sess.Begin(mfrc522.PICCReqIdle)
		if err != nil {
			return selectedCard{}, false, err
		}
		if !status.OK() {
			return selectedCard{}, true, nil
		}
		return selectedCard{sess: sess, uid: uid}, false, nil
	})
	if err != nil {
		return nil, mfrc522.UID{}, fmt.Errorf("wait for card: %w", err)
	}
	return card.sess, card.uid, nil
}
