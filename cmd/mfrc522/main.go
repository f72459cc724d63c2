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

// Command mfrc522 reads, writes and dumps MIFARE Classic cards on an
// MFRC522 reader.
//
//	mfrc522 detect [-transports spi,i2c,uart] [-mode passive|safe|full]
//	mfrc522 [flags] id
//	mfrc522 [flags] read
//	mfrc522 [flags] write <text>
//	mfrc522 [flags] dump [-format hex|json|cbor] [-o file]
//	mfrc522 [flags] value get|set|inc|dec <block> [n]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/config"
	"github.com/ZaparooProject/go-mfrc522/detection"
	"github.com/ZaparooProject/go-mfrc522/internal/connect"
	"github.com/ZaparooProject/go-mfrc522/simple"
)

type flags struct {
	configPath *string
	transport  *string
	devicePath *string
	resetPin   *string
	key        *string
	timeout    *time.Duration
	debug      *bool
	ndef       *bool
	verify     *bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*flags, error) {
	f := &flags{
		configPath: fs.String("config", "", "YAML config file"),
		transport:  fs.String("transport", "", "Bus transport: spi, i2c or uart (overrides config)"),
		devicePath: fs.String("device", "",
			"Bus path (e.g. SPI0.0, /dev/i2c-1:0x28 or /dev/ttyUSB0). Leave empty for auto-detection."),
		resetPin: fs.String("reset-pin", "", "GPIO driving the chip's NRSTPD line (e.g. GPIO25)"),
		key:      fs.String("key", "", "Default MIFARE key as 12 hex digits (overrides config)"),
		timeout:  fs.Duration("timeout", 30*time.Second, "How long to wait for a card"),
		debug:    fs.Bool("debug", false, "Enable debug output"),
		ndef:     fs.Bool("ndef", false, "Store text as an NDEF text record"),
		verify:   fs.Bool("verify", false, "Read blocks twice and read written blocks back"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig(f *flags) (*config.Config, error) {
	cfg := config.Default()
	if *f.configPath != "" {
		loaded, err := config.Load(*f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *f.transport != "" {
		cfg.Reader.Transport = *f.transport
	}
	if *f.devicePath != "" {
		cfg.Reader.Path = *f.devicePath
		cfg.Reader.AutoDetect = false
	}
	if *f.resetPin != "" {
		cfg.Reader.ResetPin = *f.resetPin
	}
	if *f.key != "" {
		cfg.Keys.Default = *f.key
	}
	if cfg.Reader.Path == "" {
		cfg.Reader.AutoDetect = true
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("mfrc522", flag.ContinueOnError)
	f, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: mfrc522 [flags] detect|id|read|write|dump|value", errUsage)
	}
	if fs.Arg(0) == "detect" {
		return runDetect(os.Stdout, fs.Args()[1:], detection.DetectAll)
	}
	if *f.debug {
		mfrc522.SetDebugEnabled(true)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	keys, err := cfg.Keys.Build()
	if err != nil {
		return err
	}

	if cfg.Reader.AutoDetect {
		_, _ = fmt.Fprintln(os.Stderr, "Auto-detecting MFRC522 devices...")
	}
	device, err := connect.Open(cfg.Reader)
	if err != nil {
		return err
	}
	defer func() { _ = device.Close() }()

	if version, err := device.Version(); err == nil {
		_, _ = fmt.Fprintf(os.Stderr, "MFRC522 %s (0x%02X)\n", mfrc522.VersionName(version), version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *f.timeout)
	defer cancel()

	a := &app{
		dev:    device,
		keys:   keys,
		out:    os.Stdout,
		poll:   simple.DefaultPollInterval,
		ndef:   *f.ndef,
		verify: *f.verify,
	}
	err = a.run(ctx, fs.Args())
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout: no card within %s", *f.timeout)
	}
	return err
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
