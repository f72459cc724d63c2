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
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ZaparooProject/go-mfrc522/detection"
)

type detectFunc func(opts *detection.Options) ([]detection.DeviceInfo, error)

func parseMode(s string) (detection.Mode, error) {
	switch s {
	case "passive":
		return detection.Passive, nil
	case "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return 0, fmt.Errorf("%w: mode must be passive, safe or full", errUsage)
	}
}

// runDetect lists the readers found on this host without opening one
func runDetect(out io.Writer, args []string, detect detectFunc) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(out)
	transports := fs.String("transports", "", "Comma separated transports to probe (default all)")
	mode := fs.String("mode", "safe", "Probe mode: passive, safe or full")
	timeout := fs.Duration("timeout", 5*time.Second, "Detection timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := detection.DefaultOptions()
	m, err := parseMode(*mode)
	if err != nil {
		return err
	}
	opts.Mode = m
	opts.Timeout = *timeout
	if *transports != "" {
		opts.Transports = strings.Split(*transports, ",")
	}

	devices, err := detect(&opts)
	if errors.Is(err, detection.ErrNoDevicesFound) || (err == nil && len(devices) == 0) {
		_, _ = fmt.Fprintln(out, "No MFRC522 readers found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reader discovery failed: %w", err)
	}

	for i, d := range devices {
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, d)
		if d.Name != "" {
			_, _ = fmt.Fprintf(out, "   name: %s\n", d.Name)
		}
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(out, "   %s: %s\n", k, d.Metadata[k])
		}
	}
	return nil
}
