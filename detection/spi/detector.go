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

// Package spi registers a detector that probes periph SPI ports for an MFRC522
package spi

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-mfrc522/detection"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const probeSpeed = 1 * physic.MegaHertz

type detector struct{}

// New creates a new SPI detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "spi"
}

// Detect probes every registered SPI port
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	return detectRefs(ctx, spireg.All(), opts)
}

func detectRefs(ctx context.Context, refs []*spireg.Ref, opts *detection.Options) ([]detection.DeviceInfo, error) {
	devices := make([]detection.DeviceInfo, 0, len(refs))

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if detection.IsPathIgnored(ref.Name, opts.IgnorePaths) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  "spi",
			Path:       ref.Name,
			Name:       "SPI port " + ref.Name,
			Confidence: detection.Low,
			Metadata:   map[string]string{"number": fmt.Sprintf("%d", ref.Number)},
		}

		if opts.Mode == detection.Passive {
			devices = append(devices, device)
			continue
		}

		version, err := probeRef(ref)
		if err != nil || !detection.IsKnownVersion(version) {
			continue
		}
		device.Version = version
		device.Confidence = detection.High
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func probeRef(ref *spireg.Ref) (byte, error) {
	port, err := ref.Open()
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", ref.Name, err)
	}
	defer func() { _ = port.Close() }()

	c, err := port.Connect(probeSpeed, spi.Mode0, 8)
	if err != nil {
		return 0, fmt.Errorf("connect %s: %w", ref.Name, err)
	}
	return probe(c)
}

// probe reads VersionReg with one two-byte transfer
func probe(c conn.Conn) (byte, error) {
	w := []byte{(detection.VersionReg<<1)&0x7E | 0x80, 0x00}
	r := make([]byte, len(w))
	if err := c.Tx(w, r); err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return r[1], nil
}
