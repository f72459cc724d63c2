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

// Package i2c registers a detector that probes periph I2C buses for an MFRC522
package i2c

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-mfrc522/detection"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the MFRC522 address with ADR pins low
	DefaultAddress uint16 = 0x28

	// lastAddress is the highest address selectable with the ADR pins
	lastAddress uint16 = 0x2F
)

// detector implements the Detector interface for I2C devices
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect searches the periph I2C registry for MFRC522 chips
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	return detectRefs(ctx, i2creg.All(), opts)
}

func detectRefs(ctx context.Context, refs []*i2creg.Ref, opts *detection.Options) ([]detection.DeviceInfo, error) {
	var devices []detection.DeviceInfo

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if opts.Mode == detection.Passive {
			dev := newDeviceInfo(ref.Name, DefaultAddress)
			if !detection.IsPathIgnored(dev.Path, opts.IgnorePaths) {
				devices = append(devices, dev)
			}
			continue
		}

		found, err := scanBus(ctx, ref, opts)
		if err != nil {
			continue // Skip this bus on error
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// scanBus probes the default address, or every ADR-selectable address in
// Full mode.
func scanBus(ctx context.Context, ref *i2creg.Ref, opts *detection.Options) ([]detection.DeviceInfo, error) {
	bus, err := ref.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref.Name, err)
	}
	defer func() { _ = bus.Close() }()

	last := DefaultAddress
	if opts.Mode == detection.Full {
		last = lastAddress
	}

	var devices []detection.DeviceInfo
	for addr := DefaultAddress; addr <= last; addr++ {
		if ctx.Err() != nil {
			break
		}

		dev := newDeviceInfo(ref.Name, addr)
		if detection.IsPathIgnored(dev.Path, opts.IgnorePaths) {
			continue
		}

		version, err := probe(bus, addr)
		if err != nil || !detection.IsKnownVersion(version) {
			continue
		}
		dev.Version = version
		dev.Confidence = detection.High
		devices = append(devices, dev)
	}
	return devices, nil
}

func newDeviceInfo(busName string, addr uint16) detection.DeviceInfo {
	confidence := detection.Low
	if addr == DefaultAddress {
		confidence = detection.Medium
	}
	return detection.DeviceInfo{
		Transport:  "i2c",
		Path:       fmt.Sprintf("%s:0x%02X", busName, addr),
		Name:       fmt.Sprintf("I2C device on %s address 0x%02X", busName, addr),
		Confidence: confidence,
		Metadata: map[string]string{
			"bus":     busName,
			"address": fmt.Sprintf("0x%02X", addr),
		},
	}
}

// probe reads VersionReg at addr
func probe(bus i2c.Bus, addr uint16) (byte, error) {
	r := make([]byte, 1)
	if err := bus.Tx(addr, []byte{detection.VersionReg}, r); err != nil {
		return 0, fmt.Errorf("read version at 0x%02X: %w", addr, err)
	}
	return r[0], nil
}
