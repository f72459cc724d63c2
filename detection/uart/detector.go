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

// Package uart registers a detector for MFRC522 boards behind USB serial bridges
package uart

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-mfrc522/detection"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	probeBaudRate = 9600
	probeTimeout  = 50 * time.Millisecond
)

// serialPort contains information about a serial port
type serialPort struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

type detector struct {
	list  func() ([]serialPort, error)
	probe func(path string) (byte, error)
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{list: listPorts, probe: probePort}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect enumerates USB serial ports and asks each one for VersionReg
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if !port.IsUSB {
			continue
		}
		if detection.IsPathIgnored(port.Path, opts.IgnorePaths) ||
			detection.IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  "uart",
			Path:       port.Path,
			Name:       port.Product,
			Confidence: detection.Low,
			Metadata: map[string]string{
				"vidpid": port.VIDPID,
				"serial": port.SerialNumber,
			},
		}

		if opts.Mode == detection.Passive {
			devices = append(devices, device)
			continue
		}

		version, err := d.probe(port.Path)
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

func listPorts() ([]serialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]serialPort, 0, len(details))
	for _, d := range details {
		ports = append(ports, serialPort{
			Path:         d.Name,
			VIDPID:       detection.FormatVIDPID(d.VID, d.PID),
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			IsUSB:        d.IsUSB,
		})
	}
	return ports, nil
}

func probePort(path string) (byte, error) {
	p, err := serial.Open(path, &serial.Mode{BaudRate: probeBaudRate})
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = p.Close() }()

	if err := p.SetReadTimeout(probeTimeout); err != nil {
		return 0, fmt.Errorf("set timeout on %s: %w", path, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("flush %s: %w", path, err)
	}
	return readVersion(p)
}

// readVersion sends a VersionReg read and waits for the single reply byte
func readVersion(rw io.ReadWriter) (byte, error) {
	if _, err := rw.Write([]byte{0x80 | detection.VersionReg}); err != nil {
		return 0, fmt.Errorf("write version request: %w", err)
	}

	buf := make([]byte, 1)
	n, err := rw.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if n == 0 {
		return 0, detection.ErrDetectionTimeout
	}
	return buf[0], nil
}
