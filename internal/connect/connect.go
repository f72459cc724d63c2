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

// Package connect opens a device from the reader section of a config file
package connect

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/physic"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/config"
	"github.com/ZaparooProject/go-mfrc522/detection"
	// Register every detector for auto-detection
	_ "github.com/ZaparooProject/go-mfrc522/detection/i2c"
	_ "github.com/ZaparooProject/go-mfrc522/detection/spi"
	_ "github.com/ZaparooProject/go-mfrc522/detection/uart"
	"github.com/ZaparooProject/go-mfrc522/transport/i2c"
	"github.com/ZaparooProject/go-mfrc522/transport/spi"
	"github.com/ZaparooProject/go-mfrc522/transport/uart"
)

// Open connects and initializes the reader described by r
func Open(r config.ReaderConfig) (*mfrc522.Device, error) {
	opts, err := Options(r)
	if err != nil {
		return nil, err
	}
	device, err := mfrc522.ConnectDevice(r.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MFRC522: %w", err)
	}
	return device, nil
}

// Options builds the ConnectDevice options for r
func Options(r config.ReaderConfig) ([]mfrc522.ConnectOption, error) {
	opts := []mfrc522.ConnectOption{mfrc522.WithDeviceOptions(r.DeviceOptions()...)}

	if r.AutoDetect || r.Path == "" {
		return append(opts,
			mfrc522.WithAutoDetection(),
			mfrc522.WithBusFromDeviceFactory(BusFromDevice(r)),
		), nil
	}

	factory, err := BusFactory(r)
	if err != nil {
		return nil, err
	}
	return append(opts, mfrc522.WithBusFactory(factory)), nil
}

// BusFactory returns the bus factory for the configured transport
func BusFactory(r config.ReaderConfig) (mfrc522.BusFactory, error) {
	switch strings.ToLower(r.Transport) {
	case "spi":
		return spi.NewFactory(spiOptions(r)...), nil
	case "i2c":
		return i2c.NewFactory(i2cOptions(r, true)...), nil
	case "uart":
		return uart.NewFactory(uartOptions(r)...), nil
	default:
		return nil, fmt.Errorf("%w: %s", detection.ErrUnknownTransport, r.Transport)
	}
}

// BusFromDevice opens a detected device with the tuning from r. The
// detected path carries the I2C address, so r.Address is not applied.
func BusFromDevice(r config.ReaderConfig) mfrc522.BusFromDeviceFactory {
	return func(device detection.DeviceInfo) (mfrc522.Bus, error) {
		switch strings.ToLower(device.Transport) {
		case "spi":
			bus, err := spi.New(device.Path, spiOptions(r)...)
			if err != nil {
				return nil, fmt.Errorf("failed to create SPI bus: %w", err)
			}
			return bus, nil
		case "i2c":
			bus, err := i2c.New(device.Path, i2cOptions(r, false)...)
			if err != nil {
				return nil, fmt.Errorf("failed to create I2C bus: %w", err)
			}
			return bus, nil
		case "uart":
			bus, err := uart.New(device.Path, uartOptions(r)...)
			if err != nil {
				return nil, fmt.Errorf("failed to create UART bus: %w", err)
			}
			return bus, nil
		default:
			return nil, fmt.Errorf("%w: %s", detection.ErrUnknownTransport, device.Transport)
		}
	}
}

func spiOptions(r config.ReaderConfig) []spi.Option {
	var opts []spi.Option
	if r.SpeedHz > 0 {
		opts = append(opts, spi.WithSpeed(physic.Frequency(r.SpeedHz)*physic.Hertz))
	}
	if r.ResetPin != "" {
		opts = append(opts, spi.WithResetPin(r.ResetPin))
	}
	return opts
}

func i2cOptions(r config.ReaderConfig, withAddress bool) []i2c.Option {
	var opts []i2c.Option
	if withAddress && r.Address != 0 {
		opts = append(opts, i2c.WithAddress(r.Address))
	}
	if r.ResetPin != "" {
		opts = append(opts, i2c.WithResetPin(r.ResetPin))
	}
	return opts
}

func uartOptions(r config.ReaderConfig) []uart.Option {
	var opts []uart.Option
	if r.BaudRate > 0 {
		opts = append(opts, uart.WithBaudRate(r.BaudRate))
	}
	return opts
}
