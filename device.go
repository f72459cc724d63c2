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

package mfrc522

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-mfrc522/detection"
)

// Device represents an MFRC522 reader chip on a register bus
//
// Thread Safety: Device is NOT thread-safe. Every operation is a sequence of
// register exchanges that must not interleave with another. All methods must
// be called from a single goroutine or protected with external synchronization.
type Device struct {
	bus      Bus
	resetPin ResetPin
	config   *DeviceConfig
	closed   bool
}

// New creates a new MFRC522 device on the given bus
func New(bus Bus, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalidArgument)
	}

	device := &Device{
		bus:    bus,
		config: DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	if err := device.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}

	return device, nil
}

// BusFactory creates a bus for a device path
type BusFactory func(path string) (Bus, error)

// BusFromDeviceFactory creates a bus for a detected device
type BusFromDeviceFactory func(device detection.DeviceInfo) (Bus, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for device connection
type connectConfig struct {
	busFactory       BusFactory
	busDeviceFactory BusFromDeviceFactory
	deviceOptions    []Option
	detectTimeout    time.Duration
	autoDetect       bool
}

// WithAutoDetection enables automatic device detection instead of using a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithDetectTimeout bounds auto-detection
func WithDetectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: detect timeout must be positive", ErrInvalidArgument)
		}
		c.detectTimeout = timeout
		return nil
	}
}

// WithBusFactory sets the bus factory function
func WithBusFactory(factory BusFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.busFactory = factory
		return nil
	}
}

// WithBusFromDeviceFactory sets the bus factory used for detected devices
func WithBusFromDeviceFactory(factory BusFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.busDeviceFactory = factory
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		detectTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	return config, nil
}

// ConnectDevice creates and initializes a device from a path or auto-detection.
//
// Example usage:
//
//	// Connect to a specific SPI port
//	device, err := mfrc522.ConnectDevice("/dev/spidev0.0", mfrc522.WithBusFactory(spi.NewFactory()))
//
//	// Auto-detect a chip
//	device, err := mfrc522.ConnectDevice("", mfrc522.WithAutoDetection(),
//		mfrc522.WithBusFromDeviceFactory(factory))
func ConnectDevice(path string, opts ...ConnectOption) (*Device, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	bus, err := createBus(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create bus: %w", err)
	}

	device, err := New(bus, config.deviceOptions...)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if err := device.Init(); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}

	return device, nil
}

func createBus(path string, config *connectConfig) (Bus, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedBus(config)
	}

	if config.busFactory == nil {
		return nil, errors.New("bus factory not provided")
	}
	bus, err := config.busFactory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bus at %s: %w", path, err)
	}
	return bus, nil
}

func createAutoDetectedBus(config *connectConfig) (Bus, error) {
	if config.busDeviceFactory == nil {
		return nil, errors.New("bus device factory not provided")
	}

	opts := detection.DefaultOptions()
	opts.Timeout = config.detectTimeout

	devices, err := detection.DetectAll(&opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrDeviceNotFound
	}

	debugf("Auto-detected %s device at %s (version %02X)", devices[0].Transport, devices[0].Path, devices[0].Version)
	return config.busDeviceFactory(devices[0])
}

// Bus returns the underlying register bus
func (d *Device) Bus() Bus {
	return d.bus
}

// Config returns a copy of the active configuration
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// Init brings the chip out of reset and programs a known-good configuration:
// a 25 ms timer that bounds every card exchange, 100% ASK modulation and the
// CRC preset 0x6363. The antenna is switched on last.
func (d *Device) Init() error {
	if d.resetPin != nil {
		if err := d.resetPin.SetHigh(); err != nil {
			return fmt.Errorf("failed to release reset line: %w", err)
		}
	}

	if err := d.Reset(); err != nil {
		return err
	}

	err := d.writeRegs(
		TModeReg, 0x8D,
		TPrescalerReg, 0x3E,
		TReloadRegL, 30,
		TReloadRegH, 0,
		TxAutoReg, 0x40,
		ModeReg, 0x3D,
	)
	if err != nil {
		return fmt.Errorf("failed to configure chip: %w", err)
	}

	if d.config.HasAntennaGain {
		if err := d.SetAntennaGain(d.config.AntennaGain); err != nil {
			return err
		}
	}

	return d.AntennaOn()
}

// Reset issues a soft reset
func (d *Device) Reset() error {
	if err := d.bus.WriteRegister(CommandReg, byte(PCDSoftReset)); err != nil {
		return fmt.Errorf("failed to soft reset: %w", err)
	}
	return nil
}

// AntennaOn enables the TX1 and TX2 drivers if they are not already on
func (d *Device) AntennaOn() error {
	v, err := d.bus.ReadRegister(TxControlReg)
	if err != nil {
		return fmt.Errorf("failed to read antenna state: %w", err)
	}
	if v&antennaOn == antennaOn {
		return nil
	}
	debugln("Enabling antenna")
	return d.setBitMask(TxControlReg, antennaOn)
}

// AntennaOff disables the TX1 and TX2 drivers
func (d *Device) AntennaOff() error {
	return d.clearBitMask(TxControlReg, antennaOn)
}

// SetAntennaGain writes the RxGain bits of RFCfgReg
func (d *Device) SetAntennaGain(gain byte) error {
	if gain&^rxGainMask != 0 {
		return fmt.Errorf("%w: antenna gain %02X outside RxGain bits", ErrInvalidArgument, gain)
	}
	if err := d.clearBitMask(RFCfgReg, rxGainMask); err != nil {
		return err
	}
	return d.setBitMask(RFCfgReg, gain)
}

// AntennaGain returns the RxGain bits of RFCfgReg
func (d *Device) AntennaGain() (byte, error) {
	v, err := d.bus.ReadRegister(RFCfgReg)
	if err != nil {
		return 0, fmt.Errorf("failed to read antenna gain: %w", err)
	}
	return v & rxGainMask, nil
}

// Version reads the chip version register
func (d *Device) Version() (byte, error) {
	v, err := d.bus.ReadRegister(VersionReg)
	if err != nil {
		return 0, fmt.Errorf("failed to read version: %w", err)
	}
	return v, nil
}

// VersionName returns a human readable name for a VersionReg value
func VersionName(v byte) string {
	switch v {
	case Version1:
		return "MFRC522 v1.0"
	case Version2:
		return "MFRC522 v2.0"
	case VersionClone:
		return "FM17522 clone"
	default:
		return fmt.Sprintf("unknown (%02X)", v)
	}
}

// StopCrypto1 leaves the authenticated state by clearing MFCrypto1On
func (d *Device) StopCrypto1() error {
	return d.clearBitMask(Status2Reg, crypto1On)
}

// Crypto1On reports whether the chip holds an authenticated Crypto1 session
func (d *Device) Crypto1On() (bool, error) {
	v, err := d.bus.ReadRegister(Status2Reg)
	if err != nil {
		return false, fmt.Errorf("failed to read Status2Reg: %w", err)
	}
	return v&crypto1On != 0, nil
}

// Close releases the bus and, when it implements io.Closer, the reset line
// passed with WithResetPin. It is safe to call more than once.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close bus: %w", err))
	}
	if c, ok := d.resetPin.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release reset line: %w", err))
		}
	}
	return errors.Join(errs...)
}
