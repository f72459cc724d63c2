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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
)

type fakeResetPin struct {
	err  error
	high bool
}

func (p *fakeResetPin) SetHigh() error {
	if p.err != nil {
		return p.err
	}
	p.high = true
	return nil
}

func (p *fakeResetPin) SetLow() error {
	p.high = false
	return nil
}

type closingResetPin struct {
	fakeResetPin
	closeErr error
	closed   int
}

func (p *closingResetPin) Close() error {
	p.closed++
	return p.closeErr
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	device, err := New(NewMockBus())
	require.NoError(t, err)
	cfg := device.Config()
	assert.Equal(t, DefaultPollBudget, cfg.PollBudget)
	assert.Equal(t, DefaultCRCPollBudget, cfg.CRCPollBudget)
	assert.False(t, cfg.SoftwareCRC)
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "poll budget", opts: []Option{WithPollBudget(10)}},
		{name: "zero poll budget", opts: []Option{WithPollBudget(0)}, wantErr: true},
		{name: "negative crc budget", opts: []Option{WithCRCPollBudget(-1)}, wantErr: true},
		{name: "gain", opts: []Option{WithAntennaGain(Gain48dB)}},
		{name: "bad gain", opts: []Option{WithAntennaGain(0x0F)}, wantErr: true},
		{name: "nil config", opts: []Option{WithDeviceConfig(nil)}, wantErr: true},
		{name: "invalid config", opts: []Option{WithDeviceConfig(&DeviceConfig{})}, wantErr: true},
		{name: "software crc", opts: []Option{WithSoftwareCRC()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(NewMockBus(), tt.opts...)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInit(t *testing.T) {
	t.Parallel()

	pin := &fakeResetPin{}
	bus := NewMockBus()
	device, err := New(bus, WithResetPin(pin), WithAntennaGain(Gain48dB))
	require.NoError(t, err)
	require.NoError(t, device.Init())

	assert.True(t, pin.high)
	assert.Equal(t, []byte{byte(PCDSoftReset)}, bus.WritesTo(CommandReg))
	assert.Equal(t, byte(0x8D), bus.Register(TModeReg))
	assert.Equal(t, byte(0x3E), bus.Register(TPrescalerReg))
	assert.Equal(t, byte(30), bus.Register(TReloadRegL))
	assert.Equal(t, byte(0), bus.Register(TReloadRegH))
	assert.Equal(t, byte(0x40), bus.Register(TxAutoReg))
	assert.Equal(t, byte(0x3D), bus.Register(ModeReg))
	assert.Equal(t, Gain48dB, bus.Register(RFCfgReg)&rxGainMask)
	assert.Equal(t, byte(antennaOn), bus.Register(TxControlReg)&antennaOn)
}

func TestInit_ResetPinError(t *testing.T) {
	t.Parallel()

	pinErr := errors.New("gpio busy")
	bus := NewMockBus()
	device, err := New(bus, WithResetPin(&fakeResetPin{err: pinErr}))
	require.NoError(t, err)

	require.ErrorIs(t, device.Init(), pinErr)
	assert.Zero(t, bus.IOCount())
}

func TestAntenna(t *testing.T) {
	t.Parallel()

	device, chip := newSimDevice(t, nil)
	assert.Equal(t, byte(0x83), chip.Register(testutil.TxControlReg))

	require.NoError(t, device.AntennaOff())
	assert.Equal(t, byte(0x80), chip.Register(testutil.TxControlReg))

	require.NoError(t, device.AntennaOn())
	assert.Equal(t, byte(0x83), chip.Register(testutil.TxControlReg))

	writes := chip.Writes()
	require.NoError(t, device.AntennaOn())
	assert.Equal(t, writes, chip.Writes(), "already on")
}

func TestAntennaGain(t *testing.T) {
	t.Parallel()

	device, chip := newSimDevice(t, nil)
	require.NoError(t, device.SetAntennaGain(Gain33dB))

	gain, err := device.AntennaGain()
	require.NoError(t, err)
	assert.Equal(t, Gain33dB, gain)
	assert.Equal(t, byte(0x08), chip.Register(testutil.RFCfgReg)&^rxGainMask, "other bits kept")

	require.ErrorIs(t, device.SetAntennaGain(0x01), ErrInvalidArgument)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		version byte
	}{
		{name: "v1", version: Version1, want: "MFRC522 v1.0"},
		{name: "v2", version: Version2, want: "MFRC522 v2.0"},
		{name: "clone", version: VersionClone, want: "FM17522 clone"},
		{name: "unknown", version: 0x12, want: "unknown (12)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chip := testutil.NewVirtualChip(nil)
			chip.SetVersion(tt.version)
			device, err := New(NewSimulatedBus(chip))
			require.NoError(t, err)

			v, err := device.Version()
			require.NoError(t, err)
			assert.Equal(t, tt.version, v)
			assert.Equal(t, tt.want, VersionName(v))
		})
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	device, err := New(bus)
	require.NoError(t, err)

	require.NoError(t, device.Close())
	require.NoError(t, device.Close())
	assert.Equal(t, 1, bus.CloseCount())

	_, err = device.Version()
	require.ErrorIs(t, err, ErrBusClosed)
}

func TestClose_ReleasesResetPin(t *testing.T) {
	t.Parallel()

	pin := &closingResetPin{}
	bus := NewMockBus()
	device, err := New(bus, WithResetPin(pin))
	require.NoError(t, err)
	require.NoError(t, device.Init())
	assert.True(t, pin.high)

	require.NoError(t, device.Close())
	require.NoError(t, device.Close())
	assert.Equal(t, 1, pin.closed)
	assert.Equal(t, 1, bus.CloseCount())
}

func TestClose_ResetPinError(t *testing.T) {
	t.Parallel()

	pinErr := errors.New("gpio busy")
	pin := &closingResetPin{closeErr: pinErr}
	bus := NewMockBus()
	device, err := New(bus, WithResetPin(pin))
	require.NoError(t, err)

	err = device.Close()
	require.ErrorIs(t, err, pinErr)
	assert.Equal(t, 1, bus.CloseCount(), "bus is closed even when the pin fails")
}

func TestConnectDevice(t *testing.T) {
	t.Parallel()

	chip := testutil.NewVirtualChip(nil)
	var gotPath string
	factory := func(path string) (Bus, error) {
		gotPath = path
		return NewSimulatedBus(chip), nil
	}

	device, err := ConnectDevice("/dev/spidev0.0",
		WithBusFactory(factory),
		WithDeviceOptions(WithPollBudget(100)))
	require.NoError(t, err)
	defer func() { _ = device.Close() }()

	assert.Equal(t, "/dev/spidev0.0", gotPath)
	assert.Equal(t, 100, device.Config().PollBudget)
	assert.Equal(t, byte(0x8D), chip.Register(0x2A))
}

func TestConnectDevice_Errors(t *testing.T) {
	t.Parallel()

	_, err := ConnectDevice("/dev/spidev0.0")
	require.Error(t, err)

	openErr := errors.New("no such device")
	_, err = ConnectDevice("/dev/spidev9.9", WithBusFactory(func(string) (Bus, error) {
		return nil, openErr
	}))
	require.ErrorIs(t, err, openErr)

	bus := NewMockBus()
	_, err = ConnectDevice("/dev/spidev0.0",
		WithBusFactory(func(string) (Bus, error) { return bus, nil }),
		WithDeviceOptions(WithPollBudget(0)))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, bus.CloseCount(), "bus released on failure")

	_, err = ConnectDevice("", WithDetectTimeout(0))
	require.ErrorIs(t, err, ErrInvalidArgument)
}
