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

// Command is a PCD command written to CommandReg.
type Command byte

// PCD commands
const (
	PCDIdle       Command = 0x00
	PCDCalcCRC    Command = 0x03
	PCDTransmit   Command = 0x04
	PCDReceive    Command = 0x08
	PCDTransceive Command = 0x0C
	PCDAuthent    Command = 0x0E
	PCDSoftReset  Command = 0x0F
)

// PICC commands
const (
	PICCReqIdle    = 0x26
	PICCReqAll     = 0x52
	PICCAnticoll   = 0x93
	PICCSelectTag  = 0x93
	PICCAuthent1A  = 0x60
	PICCAuthent1B  = 0x61
	PICCRead       = 0x30
	PICCWrite      = 0xA0
	PICCDecrement  = 0xC0
	PICCIncrement  = 0xC1
	PICCRestore    = 0xC2
	PICCTransfer   = 0xB0
	PICCHalt       = 0x50
	piccNVB        = 0x20 // anticollision, no known UID bits
	piccNVBSelect  = 0x70 // select, all 40 UID bits
	piccACK        = 0x0A
	piccACKMask    = 0x0F
	piccACKBits    = 4
	requestBits    = 0x10
	selectBits     = 0x18
	reqBitFraming  = 0x07 // TxLastBits: 7-bit short frame
	fullBitFraming = 0x00
)

// Page 0: command and status
const (
	CommandReg    = 0x01
	CommIEnReg    = 0x02
	DivIEnReg     = 0x03
	CommIrqReg    = 0x04
	DivIrqReg     = 0x05
	ErrorReg      = 0x06
	Status1Reg    = 0x07
	Status2Reg    = 0x08
	FIFODataReg   = 0x09
	FIFOLevelReg  = 0x0A
	WaterLevelReg = 0x0B
	ControlReg    = 0x0C
	BitFramingReg = 0x0D
	CollReg       = 0x0E
)

// Page 1: command
const (
	ModeReg        = 0x11
	TxModeReg      = 0x12
	RxModeReg      = 0x13
	TxControlReg   = 0x14
	TxAutoReg      = 0x15
	TxSelReg       = 0x16
	RxSelReg       = 0x17
	RxThresholdReg = 0x18
	DemodReg       = 0x19
	MifareReg      = 0x1C
	SerialSpeedReg = 0x1F
)

// Page 2: configuration
const (
	CRCResultRegM     = 0x21
	CRCResultRegL     = 0x22
	ModWidthReg       = 0x24
	RFCfgReg          = 0x26
	GsNReg            = 0x27
	CWGsPReg          = 0x28
	ModGsPReg         = 0x29
	TModeReg          = 0x2A
	TPrescalerReg     = 0x2B
	TReloadRegH       = 0x2C
	TReloadRegL       = 0x2D
	TCounterValueRegH = 0x2E
	TCounterValueRegL = 0x2F
)

// Page 3: test registers
const (
	TestSel1Reg     = 0x31
	TestSel2Reg     = 0x32
	TestPinEnReg    = 0x33
	TestPinValueReg = 0x34
	TestBusReg      = 0x35
	AutoTestReg     = 0x36
	VersionReg      = 0x37
	AnalogTestReg   = 0x38
	TestDAC1Reg     = 0x39
	TestDAC2Reg     = 0x3A
	TestADCReg      = 0x3B
)

// Register bits
const (
	irqTimer   = 0x01 // CommIrqReg TimerIRq, the "no tag" bit
	irqErr     = 0x02
	irqIdle    = 0x10
	irqRx      = 0x20
	irqSet1    = 0x80
	irqClear   = 0x7F // clears every CommIrqReg request bit when Set1 is 0
	divIrqCRC  = 0x04
	fifoFlush  = 0x80
	startSend  = 0x80
	crypto1On  = 0x08
	rxLastBits = 0x07
	antennaOn  = 0x03
	rxGainMask = 0x70

	// errorMask selects BufferOvfl, CollErr, ParityErr and ProtocolErr.
	errorMask = 0x1B
)

// Interrupt enable and wait masks per command
const (
	authIrqEn         = 0x12
	authWaitIrq       = 0x10
	transceiveIrqEn   = 0x77
	transceiveWaitIrq = 0x30
)

// Chip versions reported by VersionReg
const (
	VersionClone = 0x88
	Version1     = 0x91
	Version2     = 0x92
)

// Antenna receiver gains for RFCfgReg RxGain bits
const (
	Gain18dB byte = 0x00
	Gain23dB byte = 0x10
	Gain33dB byte = 0x40
	Gain38dB byte = 0x50
	Gain43dB byte = 0x60
	Gain48dB byte = 0x70
)
