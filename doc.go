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

/*
Package mfrc522 provides a pure Go driver for the NXP MFRC522 contactless
reader chip and the ISO14443-A / MIFARE Classic protocol spoken through it.

The chip is driven one register at a time over a Bus (SPI, I2C or UART).
Every card exchange goes through Transceive, which loads the FIFO, starts
the command and busy-polls the interrupt register under a fixed iteration
budget. No interrupt line is required.

Features:
  - SPI, I2C and UART register buses
  - REQA/WUPA, anticollision with BCC check, SELECT and HLTA
  - MIFARE Classic authentication, block read/write and value blocks
  - Best-effort Classic 1K dumps with key A/B fallback
  - Hardware or software CRC_A

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-mfrc522"
	    "github.com/ZaparooProject/go-mfrc522/transport/spi"
	)

	bus, err := spi.New("/dev/spidev0.0", spi.WithResetPin("GPIO25"))
	if err != nil {
	    log.Fatal(err)
	}

	device, err := mfrc522.New(bus)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Init(); err != nil {
	    log.Fatal(err)
	}

	session := mfrc522.NewSession(device)
	uid, status, err := session.Begin(mfrc522.PICCReqIdle)
	if err != nil {
	    log.Fatal(err)
	}
	if status == mfrc522.StatusOK {
	    fmt.Printf("Card: %s\n", uid)
	}

Status Codes:

No card, a timeout or a chip error bit are routine on a contactless link.
They are reported as a Status, never as an error. A returned error always
means a bus fault or a caller mistake:

	data, status, err := device.ReadBlock(8)
	if err != nil {
	    return err // bus I/O or ErrNoData
	}
	if status != mfrc522.StatusOK {
	    // retry after the card is presented again
	}

Thread Safety:

Device operations are not thread-safe. Run the whole engine on one goroutine
or serialize access externally.
*/
package mfrc522
