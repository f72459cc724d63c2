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

package testing

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ZaparooProject/go-mfrc522/internal/frame"
)

// PICC command bytes understood by VirtualCard
const (
	PICCReqIdle   = 0x26
	PICCReqAll    = 0x52
	PICCCascade1  = 0x93
	PICCAuthent1A = 0x60
	PICCAuthent1B = 0x61
	PICCRead      = 0x30
	PICCWrite     = 0xA0
	PICCDecrement = 0xC0
	PICCIncrement = 0xC1
	PICCRestore   = 0xC2
	PICCTransfer  = 0xB0
	PICCHalt      = 0x50
)

// Card replies
const (
	ACK     = 0x0A
	NAK     = 0x04
	ATQA1K  = 0x0004
	SAK1K   = 0x08
	ackBits = 4
)

// Common UIDs for testing
var (
	// TestMIFARE1KUID is a sample MIFARE Classic 1K UID
	TestMIFARE1KUID = []byte{0x12, 0x34, 0x56, 0x78}
	// TestTextUID spells "abcd"
	TestTextUID = []byte{0x61, 0x62, 0x63, 0x64}
)

// DefaultTrailer is the factory sector trailer: FF keys and transport access bits
var DefaultTrailer = []byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // Key A
	0xFF, 0x07, 0x80, 0x69, // Access bits
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // Key B
}

const (
	mifare1KBlocks  = 64
	blocksPerSector = 4
)

type pendingOp struct {
	cmd   byte
	block int
}

// VirtualCard is a simulated MIFARE Classic 1K card. It answers the frames a
// VirtualChip transmits and tracks the card-side protocol state.
type VirtualCard struct {
	pending      *pendingOp
	transfer     *int32
	failAuth     map[int]bool
	uid          [4]byte
	Memory       [mifare1KBlocks][frame.BlockSize]byte
	authSector   int
	mu           sync.Mutex
	present      bool
	halted       bool
	active       bool
	corruptBCC   bool
	rejectBlock0 bool
}

// NewVirtualMIFARE1K creates a virtual MIFARE Classic 1K card with factory trailers
func NewVirtualMIFARE1K(uid []byte) *VirtualCard {
	if uid == nil {
		uid = TestMIFARE1KUID
	}

	card := &VirtualCard{
		present:      true,
		authSector:   -1,
		failAuth:     make(map[int]bool),
		rejectBlock0: true,
	}
	copy(card.uid[:], uid)
	card.initMemory()
	return card
}

func (c *VirtualCard) initMemory() {
	copy(c.Memory[0][:4], c.uid[:])
	c.Memory[0][4] = frame.BCC(c.uid[:])
	c.Memory[0][5] = SAK1K
	c.Memory[0][6], c.Memory[0][7] = 0x04, 0x00

	for sector := 0; sector < mifare1KBlocks/blocksPerSector; sector++ {
		copy(c.Memory[sector*blocksPerSector+3][:], DefaultTrailer)
	}
}

// UID returns the 4 identity bytes followed by the BCC
func (c *VirtualCard) UID() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(append([]byte(nil), c.uid[:]...), frame.BCC(c.uid[:]))
}

// GetUIDString returns the identity bytes as a hex string
func (c *VirtualCard) GetUIDString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return hex.EncodeToString(c.uid[:])
}

// Block returns a copy of a memory block
func (c *VirtualCard) Block(block int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.Memory[block][:]...)
}

// SetBlock overwrites a memory block without authentication
func (c *VirtualCard) SetBlock(block int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if block < 0 || block >= mifare1KBlocks {
		return fmt.Errorf("block %d out of range", block)
	}
	if len(data) != frame.BlockSize {
		return fmt.Errorf("data must be exactly 16 bytes, got %d", len(data))
	}
	copy(c.Memory[block][:], data)
	return nil
}

// SetValueBlock stores value in the value block layout
func (c *VirtualCard) SetValueBlock(block int, value int32) error {
	b := formatValueBlock(value, byte(block))
	return c.SetBlock(block, b[:])
}

// SetSectorKeys replaces both keys in a sector trailer
func (c *VirtualCard) SetSectorKeys(sector int, keyA, keyB []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	trailer := &c.Memory[sector*blocksPerSector+3]
	copy(trailer[0:6], keyA)
	copy(trailer[10:16], keyB)
}

// FailAuth makes every authentication in sector fail
func (c *VirtualCard) FailAuth(sector int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAuth[sector] = true
}

// CorruptBCC makes anticollision return a wrong check byte
func (c *VirtualCard) CorruptBCC(corrupt bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corruptBCC = corrupt
}

// Remove takes the card out of the field
func (c *VirtualCard) Remove() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = false
	c.resetState()
}

// Insert puts the card back into the field
func (c *VirtualCard) Insert() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = true
	c.halted = false
	c.resetState()
}

// Present reports whether the card is in the field
func (c *VirtualCard) Present() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present
}

// Halted reports whether the card accepted HLTA
func (c *VirtualCard) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted
}

func (c *VirtualCard) resetState() {
	c.active = false
	c.authSector = -1
	c.pending = nil
}

// dropAuth ends the card's crypto session
func (c *VirtualCard) dropAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authSector = -1
}

// authenticate checks key against the sector trailer
func (c *VirtualCard) authenticate(cmd byte, block int, key, uid []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.present || c.halted || !c.active || block < 0 || block >= mifare1KBlocks {
		return false
	}
	sector := block / blocksPerSector
	trailer := c.Memory[sector*blocksPerSector+3]

	var want []byte
	switch cmd {
	case PICCAuthent1A:
		want = trailer[0:6]
	case PICCAuthent1B:
		want = trailer[10:16]
	default:
		return false
	}

	if c.failAuth[sector] || string(uid) != string(c.uid[:]) || string(key) != string(want) {
		c.resetState()
		return false
	}
	c.authSector = sector
	return true
}

// transceive answers one frame. txLastBits is the number of valid bits in
// the last byte sent, 0 meaning 8. ok is false when the card stays silent.
func (c *VirtualCard) transceive(data []byte, txLastBits int) (resp []byte, bits int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.present || len(data) == 0 {
		return nil, 0, false
	}

	if txLastBits == 7 && len(data) == 1 {
		return c.request(data[0])
	}
	if txLastBits != 0 || c.halted {
		return nil, 0, false
	}

	if c.pending != nil {
		op := *c.pending
		c.pending = nil
		return c.completePending(op, data)
	}

	if len(data) == 2 && data[0] == PICCCascade1 && data[1] == 0x20 {
		uid := append(append([]byte(nil), c.uid[:]...), frame.BCC(c.uid[:]))
		if c.corruptBCC {
			uid[4] ^= 0xFF
		}
		return uid, len(uid) * 8, true
	}

	if !frame.CheckCRCA(data) {
		return nak()
	}
	body := data[:len(data)-2]

	switch {
	case len(body) == 7 && body[0] == PICCCascade1 && body[1] == 0x70:
		return c.selectCard(body[2:])
	case len(body) == 2 && body[0] == PICCHalt:
		c.halted = true
		c.resetState()
		return nil, 0, false
	case len(body) == 2 && body[0] == PICCRead:
		return c.read(int(body[1]))
	case len(body) == 2 && body[0] == PICCWrite:
		return c.beginWrite(int(body[1]))
	case len(body) == 2 && (body[0] == PICCIncrement || body[0] == PICCDecrement || body[0] == PICCRestore):
		return c.beginValue(body[0], int(body[1]))
	case len(body) == 2 && body[0] == PICCTransfer:
		return c.transferTo(int(body[1]))
	default:
		return nak()
	}
}

func (c *VirtualCard) request(cmd byte) ([]byte, int, bool) {
	switch cmd {
	case PICCReqAll:
		c.halted = false
	case PICCReqIdle:
		if c.halted {
			return nil, 0, false
		}
	default:
		return nil, 0, false
	}
	c.resetState()
	return []byte{byte(ATQA1K), byte(ATQA1K >> 8)}, 16, true
}

func (c *VirtualCard) selectCard(uid []byte) ([]byte, int, bool) {
	if len(uid) != 5 || string(uid[:4]) != string(c.uid[:]) || uid[4] != frame.BCC(c.uid[:]) {
		return nil, 0, false
	}
	c.active = true
	return frame.AppendCRCA([]byte{SAK1K}), 24, true
}

func (c *VirtualCard) authorized(block int) bool {
	return c.active && block >= 0 && block < mifare1KBlocks && c.authSector == block/blocksPerSector
}

func (c *VirtualCard) read(block int) ([]byte, int, bool) {
	if !c.authorized(block) {
		return nak()
	}
	data := append([]byte(nil), c.Memory[block][:]...)
	if block%blocksPerSector == 3 {
		for i := 0; i < 6; i++ {
			data[i] = 0
		}
	}
	data = frame.AppendCRCA(data)
	return data, len(data) * 8, true
}

func (c *VirtualCard) beginWrite(block int) ([]byte, int, bool) {
	if !c.authorized(block) || (block == 0 && c.rejectBlock0) {
		return nak()
	}
	c.pending = &pendingOp{cmd: PICCWrite, block: block}
	return ack()
}

func (c *VirtualCard) beginValue(cmd byte, block int) ([]byte, int, bool) {
	if !c.authorized(block) || !checkValueBlock(c.Memory[block][:]) {
		return nak()
	}
	c.pending = &pendingOp{cmd: cmd, block: block}
	return ack()
}

func (c *VirtualCard) completePending(op pendingOp, data []byte) ([]byte, int, bool) {
	if !frame.CheckCRCA(data) {
		return nak()
	}
	body := data[:len(data)-2]

	if op.cmd == PICCWrite {
		if len(body) != frame.BlockSize {
			return nak()
		}
		copy(c.Memory[op.block][:], body)
		return ack()
	}

	if len(body) != 4 {
		return nil, 0, false
	}
	current := int32(binary.LittleEndian.Uint32(c.Memory[op.block][0:4]))
	operand := int32(binary.LittleEndian.Uint32(body))
	var result int32
	switch op.cmd {
	case PICCIncrement:
		result = current + operand
	case PICCDecrement:
		result = current - operand
	default:
		result = current
	}
	c.transfer = &result
	// Value commands never acknowledge the operand.
	return nil, 0, false
}

func (c *VirtualCard) transferTo(block int) ([]byte, int, bool) {
	if !c.authorized(block) || c.transfer == nil {
		return nak()
	}
	addr := c.Memory[block][12]
	b := formatValueBlock(*c.transfer, addr)
	c.Memory[block] = b
	c.transfer = nil
	return ack()
}

func ack() ([]byte, int, bool) {
	return []byte{ACK}, ackBits, true
}

func nak() ([]byte, int, bool) {
	return []byte{NAK}, ackBits, true
}

func formatValueBlock(value int32, addr byte) [frame.BlockSize]byte {
	var b [frame.BlockSize]byte
	v := uint32(value)
	binary.LittleEndian.PutUint32(b[0:4], v)
	binary.LittleEndian.PutUint32(b[4:8], ^v)
	binary.LittleEndian.PutUint32(b[8:12], v)
	b[12], b[13], b[14], b[15] = addr, ^addr, addr, ^addr
	return b
}

func checkValueBlock(b []byte) bool {
	v := binary.LittleEndian.Uint32(b[0:4])
	return v == ^binary.LittleEndian.Uint32(b[4:8]) &&
		v == binary.LittleEndian.Uint32(b[8:12]) &&
		b[12] == b[14] && b[13] == b[15] && b[12] == ^b[13]
}
