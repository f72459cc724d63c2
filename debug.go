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
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	logger       = log.New(os.Stderr, "mfrc522: ", log.LstdFlags)
)

// SetDebugEnabled turns debug logging on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug logging is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetLogOutput redirects driver log output
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

func debugf(format string, args ...any) {
	if debugEnabled.Load() {
		_ = logger.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
	}
}

func debugln(args ...any) {
	if debugEnabled.Load() {
		_ = logger.Output(2, "DEBUG "+fmt.Sprintln(args...))
	}
}

func warnf(format string, args ...any) {
	_ = logger.Output(2, "WARN "+fmt.Sprintf(format, args...))
}

func errorf(format string, args ...any) {
	_ = logger.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}
