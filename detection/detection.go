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

// Package detection finds MFRC522 chips on the host's SPI, I2C and serial
// buses. Detectors live in sub-packages and register themselves on import:
//
//	import (
//		"github.com/ZaparooProject/go-mfrc522/detection"
//		_ "github.com/ZaparooProject/go-mfrc522/detection/i2c"
//		_ "github.com/ZaparooProject/go-mfrc522/detection/spi"
//	)
//
//	devices, err := detection.DetectAll(nil)
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no MFRC522 devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
	ErrUnknownTransport    = errors.New("unknown transport")
)

// VersionReg is the register every detector reads to identify the chip
const VersionReg = 0x37

// IsKnownVersion reports whether v is a VersionReg value of an MFRC522 or
// a known compatible clone.
func IsKnownVersion(v byte) bool {
	switch v {
	case 0x88, 0x90, 0x91, 0x92, 0x12:
		return true
	default:
		return false
	}
}

// Mode controls how intrusive detection is allowed to be
type Mode int

const (
	// Passive lists candidate buses without any bus traffic
	Passive Mode = iota
	// Safe reads VersionReg only
	Safe
	// Full also scans every candidate address
	Full
)

// Confidence grades how sure a detector is about a result
type Confidence int

const (
	// Low means the bus exists but nothing was confirmed
	Low Confidence = iota
	// Medium means the default address answered
	Medium
	// High means VersionReg returned a known chip version
	High
)

// String returns a readable confidence level
func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a detected chip
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Version    byte
	Confidence Confidence
}

// String returns a short description
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s:%s (version %02X, %s confidence)", d.Transport, d.Path, d.Version, d.Confidence)
}

// Options configures detection
type Options struct {
	IgnorePaths []string
	Blocklist   []string
	Transports  []string
	Timeout     time.Duration
	Mode        Mode
}

// DefaultOptions returns detection options suitable for most hosts
func DefaultOptions() Options {
	return Options{
		Timeout:   5 * time.Second,
		Mode:      Safe,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds chips on one kind of transport
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

type registry struct {
	detectors map[string]Detector
	mu        sync.RWMutex
}

func newRegistry() *registry {
	return &registry{detectors: make(map[string]Detector)}
}

func (r *registry) register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Transport()] = d
}

func (r *registry) list() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Detector, 0, len(r.detectors))
	for _, d := range r.detectors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

func (r *registry) get(transport string) (Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[transport]
	return d, ok
}

var defaultRegistry = newRegistry()

// RegisterDetector adds a detector. A later registration for the same
// transport replaces the earlier one.
func RegisterDetector(d Detector) {
	defaultRegistry.register(d)
}

// Detectors returns the registered detectors sorted by transport
func Detectors() []Detector {
	return defaultRegistry.list()
}

// DetectAll runs every registered detector. A nil opts uses DefaultOptions.
// Results are ordered by confidence, best first.
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}

	ctx, cancel := context.WithCancel(context.Background())
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), opts.Timeout)
	}
	defer cancel()

	return detectWith(ctx, filterDetectors(defaultRegistry.list(), opts.Transports), opts)
}

// Detect runs the detector registered for one transport
func Detect(ctx context.Context, transport string, opts *Options) ([]DeviceInfo, error) {
	d, ok := defaultRegistry.get(transport)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, transport)
	}
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	return detectWith(ctx, []Detector{d}, opts)
}

func filterDetectors(all []Detector, transports []string) []Detector {
	if len(transports) == 0 {
		return all
	}
	var out []Detector
	for _, d := range all {
		for _, t := range transports {
			if d.Transport() == t {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func detectWith(ctx context.Context, detectors []Detector, opts *Options) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	var errs []error

	for _, d := range detectors {
		select {
		case <-ctx.Done():
			if len(devices) > 0 {
				return sortDevices(devices), nil
			}
			return nil, ErrDetectionTimeout
		default:
		}

		found, err := d.Detect(ctx, opts)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoDevicesFound), errors.Is(err, ErrUnsupportedPlatform):
			continue
		default:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			continue
		}

		for _, dev := range found {
			if IsPathIgnored(dev.Path, opts.IgnorePaths) {
				continue
			}
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(append([]error{ErrNoDevicesFound}, errs...)...)
		}
		return nil, ErrNoDevicesFound
	}
	return sortDevices(devices), nil
}

func sortDevices(devices []DeviceInfo) []DeviceInfo {
	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Confidence != devices[j].Confidence {
			return devices[i].Confidence > devices[j].Confidence
		}
		if devices[i].Transport != devices[j].Transport {
			return devices[i].Transport < devices[j].Transport
		}
		return devices[i].Path < devices[j].Path
	})
	return devices
}
