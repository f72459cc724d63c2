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

// Command mfrc522-agent watches an MFRC522 reader and streams card events
// to websocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/agent"
	"github.com/ZaparooProject/go-mfrc522/config"
	"github.com/ZaparooProject/go-mfrc522/internal/connect"
	"github.com/ZaparooProject/go-mfrc522/polling"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	noMDNS := flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	if *debug {
		mfrc522.SetDebugEnabled(true)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("[agent] %v", err)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Agent.Listen = *listen
	}
	if *noMDNS {
		cfg.Agent.MDNS = false
	}
	if cfg.Reader.Path == "" {
		cfg.Reader.AutoDetect = true
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("[agent] %v", err)
	}

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[agent] %v", err)
	}
}

func run(cfg *config.Config) error {
	device, err := connect.Open(cfg.Reader)
	if err != nil {
		return err
	}

	if version, err := device.Version(); err == nil {
		log.Printf("[agent] MFRC522 %s (0x%02X)", mfrc522.VersionName(version), version)
	}

	monitor := polling.NewMonitor(device, &polling.Config{
		PollInterval:       cfg.Polling.Interval(),
		CardRemovalTimeout: cfg.Polling.RemovalTimeout(),
	})
	defer func() {
		if err := monitor.Close(); err != nil {
			log.Printf("[agent] %v", err)
		}
	}()

	server := agent.New(agent.Config{
		Listen: cfg.Agent.Listen,
		Name:   cfg.Agent.Name,
		MDNS:   cfg.Agent.MDNS,
	})
	server.Attach(monitor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- monitor.Start(ctx) }()
	go func() { errCh <- server.Start(ctx) }()

	err = <-errCh
	stop()
	if second := <-errCh; err == nil || errors.Is(err, context.Canceled) {
		err = second
	}
	log.Printf("[agent] Shutting down")
	return err
}
