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

// Package agent serves card presence events from a polling monitor to
// websocket clients and advertises itself over mDNS.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	"github.com/ZaparooProject/go-mfrc522/polling"
	"github.com/ZaparooProject/go-mfrc522/tagops"
)

// mDNS advertisement
const (
	MDNSServiceType = "_mfrc522._tcp"
	MDNSDomain      = "local."
)

const shutdownTimeout = 5 * time.Second

// Config configures the agent server
type Config struct {
	Listen string
	Name   string
	MDNS   bool
}

// Server streams card events over /ws and answers /api/v1/health
type Server struct {
	httpServer *http.Server
	mdnsServer *zeroconf.Server
	hub        *hub
	upgrader   websocket.Upgrader
	started    time.Time
	config     Config
}

// New creates a new agent server
func New(config Config) *Server {
	if config.Name == "" {
		config.Name = "mfrc522"
	}
	return &Server{
		config:  config,
		hub:     newHub(),
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// Attach routes the monitor's card callbacks to the server
func (s *Server) Attach(m *polling.Monitor) {
	m.OnCardDetected = func(uid mfrc522.UID) error {
		s.CardDetected(uid, m.GetState().LastSAK)
		return nil
	}
	m.OnCardChanged = func(uid mfrc522.UID) error {
		s.CardChanged(uid, m.GetState().LastSAK)
		return nil
	}
	m.OnCardRemoved = s.CardRemoved
}

// CardDetected broadcasts a card_detected event
func (s *Server) CardDetected(uid mfrc522.UID, sak byte) {
	s.publishCard(EventCardDetected, uid, sak)
}

// CardChanged broadcasts a card_changed event
func (s *Server) CardChanged(uid mfrc522.UID, sak byte) {
	s.publishCard(EventCardChanged, uid, sak)
}

// CardRemoved broadcasts a card_removed event
func (s *Server) CardRemoved() {
	last := s.hub.currentCard()
	s.hub.setCard(nil)
	s.hub.broadcast(newEvent(EventCardRemoved, last))
}

func (s *Server) publishCard(eventType string, uid mfrc522.UID, sak byte) {
	card := &CardPayload{
		UID:    uid.String(),
		Type:   tagops.Identify(sak).String(),
		SAK:    sak,
		Reader: s.config.Name,
	}
	s.hub.setCard(card)
	s.hub.broadcast(newEvent(eventType, card))
}

// Handler returns the HTTP routes of the agent
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("MFRC522 Agent"))
	})
	return mux
}

// Start listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.config.MDNS {
		if err := s.startMDNS(ln.Addr()); err != nil {
			log.Printf("[agent] %v", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[agent] Listening on %s", ln.Addr())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// Stop shuts down mDNS, closes clients and stops the HTTP server
func (s *Server) Stop() {
	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		log.Printf("[agent] mDNS service stopped")
	}

	s.hub.closeAll()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[agent] Server shutdown error: %v", err)
		}
	}
}

// startMDNS registers the agent as an mDNS service for discovery
func (s *Server) startMDNS(addr net.Addr) error {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("mDNS needs a TCP listener, got %s", addr.Network())
	}

	txtRecords := []string{
		"version=1",
		"protocol=websocket",
		"path=/ws",
	}

	server, err := zeroconf.Register(s.config.Name, MDNSServiceType, MDNSDomain, tcpAddr.Port, txtRecords, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mdnsServer = server
	log.Printf("[agent] mDNS service registered: %s on port %d", s.config.Name, tcpAddr.Port)
	return nil
}

// handleWebSocket upgrades the connection, greets the client and reads
// until it goes away
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[agent] websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, id: uuid.New().String()}
	hello := newEvent(EventHello, HelloPayload{
		ClientID: c.id,
		Reader:   s.config.Name,
		Card:     s.hub.currentCard(),
	})
	if err := c.send(hello); err != nil {
		_ = conn.Close()
		return
	}
	s.hub.register(c)
	defer s.hub.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type healthResponse struct {
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
	Reader      string `json:"reader"`
	Uptime      string `json:"uptime"`
	Clients     int    `json:"clients"`
	CardPresent bool   `json:"card_present"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Reader:      s.config.Name,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(s.started).Truncate(time.Second).String(),
		Clients:     s.hub.count(),
		CardPresent: s.hub.currentCard() != nil,
	})
}
