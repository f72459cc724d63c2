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

package agent

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mfrc522 "github.com/ZaparooProject/go-mfrc522"
	testutil "github.com/ZaparooProject/go-mfrc522/internal/testing"
	"github.com/ZaparooProject/go-mfrc522/polling"
)

var testUID = mfrc522.NewUID([4]byte{0x12, 0x34, 0x56, 0x78})

type wireEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err, "event id must be a uuid")
	return ev
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(Config{Name: "test-reader"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// connect dials the server and waits until the client is registered
func connect(t *testing.T, srv *Server, ts *httptest.Server) (*websocket.Conn, HelloPayload) {
	t.Helper()
	before := srv.hub.count()
	conn := dial(t, ts)

	ev := readEvent(t, conn)
	require.Equal(t, EventHello, ev.Type)
	var hello HelloPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &hello))

	require.Eventually(t, func() bool { return srv.hub.count() > before }, 2*time.Second, time.Millisecond)
	return conn, hello
}

func TestNew_DefaultName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "mfrc522", New(Config{}).config.Name)
}

func TestServer_HelloCarriesClientID(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)

	_, hello := connect(t, srv, ts)
	_, err := uuid.Parse(hello.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "test-reader", hello.Reader)
	assert.Nil(t, hello.Card)
}

func TestServer_StreamsCardEvents(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	conn, _ := connect(t, srv, ts)

	srv.CardDetected(testUID, 0x08)
	ev := readEvent(t, conn)
	assert.Equal(t, EventCardDetected, ev.Type)
	var card CardPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &card))
	assert.Equal(t, "12345678", card.UID)
	assert.Equal(t, "test-reader", card.Reader)
	assert.Equal(t, "MIFARE Classic 1K", card.Type)

	srv.CardRemoved()
	ev = readEvent(t, conn)
	assert.Equal(t, EventCardRemoved, ev.Type)
	require.NoError(t, json.Unmarshal(ev.Payload, &card))
	assert.Equal(t, "12345678", card.UID)
}

func TestServer_LateJoinerSeesCurrentCard(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)

	srv.CardDetected(testUID, 0x08)
	_, hello := connect(t, srv, ts)
	require.NotNil(t, hello.Card)
	assert.Equal(t, "12345678", hello.Card.UID)
}

func TestServer_BroadcastReachesEveryClient(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	first, _ := connect(t, srv, ts)
	second, _ := connect(t, srv, ts)

	srv.CardChanged(testUID, 0x08)
	assert.Equal(t, EventCardChanged, readEvent(t, first).Type)
	assert.Equal(t, EventCardChanged, readEvent(t, second).Type)
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	conn, _ := connect(t, srv, ts)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.hub.count() == 0 }, 2*time.Second, time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	srv.CardDetected(testUID, 0x08)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test-reader", health.Reader)
	assert.True(t, health.CardPresent)
	assert.Equal(t, 0, health.Clients)
}

func TestServer_HealthRejectsPost(t *testing.T) {
	t.Parallel()
	srv := New(Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_UnknownPath(t *testing.T) {
	t.Parallel()
	srv := New(Config{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ServeStopsWithContext(t *testing.T) {
	t.Parallel()
	srv := New(Config{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServer_AttachStreamsMonitorEvents(t *testing.T) {
	t.Parallel()
	card := testutil.NewVirtualMIFARE1K(nil)
	chip := testutil.NewVirtualChip(card)
	device, err := mfrc522.New(mfrc522.NewSimulatedBus(chip))
	require.NoError(t, err)
	require.NoError(t, device.Init())

	srv, ts := newTestServer(t)
	conn, _ := connect(t, srv, ts)

	monitor := polling.NewMonitor(device, &polling.Config{
		PollInterval:       2 * time.Millisecond,
		CardRemovalTimeout: 60 * time.Millisecond,
	})
	srv.Attach(monitor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = monitor.Start(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	ev := readEvent(t, conn)
	assert.Equal(t, EventCardDetected, ev.Type)
	var payload CardPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, byte(0x08), payload.SAK)
	assert.Equal(t, "MIFARE Classic 1K", payload.Type)

	card.Remove()
	assert.Equal(t, EventCardRemoved, readEvent(t, conn).Type)
}
