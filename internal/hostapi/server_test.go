package hostapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NeoFlock/neonucleus-sub000/internal/hostapi"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	h := nucleustest.New(t)
	c := h.NewComputer()

	scrTable := screen.NewMethodTable(h.Universe)
	dev := screen.New(screen.Options{MaxWidth: 4, MaxHeight: 2, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})

	if _, err := c.AddComponent(scrTable, "screen1", 0, dev); err != nil {
		t.Fatalf("AddComponent screen: %v", err)
	}

	registry := hostapi.NewRegistry()
	registry.Add(c.Address(), c)

	srv := hostapi.NewServer(registry, true)

	return httptest.NewServer(srv), c.Address()
}

func TestListComputers(t *testing.T) {
	ts, name := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/computers")
	if err != nil {
		t.Fatalf("GET /computers: %v", err)
	}
	defer resp.Body.Close()

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(names) != 1 || names[0] != name {
		t.Fatalf("want [%s], got %v", name, names)
	}
}

func TestGetComputerSnapshot(t *testing.T) {
	ts, name := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/computers/" + name)
	if err != nil {
		t.Fatalf("GET /computers/%s: %v", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: want 200, got %d", resp.StatusCode)
	}

	var snap struct {
		Address    string `json:"address"`
		Components []struct {
			Address string `json:"address"`
			Type    string `json:"type"`
		} `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if snap.Address != name {
		t.Fatalf("address: want %s, got %s", name, snap.Address)
	}
	if len(snap.Components) != 1 || snap.Components[0].Address != "screen1" {
		t.Fatalf("components: want [screen1], got %v", snap.Components)
	}
}

func TestGetComputerMissing(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/computers/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d", resp.StatusCode)
	}
}

func TestStreamScreenSendsFrames(t *testing.T) {
	ts, name := newTestServer(t)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/computers/" + name + "/screens/screen1/stream"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("message type: want binary, got %d", msgType)
	}
	if len(data) == 0 {
		t.Fatalf("want non-empty frame")
	}
}
