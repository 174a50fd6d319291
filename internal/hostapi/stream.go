package hostapi

import (
	"bytes"
	"image"
	"image/color"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	pnm "github.com/jbuchbinder/gopnm"

	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
)

// writeWait and pongWait mirror phenix/web/broker's WebSocket keepalive
// budget: a client that doesn't ack a ping within pongWait is dropped.
const (
	writeWait = 10 * time.Second
	pongWait  = 5 * time.Second
	pingWait  = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamScreen upgrades the request to a WebSocket and pushes a PPM-encoded
// snapshot of the named screen's buffer every pollInterval, until the
// client disconnects.
func (s *Server) streamScreen(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c, ok := s.registry.Get(vars["addr"])
	if !ok {
		http.Error(w, "no such computer", http.StatusNotFound)
		return
	}

	comp, ok := c.GetComponent(vars["screen"])
	if !ok {
		http.Error(w, "no such screen", http.StatusNotFound)
		return
	}

	dev, ok := comp.State.(*screen.Device)
	if !ok {
		http.Error(w, "component is not a screen", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go drainReads(conn, done)

	ticker := time.NewTicker(pollInterval)
	pinger := time.NewTicker(pingWait)
	defer ticker.Stop()
	defer pinger.Stop()

	for {
		select {
		case <-done:
			return
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			frame, err := encodeFrame(dev)
			if err != nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}
}

// drainReads discards whatever a streaming client sends (this is a
// push-only feed) and closes done once the connection breaks, the same
// read-loop-as-liveness-check shape phenix/web/broker.Client.read uses.
func drainReads(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func encodeFrame(dev *screen.Device) ([]byte, error) {
	w, h := dev.Resolution()
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cell := dev.GetPixel(x, y)

			bg := cell.Background
			if cell.IsBgPalette {
				bg = dev.PaletteColor(bg)
			}

			img.Set(x, y, color.RGBA{
				R: uint8(bg >> 16), G: uint8(bg >> 8), B: uint8(bg), A: 0xFF,
			})
		}
	}

	var buf bytes.Buffer
	if err := pnm.Encode(&buf, img, pnm.PPM); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
