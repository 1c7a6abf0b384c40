package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tokenomics-api/internal/observability"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongWait     = 60 * time.Second
	streamPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Any origin may read the public snapshot, same as the REST endpoint.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream pushes the cached snapshot on connect and then every push interval.
// Reads go through the same cache as GET /api/tokenomics.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	if !s.trackStream() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	defer s.streams.Done()
	observability.StreamClientConnected(1)
	defer observability.StreamClientConnected(-1)
	defer conn.Close()

	log.Debug().Msg("stream client connected")

	// The read loop only handles control frames and notices disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func() bool {
		snap := s.cfg.Snapshots.GetTokenomicsSnapshot(r.Context())
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(snap); err != nil {
			log.Debug().Err(err).Msg("stream write")
			return false
		}
		return true
	}

	if !push() {
		return
	}

	pushTicker := time.NewTicker(s.cfg.PushInterval)
	defer pushTicker.Stop()
	pingTicker := time.NewTicker(streamPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-closed:
			log.Debug().Msg("stream client disconnected")
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case <-pushTicker.C:
			if !push() {
				return
			}
		}
	}
}
