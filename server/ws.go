package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/runtime"
	"chat-relay/sink"
)

const (
	writeWait       = 10 * time.Second
	maxFrameSize    = 64 * 1024
	shutdownTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checking
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "err", err)
		return
	}

	connSink := sink.NewConnSink(s.log, s.cfg.ConnectionBufferSize, s.cfg.SinkTimeout)
	// Transport teardown is owned by the write pump: it flushes queued
	// effects first, so a kick reason still reaches the client.
	conn := runtime.NewConn(uuid.New().String(), c.ClientIP(), connSink, func() {})

	go s.writePump(conn, ws)

	ctx := c.Request.Context()
	if !s.dispatcher.HandleConnect(ctx, conn) {
		// Rejection effect is queued; the pump delivers it and closes.
		return
	}

	s.readLoop(c, conn, ws)
}

// readLoop feeds inbound frames to the dispatcher in arrival order.
// One goroutine per connection, so per-connection ordering is free.
func (s *Server) readLoop(c *gin.Context, conn *runtime.Conn, ws *websocket.Conn) {
	defer func() {
		s.dispatcher.HandleDisconnect(c.Request.Context(), conn)
		conn.Terminate()
	}()

	ws.SetReadLimit(maxFrameSize)
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Websocket read ended", "conn", conn.ID, "err", err)
			}
			return
		}
		s.dispatcher.Dispatch(c.Request.Context(), conn, payload)
	}
}

// writePump drains the connection's sink onto the wire. On shutdown it
// flushes whatever is already queued before closing the socket.
func (s *Server) writePump(conn *runtime.Conn, ws *websocket.Conn) {
	defer func() {
		_ = ws.Close()
	}()

	connSink := conn.Sink()
	for {
		select {
		case payload := <-connSink.Outbound():
			if !s.write(ws, payload) {
				return
			}
		case <-connSink.Done():
			for {
				select {
				case payload := <-connSink.Outbound():
					if !s.write(ws, payload) {
						return
					}
				default:
					deadline := time.Now().Add(writeWait)
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
					return
				}
			}
		}
	}
}

func (s *Server) write(ws *websocket.Conn, payload []byte) bool {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Debug("Websocket write failed", "err", err)
		return false
	}
	return true
}
