package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/switchnode/internal/device"
	"github.com/nerrad567/switchnode/internal/event"
	"github.com/nerrad567/switchnode/internal/infrastructure/config"
	"github.com/nerrad567/switchnode/internal/infrastructure/logging"
)

// Frame types exchanged on the push socket.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FramePush        = "push"
	FrameAck         = "ack"
	FrameError       = "error"
)

// ChannelParamReported carries every reported parameter value. Lifecycle
// events are pushed on "event.<category>" channels.
const ChannelParamReported = "param.reported"

// sessionQueueLen bounds the frames waiting for a slow client.
const sessionQueueLen = 256

// EventChannel returns the channel lifecycle events of cat are pushed on.
func EventChannel(cat event.Category) string {
	return "event." + string(cat)
}

// Frame is one JSON message on the push socket, in either direction.
type Frame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Channel string `json:"channel,omitempty"`
	Time    string `json:"time,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// ChannelList is the payload of subscribe and unsubscribe frames and of
// their acknowledgements.
type ChannelList struct {
	Channels []string `json:"channels"`
}

// inbound is a client frame whose payload is decoded lazily.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans parameter reports and lifecycle events out to push sessions.
// It is a device.Reporter and HandleEvent is an event.Handler.
type Hub struct {
	timing   wsTiming
	logger   *logging.Logger
	mu       sync.RWMutex
	sessions map[*wsSession]struct{}
}

// wsTiming holds the keepalive settings in their runtime form.
type wsTiming struct {
	readLimit int64
	pingEvery time.Duration
	writeWait time.Duration
}

// idle is how long a session may stay silent before it is dropped.
func (t wsTiming) idle() time.Duration {
	return t.pingEvery + t.writeWait
}

func newWSTiming(cfg config.WebSocketConfig) wsTiming {
	return wsTiming{
		readLimit: int64(cfg.MaxMessageSize),
		pingEvery: time.Duration(cfg.PingInterval) * time.Second,
		writeWait: time.Duration(cfg.PongTimeout) * time.Second,
	}
}

// NewHub creates a hub with no sessions.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		timing:   newWSTiming(cfg),
		logger:   logger,
		sessions: make(map[*wsSession]struct{}),
	}
}

// Run blocks until ctx is cancelled, then drops every session.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[*wsSession]struct{})
	h.mu.Unlock()

	for s := range sessions {
		s.shut()
		if s.conn != nil {
			s.conn.Close()
		}
	}
}

// Report implements device.Reporter. Pushing never fails the write.
func (h *Hub) Report(_ context.Context, r device.Report) error {
	h.publish(ChannelParamReported, r)
	return nil
}

// HandleEvent pushes a lifecycle event on its category channel.
func (h *Hub) HandleEvent(e event.Event) {
	h.publish(EventChannel(e.Category), e)
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) attach(s *wsSession) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// detach is idempotent: the session queue is closed at most once.
func (h *Hub) detach(s *wsSession) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	n := len(h.sessions)
	h.mu.Unlock()

	if ok {
		s.shut()
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// publish encodes payload once and queues it on every session that
// listens on channel.
func (h *Hub) publish(channel string, payload any) {
	data, err := json.Marshal(Frame{
		Type:    FramePush,
		Channel: channel,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Payload: payload,
	})
	if err != nil {
		h.logger.Error("encoding push frame failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsSession, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.listens(channel) && s.enqueue(data) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("pushed", "channel", channel, "clients", delivered)
	}
}

// wsSession is one connected push client.
type wsSession struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	mu       sync.Mutex
	channels map[string]struct{}
	closed   bool
}

func newSession(hub *Hub, conn *websocket.Conn) *wsSession {
	return &wsSession{
		hub:      hub,
		conn:     conn,
		out:      make(chan []byte, sessionQueueLen),
		channels: make(map[string]struct{}),
	}
}

// Origins are enforced by the CORS middleware in front of the route.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s.hub, conn)
	s.hub.attach(sess)
	go sess.transmit()
	go sess.receive()
}

// enqueue reports whether data was queued. A full queue drops the frame
// rather than stall the publisher.
func (s *wsSession) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}

// shut closes the queue so transmit sends a close frame and exits.
func (s *wsSession) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

func (s *wsSession) listens(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[channel]
	return ok
}

func (s *wsSession) setChannels(channels []string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		if on {
			s.channels[ch] = struct{}{}
		} else {
			delete(s.channels, ch)
		}
	}
}

// receive reads client frames until the connection fails or goes quiet
// for longer than one ping interval plus the pong timeout.
func (s *wsSession) receive() {
	defer func() {
		s.hub.detach(s)
		s.conn.Close()
	}()

	t := s.hub.timing
	s.conn.SetReadLimit(t.readLimit)
	extend := func() error { return s.conn.SetReadDeadline(time.Now().Add(t.idle())) }
	extend() //nolint:errcheck // A failed deadline surfaces on the next read
	s.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // A failed deadline surfaces on the next read
		s.dispatch(data)
	}
}

// transmit drains the queue and pings the client every ping interval.
func (s *wsSession) transmit() {
	t := s.hub.timing
	ticker := time.NewTicker(t.pingEvery)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		s.conn.SetWriteDeadline(time.Now().Add(t.writeWait)) //nolint:errcheck // Write reports the failure
		return s.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-s.out:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Closing anyway
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

// dispatch answers one client frame.
func (s *wsSession) dispatch(data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.reply(Frame{Type: FrameError, Payload: errorBody("invalid JSON message")})
		return
	}

	switch in.Type {
	case FramePing:
		s.reply(Frame{Type: FramePong, ID: in.ID})
	case FrameSubscribe, FrameUnsubscribe:
		var list ChannelList
		if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &list) != nil {
			s.reply(Frame{Type: FrameError, ID: in.ID, Payload: errorBody("invalid subscription payload")})
			return
		}
		s.setChannels(list.Channels, in.Type == FrameSubscribe)
		s.hub.logger.Debug("websocket channels changed", "op", in.Type, "channels", list.Channels)
		s.reply(Frame{Type: FrameAck, ID: in.ID, Payload: list})
	default:
		s.reply(Frame{Type: FrameError, ID: in.ID, Payload: errorBody("unknown message type: " + in.Type)})
	}
}

func (s *wsSession) reply(f Frame) {
	f.Time = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.enqueue(data)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"message": msg}
}
