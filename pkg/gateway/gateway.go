// Package gateway implements the SessionGateway: it accepts inbound
// WebSocket connections, authenticates them, hands them to the
// RoomRegistry, and ferries INPUT messages and outbound patches between
// the wire and a room.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"tilekeep/pkg/authn"
	"tilekeep/pkg/config"
	"tilekeep/pkg/room"
	"tilekeep/pkg/validation"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MessageChanBufferSize bounds how many outbound messages can queue for a
// slow client before the gateway starts dropping them.
const MessageChanBufferSize = 64

// MessageSendTimeout is how long the gateway waits for room to drain
// before dropping an outbound message to a stalled connection.
const MessageSendTimeout = 2 * time.Second

// joinEnvelope is the first message a session must send after the
// WebSocket upgrade completes.
type joinEnvelope struct {
	Token         string `json:"token"`
	WorldSaveID   string `json:"worldSaveId"`
	CharacterName string `json:"characterName"`
}

// inputEnvelope is a tick-time INPUT message.
type inputEnvelope struct {
	Type           string `json:"type"`
	SequenceNumber int    `json:"sequenceNumber"`
	Direction      string `json:"direction"`
}

// outboundItem is one entry on a session's outCh. A normal item carries a
// wire payload; a close item tells writePump to send the close frame and
// tear the connection down. Routing the close through the same channel as
// regular sends preserves the per-session ordering Outbox promises: a
// queued message is always written before a close that was requested
// after it.
type outboundItem struct {
	payload     []byte
	isClose     bool
	closeCode   int
	closeReason string
}

// session tracks one live WebSocket connection bound to a room.
type session struct {
	id      string
	worldID string
	conn    *websocket.Conn
	outCh   chan outboundItem
	limiter *rate.Limiter

	closeMu   sync.Mutex
	closeCode int
	closed    bool
}

// recordCloseCode latches the close code the peer sent, if any. Gorilla
// only exposes this via the CloseHandler callback, which fires during
// ReadMessage's teardown, so the handler must be installed before the
// read pump starts.
func (s *session) recordCloseCode(code int) {
	s.closeMu.Lock()
	s.closeCode = code
	s.closeMu.Unlock()
}

func (s *session) observedCloseCode() (int, bool) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closeCode, s.closeCode != 0
}

// enqueue appends item to outCh, returning false if the session has
// already been shut down or the send timed out against a stalled writer.
// The whole attempt runs under closeMu so it can never race shutdown's
// close(outCh): either this observes closed and skips the send, or
// shutdown blocks until this send has already landed on the channel.
func (s *session) enqueue(item outboundItem) bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.outCh <- item:
		return true
	case <-time.After(MessageSendTimeout):
		return false
	}
}

// shutdown closes outCh exactly once, causing writePump's range loop to
// end. Idempotent so both readPump's teardown and a server-initiated close
// can call it safely.
func (s *session) shutdown() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.outCh)
}

// Gateway is the SessionGateway implementation. It satisfies room.Outbox
// so rooms can deliver patches and idle notices without knowing anything
// about WebSockets.
type Gateway struct {
	cfg       *config.Config
	registry  *room.Registry
	auth      authn.Service
	validator *validation.InputValidator
	metrics   *Metrics
	upgrader  websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session

	logger *logrus.Entry
}

// New constructs a Gateway. cfg drives origin checking and rate limiting;
// registry locates or creates rooms; auth decodes bearer tokens.
func New(cfg *config.Config, registry *room.Registry, auth authn.Service, metrics *Metrics) *Gateway {
	g := &Gateway{
		cfg:       cfg,
		registry:  registry,
		auth:      auth,
		validator: validation.NewInputValidator(cfg.MaxRequestSize),
		metrics:   metrics,
		sessions:  make(map[string]*session),
		logger:    logrus.WithField("component", "Gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			allowed := cfg.OriginAllowed(origin)
			if !allowed {
				g.logger.WithField("origin", origin).Warn("websocket connection rejected: origin not allowed")
			}
			return allowed
		},
	}
	return g
}

// ServeHTTP upgrades the request to a WebSocket, performs the join
// handshake, and if it succeeds, runs the connection's read/write pumps
// until disconnect.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	if g.metrics != nil {
		g.metrics.ConnectionOpened()
	}

	sess, worldRoom, err := g.handshake(conn)
	if err != nil {
		conn.Close()
		if g.metrics != nil {
			g.metrics.ConnectionFailed()
		}
		return
	}

	g.mu.Lock()
	g.sessions[sess.id] = sess
	g.mu.Unlock()
	if g.metrics != nil {
		g.metrics.SessionJoined()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.writePump(sess)
	}()
	go func() {
		defer wg.Done()
		g.readPump(sess, worldRoom)
	}()
	wg.Wait()

	g.mu.Lock()
	delete(g.sessions, sess.id)
	g.mu.Unlock()
	if g.metrics != nil {
		g.metrics.ConnectionClosed()
	}
}

// handshake reads the join envelope, authenticates, and joins the room.
// On any failure it closes the connection with the appropriate code and
// returns an error; the caller must not proceed to the read/write pumps.
func (g *Gateway) handshake(conn *websocket.Conn) (*session, *room.WorldRoom, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, nil, err
	}

	var env joinEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.closeConn(conn, room.CloseAuthFailed, "malformed join envelope")
		return nil, nil, err
	}

	params := map[string]interface{}{
		"token":         env.Token,
		"worldSaveId":   env.WorldSaveID,
		"characterName": env.CharacterName,
	}
	if err := g.validator.Validate("join", params, int64(len(raw))); err != nil {
		g.closeConn(conn, room.CloseAuthFailed, "invalid join envelope")
		return nil, nil, err
	}

	claims, err := g.auth.DecodeToken(env.Token)
	if err != nil {
		g.closeConn(conn, room.CloseAuthFailed, "authentication failed")
		return nil, nil, err
	}

	sessionID := uuid.New().String()
	req := room.JoinRequest{
		SessionID:     sessionID,
		AccountID:     claims.AccountID,
		Email:         claims.Email,
		CharacterName: strings.TrimSpace(env.CharacterName),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	worldRoom, err := g.registry.JoinOrCreate(ctx, env.WorldSaveID, req)
	if err != nil {
		g.closeConn(conn, closeCodeForJoinError(err), "join rejected")
		return nil, nil, err
	}

	sess := &session{
		id:      sessionID,
		worldID: env.WorldSaveID,
		conn:    conn,
		outCh:   make(chan outboundItem, MessageChanBufferSize),
		limiter: rate.NewLimiter(rate.Limit(g.cfg.RateLimitRequestsPerSecond), g.cfg.RateLimitBurst),
	}
	conn.SetCloseHandler(func(code int, text string) error {
		sess.recordCloseCode(code)
		return nil
	})

	confirmation, _ := json.Marshal(map[string]interface{}{
		"type":      "joined",
		"sessionId": sessionID,
	})
	sess.enqueue(outboundItem{payload: confirmation})

	return sess, worldRoom, nil
}

func closeCodeForJoinError(err error) int {
	switch {
	case err == room.ErrNotOwner:
		return room.CloseNotOwner
	case err == room.ErrRoomFull:
		return room.CloseRoomFull
	case err == room.ErrWorldNotFound:
		return room.CloseWorldNotFound
	case errors.Is(err, room.ErrJoinFailed):
		return room.CloseJoinFailed
	default:
		return room.CloseJoinFailed
	}
}

func (g *Gateway) closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
}

// readPump consumes INPUT messages from the connection until it closes,
// forwarding each validated one to worldRoom. The disconnect is always
// reported to the room exactly once, whether it was a client close or a
// read error.
func (g *Gateway) readPump(sess *session, worldRoom *room.WorldRoom) {
	defer func() {
		consented := true
		if code, ok := sess.observedCloseCode(); ok {
			consented = code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway
		}
		worldRoom.OnLeave(sess.id, consented)
		sess.shutdown()
	}()

	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		if !sess.limiter.Allow() {
			g.logger.WithField("sessionId", sess.id).Debug("input rate limit exceeded, dropping message")
			continue
		}

		var env inputEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			g.logger.WithField("sessionId", sess.id).Warn("malformed input envelope")
			continue
		}

		params := map[string]interface{}{
			"sequenceNumber": float64(env.SequenceNumber),
			"direction":      env.Direction,
		}
		if err := g.validator.Validate("input", params, int64(len(raw))); err != nil {
			g.logger.WithField("sessionId", sess.id).Warn("rejected malformed input")
			continue
		}

		worldRoom.HandleInput(sess.id, room.RawInput{SequenceNumber: env.SequenceNumber, Direction: env.Direction})
	}
}

// writePump drains outCh to the socket in order. A close item ends the
// pump after the close frame is written: since it travels through the
// same channel as regular payloads, anything queued ahead of it (such as
// an idle-kick notice) is always flushed first. A write failure ends the
// pump early; the subsequent read error in readPump drives the shared
// disconnect path.
func (g *Gateway) writePump(sess *session) {
	for item := range sess.outCh {
		if item.isClose {
			msg := websocket.FormatCloseMessage(item.closeCode, item.closeReason)
			sess.conn.SetWriteDeadline(time.Now().Add(time.Second))
			sess.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			sess.conn.Close()
			return
		}
		sess.conn.SetWriteDeadline(time.Now().Add(MessageSendTimeout))
		if err := sess.conn.WriteMessage(websocket.TextMessage, item.payload); err != nil {
			return
		}
	}
}

// Send implements room.Outbox. It never blocks the caller beyond
// MessageSendTimeout: a full outCh means a stalled client, and the
// message is dropped rather than backing up the room's tick.
func (g *Gateway) Send(sessionID string, msg room.OutboundMessage) {
	g.mu.RLock()
	sess, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if !ok {
		return
	}

	encoded, err := json.Marshal(toWire(msg))
	if err != nil {
		g.logger.WithError(err).Error("failed to encode outbound message")
		return
	}

	if !sess.enqueue(outboundItem{payload: encoded}) {
		g.logger.WithField("sessionId", sessionID).Warn("outbound message dropped: channel full, timeout reached, or session already closing")
	}
}

// Close implements room.Outbox. It queues a close item on the session's
// outCh rather than writing the close frame directly, so a message
// enqueued by an earlier Send call (an idle-kick notice, for instance) is
// always delivered before the close frame that follows it.
func (g *Gateway) Close(sessionID string, code int, reason string) {
	g.mu.RLock()
	sess, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	sess.enqueue(outboundItem{isClose: true, closeCode: code, closeReason: reason})
}

// LiveRooms reports how many rooms are currently active, for health and
// metrics reporting.
func (g *Gateway) LiveRooms() int {
	return g.registry.Len()
}

// SetRegistry wires the room registry after construction. Gateway and
// Registry are mutually referential (the registry's Outbox is the
// gateway; the gateway's join handler needs the registry), so one side
// must be patched in once both exist.
func (g *Gateway) SetRegistry(registry *room.Registry) {
	g.registry = registry
}

// SetMetrics wires the Prometheus metrics collector after construction,
// for the same reason SetRegistry exists: NewMetrics needs registry.Len
// as its live-rooms source, which in turn needs the registry to exist
// first.
func (g *Gateway) SetMetrics(metrics *Metrics) {
	g.metrics = metrics
}
