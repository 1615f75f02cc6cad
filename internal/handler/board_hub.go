package handler

import (
	"context"
	"encoding/json"
	"log"
	gosync "sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"liveboard/internal/board"
	"liveboard/internal/cache"
	"liveboard/internal/config"
	"liveboard/internal/model"
	boardsync "liveboard/internal/sync"
	"liveboard/internal/transport"
)

// =============================================================================
// Board Hub - per-session websocket fan-out and authoritative board state
// =============================================================================

// BoardHub manages all live board sessions on this instance
type BoardHub struct {
	sessions map[string]*LiveSession
	mu       gosync.RWMutex
	tr       transport.Transport
	redis    *cache.RedisClient // nil when Redis is not configured
	cfg      *config.Config
	db       *gorm.DB
	// originID tags events this instance publishes so its own transport
	// loopback is skipped instead of double-applied
	originID string
}

// LiveSession is one session: its authoritative board plus every websocket
// participant attached to this instance
type LiveSession struct {
	ID      string
	Store   *board.Store
	setID   string
	setName string

	clients map[*websocket.Conn]*BoardClient
	host    *websocket.Conn // at most one authoritative producer
	record  *model.BoardSession

	broadcast chan outboundFrame
	sub       transport.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	mu        gosync.RWMutex
	hub       *BoardHub
}

// BoardClient is one attached websocket participant
type BoardClient struct {
	UserID   int64
	Nickname string
	Role     model.SessionRole
	Conn     *websocket.Conn
	writeMu  gosync.Mutex
	// key identifies this connection in the session participant set
	key string
}

// outboundFrame pairs an event with the connection to skip (its originator)
type outboundFrame struct {
	ev     transport.Event
	sender *websocket.Conn
}

// NewBoardHub creates a BoardHub instance
func NewBoardHub(tr transport.Transport, redis *cache.RedisClient, cfg *config.Config, db *gorm.DB) *BoardHub {
	return &BoardHub{
		sessions: make(map[string]*LiveSession),
		tr:       tr,
		redis:    redis,
		cfg:      cfg,
		db:       db,
		originID: uuid.New().String(),
	}
}

// GetOrCreateSession returns the session, creating and wiring it on first use
func (h *BoardHub) GetOrCreateSession(sessionID string) (*LiveSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, exists := h.sessions[sessionID]; exists {
		return s, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LiveSession{
		ID:        sessionID,
		Store:     board.NewStore(),
		clients:   make(map[*websocket.Conn]*BoardClient),
		broadcast: make(chan outboundFrame, h.cfg.Board.BroadcastBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		hub:       h,
	}

	// remote hubs hosting the same session publish through the transport;
	// their events flow into our store and local viewers
	sub, err := h.tr.Subscribe(ctx, sessionID, s.handleTransportEvent)
	if err != nil {
		cancel()
		return nil, err
	}
	s.sub = sub

	// a session created for a viewer whose host lives on another instance
	// starts from the cached snapshot instead of an empty board
	s.restoreFromCache()

	h.sessions[sessionID] = s
	go s.runBroadcaster()
	log.Printf("[BoardHub] Created session: %s", sessionID)

	return s, nil
}

// RemoveSession tears an empty session down
func (h *BoardHub) RemoveSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, exists := h.sessions[sessionID]; exists {
		s.shutdown()
		delete(h.sessions, sessionID)
		log.Printf("[BoardHub] Removed session: %s", sessionID)
	}
}

// CleanupInactiveSessions removes sessions with no participants
func (h *BoardHub) CleanupInactiveSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.sessions {
		s.mu.RLock()
		isEmpty := len(s.clients) == 0
		s.mu.RUnlock()

		if isEmpty {
			s.shutdown()
			delete(h.sessions, id)
			log.Printf("[BoardHub] Cleaned up inactive session: %s", id)
		}
	}
}

// =============================================================================
// LiveSession methods
// =============================================================================

// AddClient attaches a participant. Only one host may be attached at a
// time: locally via s.host, and across instances via the shared participant
// set, so a second host landing on another node is rejected too.
func (s *LiveSession) AddClient(client *BoardClient) bool {
	if client.Role == model.RoleHost && s.hub.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		taken, err := s.hub.redis.HostPresent(ctx, s.ID)
		cancel()
		if err != nil {
			log.Printf("[Session %s] Host presence check failed: %v", s.ID, err)
		} else if taken {
			log.Printf("[Session %s] Rejected host (user %d): session already hosted elsewhere", s.ID, client.UserID)
			return false
		}
	}

	s.mu.Lock()
	if client.Role == model.RoleHost {
		if s.host != nil {
			s.mu.Unlock()
			log.Printf("[Session %s] Rejected second host (user %d)", s.ID, client.UserID)
			return false
		}
		s.host = client.Conn
	}
	s.clients[client.Conn] = client
	local := len(s.clients)
	s.mu.Unlock()

	if s.hub.redis != nil {
		client.key = string(client.Role) + ":" + uuid.NewString()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.hub.redis.AddParticipant(ctx, s.ID, client.key); err != nil {
			log.Printf("[Session %s] Failed to register participant: %v", s.ID, err)
		}
		if total, err := s.hub.redis.ParticipantCount(ctx, s.ID); err == nil {
			log.Printf("[Session %s] Added %s: user %d, local: %d, total: %d", s.ID, client.Role, client.UserID, local, total)
		} else {
			log.Printf("[Session %s] Added %s: user %d, local: %d", s.ID, client.Role, client.UserID, local)
		}
		cancel()
	} else {
		log.Printf("[Session %s] Added %s: user %d, total: %d", s.ID, client.Role, client.UserID, local)
	}

	if client.Role == model.RoleHost {
		s.recordSessionStart(client.UserID)
	} else {
		// late joiner catch-up: snapshot straight from the authoritative copy
		s.sendSnapshotTo(client)
	}
	return true
}

// RemoveClient detaches a participant and removes the session when empty
func (s *LiveSession) RemoveClient(conn *websocket.Conn) {
	s.mu.Lock()
	client, exists := s.clients[conn]
	if exists {
		delete(s.clients, conn)
	}
	wasHost := s.host == conn
	if wasHost {
		s.host = nil
	}
	remaining := len(s.clients)
	s.mu.Unlock()

	if !exists {
		return
	}

	log.Printf("[Session %s] Removed %s: user %d, remaining: %d", s.ID, client.Role, client.UserID, remaining)

	if s.hub.redis != nil && client.key != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.hub.redis.RemoveParticipant(ctx, s.ID, client.key)
	}

	if wasHost {
		s.recordSessionEnd()
	}

	if remaining == 0 {
		go s.hub.RemoveSession(s.ID)
	}
}

// HandleHostEvent applies one event from the attached host to the
// authoritative store, fans it out locally and publishes it for remote hubs.
// Malformed events are dropped here and never reach viewers.
func (s *LiveSession) HandleHostEvent(sender *websocket.Conn, ev transport.Event) {
	switch {
	case boardsync.IsDrawingEvent(ev.Name):
		if !boardsync.ApplyDrawing(s.Store, s.ID, ev) {
			// rejected frames never reach the wire
			return
		}

	case ev.Name == boardsync.EventSessionConfig:
		var p boardsync.SessionConfigPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			log.Printf("[Session %s] Dropping malformed %s", s.ID, ev.Name)
			return
		}
		s.mu.Lock()
		s.setID = p.SetID
		s.setName = p.SetName
		s.mu.Unlock()

	default:
		log.Printf("[Session %s] Ignoring host event %q", s.ID, ev.Name)
		return
	}

	s.enqueue(outboundFrame{ev: ev, sender: sender})

	ev.Origin = s.hub.originID
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.hub.tr.Publish(ctx, s.ID, ev)

	s.cacheSnapshot(ev.Name)
}

// HandleViewerEvent processes the only frame a viewer may send: a sync
// request. Anything else from a viewer is dropped; viewers never write.
func (s *LiveSession) HandleViewerEvent(sender *websocket.Conn, ev transport.Event) {
	if ev.Name != boardsync.EventSyncRequest {
		log.Printf("[Session %s] Dropping viewer event %q", s.ID, ev.Name)
		return
	}

	s.mu.RLock()
	client := s.clients[sender]
	s.mu.RUnlock()
	if client != nil {
		s.sendSnapshotTo(client)
	}
}

// handleTransportEvent applies events published by a hub on another instance
func (s *LiveSession) handleTransportEvent(ev transport.Event) {
	if ev.Origin == s.hub.originID {
		// our own publish looped back
		return
	}

	if boardsync.IsDrawingEvent(ev.Name) {
		if !boardsync.ApplyDrawing(s.Store, s.ID, ev) {
			return
		}
	} else if ev.Name == boardsync.EventSessionConfig {
		var p boardsync.SessionConfigPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.setID = p.SetID
		s.setName = p.SetName
		s.mu.Unlock()
	} else {
		return
	}

	s.enqueue(outboundFrame{ev: ev, sender: nil})
}

// enqueue hands a frame to the broadcaster without blocking the caller
func (s *LiveSession) enqueue(frame outboundFrame) {
	select {
	case s.broadcast <- frame:
	default:
		log.Printf("[Session %s] Broadcast buffer full, dropping %s", s.ID, frame.ev.Name)
	}
}

// runBroadcaster fans queued frames out to local participants
func (s *LiveSession) runBroadcaster() {
	log.Printf("[Session %s] Broadcaster started", s.ID)
	defer log.Printf("[Session %s] Broadcaster stopped", s.ID)

	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-s.broadcast:
			if !ok {
				return
			}
			s.fanOut(frame)
		}
	}
}

func (s *LiveSession) fanOut(frame outboundFrame) {
	s.mu.RLock()
	clients := make([]*BoardClient, 0, len(s.clients))
	for conn, c := range s.clients {
		if conn != frame.sender {
			clients = append(clients, c)
		}
	}
	s.mu.RUnlock()

	// origin is a hub-to-hub concern, not part of the client protocol
	frame.ev.Origin = ""
	data, err := json.Marshal(frame.ev)
	if err != nil {
		log.Printf("[Session %s] Failed to marshal %s: %v", s.ID, frame.ev.Name, err)
		return
	}

	for _, client := range clients {
		s.sendRaw(client, data)
	}
}

// sendSnapshotTo writes the full current board state to a single client
func (s *LiveSession) sendSnapshotTo(client *BoardClient) {
	s.mu.RLock()
	setID := s.setID
	s.mu.RUnlock()

	ev := boardsync.NewSnapshotEvent(s.Store, setID)
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.sendRaw(client, data)
	log.Printf("[Session %s] Snapshot sent to user %d (%d strokes, slide %d)",
		s.ID, client.UserID, s.Store.Len(), s.Store.CurrentSlide())
}

func (s *LiveSession) sendRaw(client *BoardClient, data []byte) {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	// a stalled peer must not wedge the broadcaster behind its write mutex
	if d := s.hub.cfg.WebSocket.WriteTimeout; d > 0 {
		client.Conn.SetWriteDeadline(time.Now().Add(d))
	}
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[Session %s] Failed to send to user %d: %v", s.ID, client.UserID, err)
	}
}

// cacheSnapshot refreshes the cross-instance snapshot copy. Done on the
// events that settle state rather than per pointer-move delta.
func (s *LiveSession) cacheSnapshot(eventName string) {
	if s.hub.redis == nil {
		return
	}
	switch eventName {
	case boardsync.EventStrokeUpdate, boardsync.EventClear,
		boardsync.EventSlideChange, boardsync.EventSessionConfig:
	default:
		return
	}

	strokes, err := json.Marshal(s.Store.Strokes())
	if err != nil {
		return
	}
	s.mu.RLock()
	setID := s.setID
	s.mu.RUnlock()

	snap := &cache.BoardSnapshot{
		SessionID: s.ID,
		Index:     s.Store.CurrentSlide(),
		Strokes:   strokes,
		SetID:     setID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.hub.redis.SetBoardSnapshot(ctx, snap)
	}()
}

// restoreFromCache seeds the store from the last cached snapshot, if any
func (s *LiveSession) restoreFromCache() {
	if s.hub.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snap, err := s.hub.redis.GetBoardSnapshot(ctx, s.ID)
	if err != nil {
		if err != cache.ErrNoSnapshot {
			log.Printf("[Session %s] Snapshot restore failed: %v", s.ID, err)
		}
		return
	}

	var strokes []board.Stroke
	if err := json.Unmarshal(snap.Strokes, &strokes); err != nil {
		log.Printf("[Session %s] Discarding undecodable cached snapshot: %v", s.ID, err)
		return
	}

	s.Store.SetSlide(snap.Index)
	s.Store.ReplaceAll(strokes)
	s.setID = snap.SetID
	log.Printf("[Session %s] Restored %d strokes from cache (slide %d)", s.ID, len(strokes), snap.Index)
}

// recordSessionStart persists the session row when the host joins
func (s *LiveSession) recordSessionStart(hostID int64) {
	if s.hub.db == nil {
		return
	}

	record := &model.BoardSession{
		SessionID: s.ID,
		HostID:    hostID,
	}
	s.mu.RLock()
	if s.setID != "" {
		setCode := s.setID
		record.SetCode = &setCode
	}
	s.mu.RUnlock()

	if err := s.hub.db.Create(record).Error; err != nil {
		log.Printf("[Session %s] Failed to record session start: %v", s.ID, err)
		return
	}
	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
}

// recordSessionEnd stamps the session row when the host leaves
func (s *LiveSession) recordSessionEnd() {
	s.mu.Lock()
	record := s.record
	s.record = nil
	s.mu.Unlock()

	if record == nil || s.hub.db == nil {
		return
	}

	now := time.Now()
	if err := s.hub.db.Model(record).Update("ended_at", &now).Error; err != nil {
		log.Printf("[Session %s] Failed to record session end: %v", s.ID, err)
	}

	if s.hub.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.hub.redis.DeleteBoardSnapshot(ctx, s.ID)
	}
}

// shutdown stops the broadcaster and releases the transport subscription
func (s *LiveSession) shutdown() {
	s.cancel()
	if s.sub != nil {
		s.sub.Close()
	}
	log.Printf("[Session %s] Shutdown complete", s.ID)
}
