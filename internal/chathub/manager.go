package chathub

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"beamchat/backend/internal/chaterr"
	"beamchat/backend/internal/models"
	"beamchat/backend/internal/presence"
	"beamchat/backend/internal/storage"
)

const (
	// storeTimeout bounds every store call made on behalf of a hub event so
	// a stalled database cannot pin its goroutine indefinitely.
	storeTimeout = 5 * time.Second

	// maxContentLen caps message content accepted over the socket.
	maxContentLen = 2000
)

// Inbound pairs a decoded client event with the connection it arrived on.
type Inbound struct {
	From  Client
	Event models.Event
}

// ManagerService is the realtime gateway hub. One Run loop per process owns
// the clients map and the room subscription table; everything reaches it
// through channels. Store calls run in per-event goroutines so one
// connection's stalled lookup never delays another connection's events;
// only map mutations and deliveries come back to the loop, through
// completions. Broadcasts travel through Redis pub/sub so they are
// delivered identically whether the subscriber lives on this instance or
// another one.
type ManagerService struct {
	Clients map[string]Client // connID -> client

	rooms map[string]map[string]Client // roomID -> connID -> client

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound
	PubSubCh     chan models.Envelope

	completions chan func()

	Storage  storage.Storage
	Presence *presence.Tracker

	sub Subscriber
	log *logrus.Entry
}

// NewManagerService (the subscriber is attached separately so tests can run
// the hub without Redis).
func NewManagerService(s storage.Storage, p *presence.Tracker) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		rooms:        make(map[string]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound),
		PubSubCh:     make(chan models.Envelope, 256),
		completions:  make(chan func(), 64),
		Storage:      s,
		Presence:     p,
		log:          logrus.WithField("component", "chathub"),
	}
}

// SetSubscriber attaches the Redis subscription the hub consumes for
// fan-out.
func (m *ManagerService) SetSubscriber(sub Subscriber) {
	m.sub = sub
}

// Run is the hub's main loop. It must run in its own goroutine and is the
// only goroutine that touches Clients and the room table.
func (m *ManagerService) Run() {
	if m.sub != nil {
		m.startPubSubListener()
	}
	m.log.Info("hub is running")

	for {
		select {
		case client := <-m.RegisterCh:
			m.registerClient(client)
		case client := <-m.UnregisterCh:
			m.unregisterClient(client)
		case in := <-m.IncomingCh:
			m.dispatch(in)
		case env := <-m.PubSubCh:
			m.fanOut(env)
		case fn := <-m.completions:
			fn()
		}
	}
}

func (m *ManagerService) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

func (m *ManagerService) registerClient(client Client) {
	m.Clients[client.GetConnID()] = client
	m.Presence.Add(client.GetUserID(), client.GetConnID())
	m.log.WithFields(logrus.Fields{
		"conn_id": client.GetConnID(),
		"user_id": client.GetUserID(),
	}).Info("client registered")

	// The online transition is decided by the shared connection count in
	// Redis, not by this instance's view; a user already connected through
	// another instance does not go online twice.
	userID, connID := client.GetUserID(), client.GetConnID()
	go func() {
		ctx, cancel := m.storeCtx()
		defer cancel()
		first, err := m.Storage.MarkOnline(ctx, userID, connID)
		if err != nil {
			m.log.WithError(err).Warn("failed to mirror online transition")
			return
		}
		if !first {
			return
		}
		env := models.Envelope{Type: models.EventUserOnline, UserID: userID}
		if err := m.Storage.PublishEvent(ctx, storage.PresenceChannel, env); err != nil {
			m.log.WithError(err).Warn("failed to publish user-online")
		}
	}()
}

func (m *ManagerService) unregisterClient(client Client) {
	connID := client.GetConnID()
	_, known := m.Clients[connID]
	delete(m.Clients, connID)
	for roomID, subs := range m.rooms {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(m.rooms, roomID)
		}
	}
	if !known {
		return // already gone, e.g. duplicate unregister from a dying pump
	}
	client.Close()

	m.Presence.Remove(client.GetUserID(), connID)
	m.log.WithFields(logrus.Fields{
		"conn_id": connID,
		"user_id": client.GetUserID(),
	}).Info("client unregistered")

	userID := client.GetUserID()
	go func() {
		ctx, cancel := m.storeCtx()
		defer cancel()
		last, err := m.Storage.MarkOffline(ctx, userID, connID)
		if err != nil {
			m.log.WithError(err).Warn("failed to mirror offline transition")
			return
		}
		if !last {
			return
		}
		env := models.Envelope{Type: models.EventUserOffline, UserID: userID}
		if err := m.Storage.PublishEvent(ctx, storage.PresenceChannel, env); err != nil {
			m.log.WithError(err).Warn("failed to publish user-offline")
		}
	}()
}

// dispatch routes one inbound event. Failures become error acks on the
// originating connection and never take the loop down.
func (m *ManagerService) dispatch(in Inbound) {
	switch in.Event.Type {
	case models.EventJoinRoom:
		m.handleJoinRoom(in.From, in.Event)
	case models.EventSendMessage:
		m.handleSendMessage(in.From, in.Event)
	case models.EventTyping:
		m.handleTyping(in.From, in.Event)
	default:
		m.errAck(in.From, chaterr.ErrValidation, "unknown event type")
	}
}

// handleJoinRoom resolves the room off-loop. Only the subscription-table
// mutation and the ack come back through completions.
func (m *ManagerService) handleJoinRoom(client Client, ev models.Event) {
	go func() {
		ctx, cancel := m.storeCtx()
		defer cancel()

		room, err := m.Storage.GetRoomByID(ctx, ev.RoomID)
		if err != nil {
			m.asyncErrAck(client, err, "room lookup failed")
			return
		}
		if !room.HasParticipant(client.GetUserID()) {
			m.asyncErrAck(client, chaterr.ErrForbidden, "not a participant of this room")
			return
		}

		m.completions <- func() {
			subs, ok := m.rooms[room.RoomID]
			if !ok {
				subs = make(map[string]Client)
				m.rooms[room.RoomID] = subs
			}
			subs[client.GetConnID()] = client
			m.deliver(client, models.Envelope{Type: models.EventRoomJoined, RoomID: room.RoomID})
		}
	}()
}

// handleSendMessage validates in the loop, then persists and publishes
// off-loop. The broadcast itself comes back through PubSubCh like every
// other instance's, so fan-out of earlier messages is never held up by
// this one's store calls.
func (m *ManagerService) handleSendMessage(client Client, ev models.Event) {
	msgType := ev.MsgType
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if err := validateContent(ev.Content, msgType); err != nil {
		m.errAck(client, err, err.Error())
		return
	}

	go func() {
		ctx, cancel := m.storeCtx()
		defer cancel()

		// Membership is re-checked on every send, not only at join.
		room, err := m.Storage.GetRoomByID(ctx, ev.RoomID)
		if err != nil {
			m.asyncErrAck(client, err, "room lookup failed")
			return
		}
		if !room.HasParticipant(client.GetUserID()) {
			m.asyncErrAck(client, chaterr.ErrForbidden, "not a participant of this room")
			return
		}

		msg := &models.Message{
			RoomID:   room.RoomID,
			SenderID: client.GetUserID(),
			Content:  ev.Content,
			Type:     msgType,
		}
		if err := m.Storage.AppendMessage(ctx, msg); err != nil {
			m.asyncErrAck(client, err, "message not persisted")
			return
		}
		if err := m.Storage.TouchLastMessage(ctx, msg); err != nil {
			// Preview cache only; the message itself is durable.
			m.log.WithError(err).Warn("failed to refresh last-message cache")
		}

		env := models.Envelope{
			Type:    models.EventReceiveMessage,
			RoomID:  room.RoomID,
			UserID:  msg.SenderID,
			Message: msg,
		}
		if err := m.Storage.PublishEvent(ctx, storage.RoomChannel(room.RoomID), env); err != nil {
			m.asyncErrAck(client, err, "message persisted but broadcast failed")
		}
	}()
}

func (m *ManagerService) handleTyping(client Client, ev models.Event) {
	// Typing is only accepted on rooms the connection has joined, which
	// carries the membership check done at join time.
	subs, ok := m.rooms[ev.RoomID]
	if !ok {
		m.errAck(client, chaterr.ErrForbidden, "room not joined")
		return
	}
	if _, ok := subs[client.GetConnID()]; !ok {
		m.errAck(client, chaterr.ErrForbidden, "room not joined")
		return
	}

	env := models.Envelope{
		Type:     models.EventTyping,
		RoomID:   ev.RoomID,
		UserID:   client.GetUserID(),
		IsTyping: ev.IsTyping,
	}
	go func() {
		ctx, cancel := m.storeCtx()
		defer cancel()
		if err := m.Storage.PublishEvent(ctx, storage.RoomChannel(ev.RoomID), env); err != nil {
			m.log.WithError(err).Warn("failed to publish typing event")
		}
	}()
}

// fanOut delivers one envelope from the pub/sub stream to the local
// subscribers it targets. Messages echo back to the sender's connections;
// typing does not, a client already knows it is typing.
func (m *ManagerService) fanOut(env models.Envelope) {
	switch env.Type {
	case models.EventReceiveMessage:
		for _, client := range m.rooms[env.RoomID] {
			m.deliver(client, env)
		}
	case models.EventTyping:
		for _, client := range m.rooms[env.RoomID] {
			if client.GetUserID() == env.UserID {
				continue
			}
			m.deliver(client, env)
		}
	case models.EventUserOnline, models.EventUserOffline:
		for _, client := range m.Clients {
			m.deliver(client, env)
		}
	default:
		m.log.WithField("type", env.Type).Warn("unknown envelope type on pub/sub stream")
	}
}

// deliver is a non-blocking send, callable only from the loop. A client
// whose buffer is full is dropped and unregistered; its pumps tear the
// socket down and the peer reconnects with fresh state.
func (m *ManagerService) deliver(client Client, env models.Envelope) {
	select {
	case client.GetSendChannel() <- env:
	default:
		m.log.WithFields(logrus.Fields{
			"conn_id": client.GetConnID(),
			"type":    env.Type,
		}).Warn("client send buffer full, dropping connection")
		m.unregisterClient(client)
	}
}

func (m *ManagerService) errAck(client Client, err error, detail string) {
	m.deliver(client, models.Envelope{
		Type:  models.EventError,
		Code:  chaterr.Code(err),
		Error: detail,
	})
}

// asyncErrAck routes an error ack from an event goroutine back through the
// loop, which owns delivery.
func (m *ManagerService) asyncErrAck(client Client, err error, detail string) {
	m.completions <- func() { m.errAck(client, err, detail) }
}

func validateContent(content, msgType string) error {
	switch msgType {
	case models.MessageTypeText:
		if strings.TrimSpace(content) == "" {
			return chaterr.ErrValidation
		}
	case models.MessageTypeImage:
		if content == "" {
			return chaterr.ErrValidation
		}
	default:
		return chaterr.ErrValidation
	}
	if len(content) > maxContentLen {
		return chaterr.ErrValidation
	}
	return nil
}
