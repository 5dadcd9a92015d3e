package models

// Inbound event types (client to server).
const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
)

// Outbound event types (server to client).
const (
	EventReceiveMessage = "receive-message"
	EventRoomJoined     = "room-joined"
	EventUserOnline     = "user-online"
	EventUserOffline    = "user-offline"
	EventError          = "error"
)

// Event is the single inbound union decoded from a client frame. Which
// fields are meaningful depends on Type.
type Event struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	Content  string `json:"content,omitempty"`
	MsgType  string `json:"msg_type,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// Envelope is the outbound frame written to clients. It is also the payload
// published on Redis channels so fan-out is identical on every instance.
type Envelope struct {
	Type     string   `json:"type"`
	RoomID   string   `json:"room_id,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
	IsTyping bool     `json:"is_typing,omitempty"`
	Message  *Message `json:"message,omitempty"`
	Code     string   `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
}
