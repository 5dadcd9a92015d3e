package chathub

import "beamchat/backend/internal/models"

// Client is the interface for one live connection to the gateway. It
// abstracts the underlying transport so the hub can manage connections
// uniformly and tests can drive the hub without a socket.
type Client interface {
	// GetConnID returns the unique identifier of this connection. A user
	// may hold several connections at once (multiple tabs or devices).
	GetConnID() string
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound envelopes
	// to for this specific connection. It is a send-only channel.
	GetSendChannel() chan<- models.Envelope

	// Run starts the connection's read and write pumps.
	Run()
	// Close shuts down the outbound side of the connection. Safe to call
	// more than once.
	Close()
}
