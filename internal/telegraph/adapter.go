// Package telegraph bridges the bot to chat platforms (Telegram, Discord).
package telegraph

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidImage is wrapped by adapters when the platform rejects an image
// reference (unknown file id, unreachable URL).
var ErrInvalidImage = errors.New("telegraph: invalid image reference")

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and message sending/receiving
// for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the adapter is closed. Listen must only be
	// called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform  string    // e.g. "telegram", "discord"
	ChatID    string    // chat to reply to; also the user's profile identity
	UserID    string    // platform-specific user identifier
	UserName  string    // human-readable username
	Locale    string    // platform-reported language, may be empty
	Text      string    // raw message text
	Timestamp time.Time // when the message was sent
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChatID   string   // target chat
	Text     string   // message text, or the caption when ImageURL is set
	ImageURL string   // image to send; empty for plain text
	Options  []string // selectable one-shot replies shown with the message
}

// Sender is the outbound half of an Adapter.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}

// CommandRegistrar is an optional interface for adapters that can publish
// the bot's command menu to the platform.
type CommandRegistrar interface {
	RegisterCommands(ctx context.Context, commands []Command) error
}

// Command is a menu entry such as "/start".
type Command struct {
	Name        string
	Description string
}
