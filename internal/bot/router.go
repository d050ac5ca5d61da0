// Package bot runs the chat bot: it routes inbound platform messages into
// the onboarding dialog and keeps the delivery scheduler and HTTP surface
// alive alongside.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/zap"
)

// StartCommand is the command that (re)starts onboarding.
const StartCommand = "start"

// DefaultCommands is the command menu published to platforms.
var DefaultCommands = []telegraph.Command{
	{Name: StartCommand, Description: "Start a conversation with your travel companion"},
}

// Conversation is the dialog a chat talks to.
type Conversation interface {
	Start(ctx context.Context, chatID, locale string) error
	Handle(ctx context.Context, chatID, locale, text string) error
}

// Router classifies inbound messages: self-messages are dropped, "/start"
// restarts the dialog and everything else is handed to the dialog as text.
type Router struct {
	conv      Conversation
	botUserID string
	logger    *zap.Logger
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Conversation Conversation
	BotUserID    string      // bot's user ID for self-message filtering
	Logger       *zap.Logger // defaults to zap.NewNop()
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Conversation == nil {
		return nil, fmt.Errorf("bot: router: conversation is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		conv:      opts.Conversation,
		botUserID: opts.BotUserID,
		logger:    logger,
	}, nil
}

// Handle routes a single inbound message. Errors are logged; the dialog has
// already told the user what went wrong.
func (r *Router) Handle(ctx context.Context, msg telegraph.InboundMessage) {
	if msg.ChatID == "" || (r.botUserID != "" && msg.UserID == r.botUserID) {
		return
	}
	log := r.logger.With(zap.String("platform", msg.Platform), zap.String("chat", msg.ChatID))

	var err error
	if isCommand(msg.Text, StartCommand) {
		log.Debug("start command")
		err = r.conv.Start(ctx, msg.ChatID, msg.Locale)
	} else {
		err = r.conv.Handle(ctx, msg.ChatID, msg.Locale, msg.Text)
	}
	if err != nil {
		log.Warn("handle message", zap.Error(err))
	}
}

// isCommand matches "/name", "/name@botname" and "/name payload".
func isCommand(text, name string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return false
	}
	word, _, _ := strings.Cut(text[1:], " ")
	word, _, _ = strings.Cut(word, "@")
	return strings.EqualFold(word, name)
}
