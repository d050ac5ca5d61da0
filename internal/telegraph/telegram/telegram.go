// Package telegram implements the telegraph Adapter for the Telegram Bot API,
// receiving updates by long polling or through a webhook.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/zap"
)

// Update delivery modes. A send-only adapter receives nothing and leaves the
// bot's webhook alone, so one-off jobs can run beside a live bot.
const (
	ModePolling  = "polling"
	ModeWebhook  = "webhook"
	ModeSendOnly = "send"
)

// pollTimeout is the long-poll timeout in seconds.
const pollTimeout = 30

// Adapter implements telegraph.Adapter for Telegram. A chat is a Telegram
// chat id; reply options are shown as a one-time reply keyboard.
type Adapter struct {
	token      string
	endpoint   string
	mode       string
	webhookURL string
	client     *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	bot       *tgbotapi.BotAPI
	connected bool
	closed    bool
	listening bool
	inbound   chan telegraph.InboundMessage
	stop      chan struct{}
	wg        sync.WaitGroup
}

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	BotToken   string
	Mode       string       // ModePolling (default), ModeWebhook or ModeSendOnly
	WebhookURL string       // public URL Telegram posts updates to; webhook mode only
	Endpoint   string       // Bot API endpoint format; defaults to tgbotapi.APIEndpoint
	HTTPClient *http.Client // defaults to a client with a timeout above the poll timeout
	Logger     *zap.Logger  // defaults to zap.NewNop()
}

// New creates a Telegram Adapter. No network calls are made until Connect.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModePolling
	}
	switch mode {
	case ModePolling, ModeWebhook, ModeSendOnly:
	default:
		return nil, fmt.Errorf("telegram: unknown mode %q", mode)
	}
	if mode == ModeWebhook && opts.WebhookURL == "" {
		return nil, fmt.Errorf("telegram: webhook url is required in webhook mode")
	}
	a := &Adapter{
		token:      opts.BotToken,
		endpoint:   opts.Endpoint,
		mode:       mode,
		webhookURL: opts.WebhookURL,
		client:     opts.HTTPClient,
		logger:     opts.Logger,
		inbound:    make(chan telegraph.InboundMessage, 100),
		stop:       make(chan struct{}),
	}
	if a.endpoint == "" {
		a.endpoint = tgbotapi.APIEndpoint
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: (pollTimeout + 15) * time.Second}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a, nil
}

// Connect authenticates the bot and configures how updates arrive: a
// webhook is registered in webhook mode and removed in polling mode. Updates
// queued while the bot was down are dropped in both. Send-only mode only
// authenticates.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(a.token, a.endpoint, a.client)
	if err != nil {
		return fmt.Errorf("telegram: authorize: %w", err)
	}

	switch a.mode {
	case ModeWebhook:
		wh, err := tgbotapi.NewWebhook(a.webhookURL)
		if err != nil {
			return fmt.Errorf("telegram: webhook url: %w", err)
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			return fmt.Errorf("telegram: set webhook: %w", err)
		}
	case ModePolling:
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
			return fmt.Errorf("telegram: delete webhook: %w", err)
		}
	}

	a.bot = bot
	a.connected = true
	a.logger.Info("telegram connected",
		zap.String("user", bot.Self.UserName), zap.String("mode", a.mode))
	return nil
}

// Listen returns the inbound channel. In polling mode it starts the update
// loop; in webhook mode updates arrive through WebhookHandler.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("telegram: not connected")
	}
	if a.mode == ModeSendOnly {
		return nil, fmt.Errorf("telegram: send-only adapter does not receive updates")
	}
	if a.listening || a.mode != ModePolling {
		a.listening = true
		return a.inbound, nil
	}
	a.listening = true

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := a.bot.GetUpdatesChan(u)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.stop:
				return
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				a.handleUpdate(update)
			}
		}
	}()
	return a.inbound, nil
}

// WebhookHandler serves Telegram's webhook POSTs.
func (a *Adapter) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		bot := a.bot
		a.mu.Unlock()
		if bot == nil {
			http.Error(w, "not connected", http.StatusServiceUnavailable)
			return
		}
		update, err := bot.HandleUpdate(r)
		if err != nil {
			a.logger.Warn("telegram webhook: bad update", zap.Error(err))
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		a.handleUpdate(*update)
		w.WriteHeader(http.StatusOK)
	})
}

// Send delivers text, a photo with caption, or a prompt with a reply keyboard.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	bot := a.bot
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return fmt.Errorf("telegram: not connected")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", msg.ChatID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.ImageURL))
		photo.Caption = msg.Text
		if _, err := bot.Send(photo); err != nil {
			if isBadRequest(err) {
				return fmt.Errorf("telegram: send photo %s: %w: %v", msg.ImageURL, telegraph.ErrInvalidImage, err)
			}
			return fmt.Errorf("telegram: send photo: %w", err)
		}
		return nil
	}

	text := tgbotapi.NewMessage(chatID, msg.Text)
	if len(msg.Options) > 0 {
		text.ReplyMarkup = replyKeyboard(msg.Options)
	}
	if _, err := bot.Send(text); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// RegisterCommands sets the bot's command menu.
func (a *Adapter) RegisterCommands(ctx context.Context, commands []telegraph.Command) error {
	a.mu.Lock()
	bot := a.bot
	a.mu.Unlock()
	if bot == nil {
		return fmt.Errorf("telegram: not connected")
	}
	cmds := make([]tgbotapi.BotCommand, len(commands))
	for i, c := range commands {
		cmds[i] = tgbotapi.BotCommand{Command: c.Name, Description: c.Description}
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("telegram: set commands: %w", err)
	}
	return nil
}

// BotUserID returns the bot's own Telegram user id.
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot == nil {
		return ""
	}
	return strconv.FormatInt(a.bot.Self.ID, 10)
}

// Close stops polling, removes the webhook in webhook mode and closes the
// inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	bot := a.bot
	polling := a.listening && a.mode == ModePolling
	close(a.stop)
	a.mu.Unlock()

	var err error
	if bot != nil && polling {
		bot.StopReceivingUpdates()
	}
	a.wg.Wait()
	if bot != nil && a.mode == ModeWebhook {
		if _, reqErr := bot.Request(tgbotapi.DeleteWebhookConfig{}); reqErr != nil {
			err = fmt.Errorf("telegram: delete webhook: %w", reqErr)
		}
	}

	a.mu.Lock()
	close(a.inbound)
	a.mu.Unlock()
	return err
}

// handleUpdate converts a text message update to an InboundMessage.
func (a *Adapter) handleUpdate(update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.Text == "" || m.Chat == nil {
		return
	}
	in := telegraph.InboundMessage{
		Platform:  "telegram",
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		Text:      m.Text,
		Timestamp: m.Time(),
	}
	if m.From != nil {
		if m.From.IsBot {
			return
		}
		in.UserID = strconv.FormatInt(m.From.ID, 10)
		in.UserName = m.From.UserName
		in.Locale = m.From.LanguageCode
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- in:
	default:
		a.logger.Warn("telegram inbound queue full, dropping message", zap.String("chat", in.ChatID))
	}
}

// replyKeyboard lays options out one per row and hides after a choice.
func replyKeyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, len(options))
	for i, opt := range options {
		rows[i] = tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(opt))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

// isBadRequest reports a 400 from the Bot API, which for a photo means the
// file id or URL was rejected.
func isBadRequest(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest
}
