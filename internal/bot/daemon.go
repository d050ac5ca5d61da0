package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInboundClosed is returned by Run when the adapter stops delivering
// messages before shutdown was requested.
var ErrInboundClosed = errors.New("bot: inbound channel closed")

// Service is a long-running component started next to the message pump,
// such as the delivery scheduler or the HTTP server.
type Service interface {
	Run(ctx context.Context) error
}

// Daemon is the main bot process. It connects to a chat platform, pumps
// inbound messages through the Router and runs its services until the
// context is cancelled or one of them fails.
type Daemon struct {
	adapter  telegraph.Adapter
	conv     Conversation
	services []Service
	commands []telegraph.Command
	logger   *zap.Logger
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Adapter      telegraph.Adapter
	Conversation Conversation
	Services     []Service           // optional
	Commands     []telegraph.Command // defaults to DefaultCommands
	Logger       *zap.Logger         // defaults to zap.NewNop()
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	if opts.Conversation == nil {
		return nil, fmt.Errorf("bot: conversation is required")
	}
	for i, s := range opts.Services {
		if s == nil {
			return nil, fmt.Errorf("bot: service %d is nil", i)
		}
	}
	d := &Daemon{
		adapter:  opts.Adapter,
		conv:     opts.Conversation,
		services: opts.Services,
		commands: opts.Commands,
		logger:   opts.Logger,
	}
	if d.commands == nil {
		d.commands = DefaultCommands
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d, nil
}

// Run connects the adapter and blocks until ctx is cancelled or a service
// fails. In-flight messages are drained and the adapter is closed before
// returning.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("bot connecting")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	var botUserID string
	if bui, ok := d.adapter.(telegraph.BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}
	router, err := NewRouter(RouterOpts{
		Conversation: d.conv,
		BotUserID:    botUserID,
		Logger:       d.logger,
	})
	if err != nil {
		d.adapter.Close()
		return err
	}

	if reg, ok := d.adapter.(telegraph.CommandRegistrar); ok && len(d.commands) > 0 {
		if err := reg.RegisterCommands(ctx, d.commands); err != nil {
			d.logger.Warn("register commands", zap.Error(err))
		}
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.pump(gctx, router, inbound) })
	for _, s := range d.services {
		g.Go(func() error { return s.Run(gctx) })
	}
	d.logger.Info("bot online", zap.String("bot_user", botUserID))

	err = g.Wait()
	d.logger.Info("bot shutting down")
	if cerr := d.adapter.Close(); cerr != nil {
		d.logger.Warn("close adapter", zap.Error(cerr))
	}
	if err != nil {
		return err
	}
	d.logger.Info("bot stopped")
	return nil
}

// pump feeds inbound messages to the router until ctx is done, then waits
// for in-flight messages.
func (d *Daemon) pump(ctx context.Context, router *Router, inbound <-chan telegraph.InboundMessage) error {
	q := newChatQueues(func(msg telegraph.InboundMessage) { router.Handle(ctx, msg) })
	defer q.wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return ErrInboundClosed
			}
			q.dispatch(msg)
		}
	}
}

// chatQueues handles messages concurrently across chats while keeping each
// chat's messages in arrival order.
type chatQueues struct {
	handle func(telegraph.InboundMessage)

	mu     sync.Mutex
	queues map[string][]telegraph.InboundMessage
	wg     sync.WaitGroup
}

func newChatQueues(handle func(telegraph.InboundMessage)) *chatQueues {
	return &chatQueues{handle: handle, queues: make(map[string][]telegraph.InboundMessage)}
}

// dispatch queues msg and starts a drainer when its chat has none.
func (c *chatQueues) dispatch(msg telegraph.InboundMessage) {
	c.mu.Lock()
	q, busy := c.queues[msg.ChatID]
	c.queues[msg.ChatID] = append(q, msg)
	c.mu.Unlock()
	if busy {
		return
	}
	c.wg.Add(1)
	go c.drain(msg.ChatID)
}

func (c *chatQueues) drain(chatID string) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		q := c.queues[chatID]
		if len(q) == 0 {
			delete(c.queues, chatID)
			c.mu.Unlock()
			return
		}
		msg := q[0]
		c.queues[chatID] = q[1:]
		c.mu.Unlock()
		c.handle(msg)
	}
}

func (c *chatQueues) wait() { c.wg.Wait() }
