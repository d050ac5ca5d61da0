package sqlstore

import (
	"context"
	"sync"

	"github.com/zulandar/traveler/internal/telegraph"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []telegraph.OutboundMessage
}

func (r *recordingSender) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}
