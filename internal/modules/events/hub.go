// README: Event hub: level-triggered "orders changed" signal for local and remote views.
package events

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Broadcaster carries the change signal between processes. Signals carry only
// the origin hub id; receivers re-read the repository.
type Broadcaster interface {
	Broadcast(ctx context.Context, origin string) error
	// Listen calls fn for every remote signal until ctx is done.
	Listen(ctx context.Context, fn func(origin string)) error
	Close() error
}

type Hub struct {
	id     string
	remote Broadcaster
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]func()
}

func NewHub(remote Broadcaster, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		id:     uuid.NewString(),
		remote: remote,
		logger: logger,
		subs:   make(map[int]func()),
	}
}

func (h *Hub) ID() string { return h.id }

// Subscribe registers fn and returns its disposer. Disposing twice is safe.
func (h *Hub) Subscribe(fn func()) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish notifies local subscribers, then the other processes.
func (h *Hub) Publish(ctx context.Context) error {
	h.notifyLocal()
	if h.remote == nil {
		return nil
	}
	return h.remote.Broadcast(ctx, h.id)
}

// Run relays remote signals to local subscribers until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	if h.remote == nil {
		<-ctx.Done()
		return nil
	}
	return h.remote.Listen(ctx, func(origin string) {
		if origin == h.id {
			return
		}
		h.notifyLocal()
	})
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) notifyLocal() {
	h.mu.RLock()
	fns := make([]func(), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		h.call(fn)
	}
}

func (h *Hub) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("subscriber panicked", "panic", r)
		}
	}()
	fn()
}
