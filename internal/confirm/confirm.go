// Package confirm routes yes/no questions from background work to whoever is
// watching the board. At most one prompt is open at a time; later prompts
// wait their turn.
package confirm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kanban/internal/models"
)

// Prompt is a question shown to the user. Type is one of danger, warning or
// info.
type Prompt struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	ConfirmText string `json:"confirmText,omitempty"`
	CancelText  string `json:"cancelText,omitempty"`
}

// Open is the prompt currently awaiting an answer.
type Open struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Prompt
}

// request is a queued prompt and the channel its answer is sent on.
type request struct {
	Open
	reply chan bool
}

// Broker serializes prompts.
type Broker struct {
	mu     sync.Mutex
	queue  []*request
	logger *slog.Logger
	now    func() time.Time
}

// NewBroker returns an idle broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Show queues p and blocks until it is answered or ctx is done.
func (b *Broker) Show(ctx context.Context, p Prompt) (bool, error) {
	if p.Type == "" {
		p.Type = "info"
	}
	req := &request{
		Open:  Open{ID: uuid.NewString(), CreatedAt: b.now(), Prompt: p},
		reply: make(chan bool, 1),
	}
	b.mu.Lock()
	b.queue = append(b.queue, req)
	queued := len(b.queue)
	b.mu.Unlock()
	b.logger.Debug("confirmation queued", slog.String("id", req.ID),
		slog.String("title", p.Title), slog.Int("position", queued))

	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		b.remove(req.ID)
		return false, ctx.Err()
	}
}

// Pending returns the open prompt, if any.
func (b *Broker) Pending() (Open, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Open{}, false
	}
	return b.queue[0].Open, true
}

// Respond answers the open prompt. Only the open prompt can be answered.
func (b *Broker) Respond(id string, confirmed bool) error {
	b.mu.Lock()
	if len(b.queue) == 0 || b.queue[0].ID != id {
		b.mu.Unlock()
		return models.ErrConfirmationNotFound
	}
	req := b.queue[0]
	b.queue = b.queue[1:]
	b.mu.Unlock()

	req.reply <- confirmed
	b.logger.Info("confirmation answered", slog.String("id", id), slog.Bool("confirmed", confirmed))
	return nil
}

// remove drops a request from the queue. Callers hold the lock.
func (b *Broker) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.queue {
		if r.ID == id {
			b.queue = append(b.queue[:i:i], b.queue[i+1:]...)
			return
		}
	}
}
