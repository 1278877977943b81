// Package memory provides an in-process completion-event publisher.
package memory

import (
	"context"
	"sync"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

// Publisher records published events in memory. It is the default backend
// and the one tests observe.
type Publisher struct {
	mu     sync.Mutex
	events []crawler.CompletionEvent
}

// New constructs a Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends the event.
func (p *Publisher) Publish(_ context.Context, event crawler.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []crawler.CompletionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]crawler.CompletionEvent, len(p.events))
	copy(out, p.events)
	return out
}
