// Package events carries domain notifications between services in-process.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventName() string
}

const (
	NameResponsesChanged = "responses.changed"
	NameCategorySwitched = "form.category_switched"
	NameResponseReviewed = "responses.reviewed"
	NameCatalogChanged   = "catalog.changed"
)

// ResponsesChanged fires after any write to a user's responses.
type ResponsesChanged struct {
	UserID   string `json:"userId"`
	Category string `json:"category,omitempty"`
}

func (ResponsesChanged) EventName() string { return NameResponsesChanged }

type CategorySwitched struct {
	UserID string `json:"userId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (CategorySwitched) EventName() string { return NameCategorySwitched }

type ResponseReviewed struct {
	UserID        string     `json:"userId"`
	ResponseID    string     `json:"responseId"`
	QuestionTitle string     `json:"questionTitle"`
	Status        string     `json:"status"`
	VerifiedBy    string     `json:"verifiedBy"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

func (ResponseReviewed) EventName() string { return NameResponseReviewed }

type CatalogChanged struct {
	Category string `json:"category"`
}

func (CatalogChanged) EventName() string { return NameCatalogChanged }

type Handler func(ctx context.Context, event Event) error

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus delivers events synchronously to every subscriber in subscription order.
// A failing subscriber is logged and does not stop delivery to the others.
type Bus struct {
	mu        sync.RWMutex
	handlers  []Handler
	published func(name string)
}

func NewBus() *Bus {
	return &Bus{}
}

// OnPublish registers a hook called once per published event, before delivery.
func (b *Bus) OnPublish(fn func(name string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = fn
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	published := b.published
	b.mu.RUnlock()

	if published != nil {
		published(event.EventName())
	}
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			slog.Warn("event handler failed", "event", event.EventName(), "err", err)
		}
	}
}

// On subscribes fn to events of type T only.
func On[T Event](b *Bus, fn func(ctx context.Context, event T) error) {
	b.Subscribe(func(ctx context.Context, event Event) error {
		typed, ok := event.(T)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	})
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
