package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vedant-labs/backend-bazaar/internal/common"
	"github.com/vedant-labs/backend-bazaar/internal/events"
)

func TestNotifySendsEmailForOrderCreated(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	payload, _ := json.Marshal(map[string]any{"email": "buyer@example.com", "orderId": "o-1", "total": 1087})
	err := n.Notify(context.Background(), events.Event{
		Topic:      events.TopicOrderCreated,
		Payload:    payload,
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mail.Outbox()) != 1 {
		t.Fatalf("expected one email, got %d", len(mail.Outbox()))
	}
	if mail.Outbox()[0].To != "buyer@example.com" || mail.Outbox()[0].Subject != "Order received" {
		t.Fatalf("unexpected email: %+v", mail.Outbox()[0])
	}
}

func TestNotifySkipsWithoutRecipient(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	payload, _ := json.Marshal(map[string]any{"orderId": "o-1"})
	if err := n.Notify(context.Background(), events.Event{Topic: events.TopicOrderCreated, Payload: payload}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mail.Outbox()) != 0 {
		t.Fatalf("expected no email without recipient")
	}
}

func TestNotifyHonoursTopicToggles(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{
		Mail:         mail,
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicOrderCanceled: false},
	}
	payload, _ := json.Marshal(map[string]any{"email": "buyer@example.com"})
	if err := n.Notify(context.Background(), events.Event{Topic: events.TopicOrderCanceled, Payload: payload}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mail.Outbox()) != 0 {
		t.Fatalf("expected toggled-off topic to be skipped")
	}
}
