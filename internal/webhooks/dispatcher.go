package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facehub/backend/internal/models"
)

const (
	// DefaultFailureThreshold is the number of consecutive delivery
	// failures after which a subscription is deactivated.
	DefaultFailureThreshold = 10

	// deliveryTimeout bounds each outbound request so hanging endpoints
	// cannot accumulate goroutines.
	deliveryTimeout = 5 * time.Second
)

// deliveryBody is the JSON object posted to subscriber endpoints.
type deliveryBody struct {
	Event     EventType   `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Dispatcher fans out domain events to registered webhook endpoints,
// asynchronously relative to the request that emitted them. Events live only
// in process memory: delivery is at-most-once, best effort, one attempt per
// subscription per emit, no ordering between deliveries.
type Dispatcher struct {
	store     SubscriptionStore
	checker   EndpointChecker
	client    *http.Client
	logger    *slog.Logger
	threshold int

	wg sync.WaitGroup
}

// NewDispatcher builds a dispatcher with the default HTTP client, egress
// policy, and failure threshold.
func NewDispatcher(store SubscriptionStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		checker:   &EgressPolicy{},
		client:    &http.Client{Timeout: deliveryTimeout},
		logger:    logger,
		threshold: DefaultFailureThreshold,
	}
}

// NewDispatcherWith builds a dispatcher with explicit collaborators. Used by
// tests and anywhere the defaults don't fit.
func NewDispatcherWith(store SubscriptionStore, checker EndpointChecker, client *http.Client, logger *slog.Logger, threshold int) *Dispatcher {
	return &Dispatcher{
		store:     store,
		checker:   checker,
		client:    client,
		logger:    logger,
		threshold: threshold,
	}
}

// Emit queues delivery of event to recipientID's matching subscriptions and
// returns immediately. The triggering write has already committed; nothing
// that happens during delivery can reach the caller.
//
// Emitting an unknown event type is a programming error and panics.
func (d *Dispatcher) Emit(event EventType, recipientID int, payload interface{}) {
	if !knownEvents[event] {
		panic(fmt.Sprintf("webhooks: unknown event type %q", event))
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(event, recipientID, payload)
	}()
}

// Wait blocks until all in-flight dispatches finish. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(event EventType, recipientID int, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subs, err := d.store.ListActive(ctx, recipientID, event)
	if err != nil {
		d.logger.Error("failed to load webhook subscriptions",
			"event", event, "recipient_id", recipientID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	body, err := json.Marshal(deliveryBody{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		d.logger.Error("failed to encode webhook body", "event", event, "error", err)
		return
	}

	// One attempt per subscription; one subscription's failure never
	// affects another's delivery.
	for _, sub := range subs {
		d.deliver(ctx, sub, body)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sub models.WebhookSubscription, body []byte) {
	if err := d.checker.CheckEndpoint(ctx, sub.URL); err != nil {
		// Unsafe endpoint: permanently disable without burning the
		// failure budget, and never issue the request.
		d.logger.Warn("disabling webhook with unsafe endpoint",
			"subscription_id", sub.ID, "error", err)
		if err := d.store.Disable(ctx, sub.ID); err != nil {
			d.logger.Error("failed to disable webhook", "subscription_id", sub.ID, "error", err)
		}
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		d.recordFailure(ctx, sub.ID)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(sub.Secret, body))
	req.Header.Set(DeliveryHeader, uuid.NewString())

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook delivery failed", "subscription_id", sub.ID, "error", err)
		d.recordFailure(ctx, sub.ID)
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Warn("webhook delivery rejected",
			"subscription_id", sub.ID, "status", resp.StatusCode)
		d.recordFailure(ctx, sub.ID)
		return
	}

	if err := d.store.ResetFailures(ctx, sub.ID); err != nil {
		d.logger.Error("failed to reset webhook failures", "subscription_id", sub.ID, "error", err)
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, id int) {
	if err := d.store.RecordFailure(ctx, id, d.threshold); err != nil {
		d.logger.Error("failed to record webhook failure", "subscription_id", id, "error", err)
	}
}
