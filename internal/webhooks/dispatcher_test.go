package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/neilotoole/slogt"

	"github.com/facehub/backend/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	subs      []models.WebhookSubscription
	listErr   error
	listCalls []struct {
		ownerID int
		event   EventType
	}
	disabled []int
	failures map[int]int
	resets   []int
}

func (f *fakeStore) ListActive(_ context.Context, ownerID int, event EventType) ([]models.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, struct {
		ownerID int
		event   EventType
	}{ownerID, event})
	return f.subs, f.listErr
}

func (f *fakeStore) Disable(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = append(f.disabled, id)
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, id int, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[int]int{}
	}
	f.failures[id]++
	return nil
}

func (f *fakeStore) ResetFailures(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, id)
	return nil
}

type allowAll struct{}

func (allowAll) CheckEndpoint(context.Context, string) error { return nil }

type denyAll struct{}

func (denyAll) CheckEndpoint(context.Context, string) error {
	return errors.New("endpoint not allowed")
}

func newTestDispatcher(t *testing.T, store SubscriptionStore, checker EndpointChecker) *Dispatcher {
	t.Helper()
	return NewDispatcherWith(store, checker, &http.Client{}, slogt.New(t), DefaultFailureThreshold)
}

func TestDispatcher_DeliversSignedBody(t *testing.T) {
	var (
		mu       sync.Mutex
		gotBody  []byte
		gotSig   string
		gotDelID string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = body
		gotSig = r.Header.Get(SignatureHeader)
		gotDelID = r.Header.Get(DeliveryHeader)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := &fakeStore{subs: []models.WebhookSubscription{
		{ID: 7, OwnerID: 1, URL: srv.URL, Secret: "s3cret", Events: "mention", Active: true},
	}}
	d := newTestDispatcher(t, store, allowAll{})

	d.Emit(EventMention, 1, map[string]interface{}{"post_id": 42})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()

	if gotBody == nil {
		t.Fatal("no delivery received")
	}
	if !VerifySignature("s3cret", gotBody, gotSig) {
		t.Error("delivery signature does not verify against the posted bytes")
	}
	if gotDelID == "" {
		t.Error("missing delivery ID header")
	}

	var body struct {
		Event     string         `json:"event"`
		Data      map[string]any `json:"data"`
		Timestamp string         `json:"timestamp"`
	}
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Event != "mention" {
		t.Errorf("body event = %q, want %q", body.Event, "mention")
	}
	if body.Data["post_id"] != float64(42) {
		t.Errorf("body data = %v, want post_id 42", body.Data)
	}
	if body.Timestamp == "" {
		t.Error("body has no timestamp")
	}

	if len(store.resets) != 1 || store.resets[0] != 7 {
		t.Errorf("resets = %v, want [7]", store.resets)
	}
	if len(store.failures) != 0 {
		t.Errorf("failures = %v, want none", store.failures)
	}
}

func TestDispatcher_FailureRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeStore{subs: []models.WebhookSubscription{
		{ID: 3, OwnerID: 1, URL: srv.URL, Secret: "s", Events: "mention", Active: true},
	}}
	d := newTestDispatcher(t, store, allowAll{})

	d.Emit(EventMention, 1, nil)
	d.Wait()

	if store.failures[3] != 1 {
		t.Errorf("failures[3] = %d, want 1", store.failures[3])
	}
	if len(store.resets) != 0 {
		t.Errorf("resets = %v, want none", store.resets)
	}
}

func TestDispatcher_ConnectionErrorRecorded(t *testing.T) {
	store := &fakeStore{subs: []models.WebhookSubscription{
		// Port 1 is never listening.
		{ID: 5, OwnerID: 1, URL: "http://127.0.0.1:1/hook", Secret: "s", Events: "mention", Active: true},
	}}
	d := newTestDispatcher(t, store, allowAll{})

	d.Emit(EventMention, 1, nil)
	d.Wait()

	if store.failures[5] != 1 {
		t.Errorf("failures[5] = %d, want 1", store.failures[5])
	}
}

func TestDispatcher_UnsafeEndpointDisabled(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
	}))
	defer srv.Close()

	store := &fakeStore{subs: []models.WebhookSubscription{
		{ID: 9, OwnerID: 1, URL: srv.URL, Secret: "s", Events: "mention", Active: true},
	}}
	d := newTestDispatcher(t, store, denyAll{})

	d.Emit(EventMention, 1, nil)
	d.Wait()

	if requests != 0 {
		t.Errorf("unsafe endpoint received %d requests, want 0", requests)
	}
	if len(store.disabled) != 1 || store.disabled[0] != 9 {
		t.Errorf("disabled = %v, want [9]", store.disabled)
	}
	// Policy failures never burn the failure budget.
	if len(store.failures) != 0 {
		t.Errorf("failures = %v, want none", store.failures)
	}
}

func TestDispatcher_OneFailureDoesNotBlockOthers(t *testing.T) {
	delivered := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered <- struct{}{}
	}))
	defer srv.Close()

	store := &fakeStore{subs: []models.WebhookSubscription{
		{ID: 1, OwnerID: 1, URL: "http://127.0.0.1:1/dead", Secret: "a", Events: "mention", Active: true},
		{ID: 2, OwnerID: 1, URL: srv.URL, Secret: "b", Events: "mention", Active: true},
	}}
	d := newTestDispatcher(t, store, allowAll{})

	d.Emit(EventMention, 1, nil)
	d.Wait()

	select {
	case <-delivered:
	default:
		t.Error("healthy subscription was not delivered to after sibling failure")
	}
	if store.failures[1] != 1 {
		t.Errorf("failures[1] = %d, want 1", store.failures[1])
	}
	if len(store.resets) != 1 || store.resets[0] != 2 {
		t.Errorf("resets = %v, want [2]", store.resets)
	}
}

func TestDispatcher_NoMatchingSubscriptionsIsNoop(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(t, store, allowAll{})

	d.Emit(EventPostCreated, 12, nil)
	d.Wait()

	if len(store.listCalls) != 1 {
		t.Fatalf("listCalls = %d, want 1", len(store.listCalls))
	}
	if got := store.listCalls[0]; got.ownerID != 12 || got.event != EventPostCreated {
		t.Errorf("ListActive called with (%d, %s), want (12, %s)", got.ownerID, got.event, EventPostCreated)
	}
}

func TestDispatcher_EmitUnknownEventPanics(t *testing.T) {
	d := newTestDispatcher(t, &fakeStore{}, allowAll{})

	defer func() {
		if recover() == nil {
			t.Error("Emit with unknown event type did not panic")
		}
	}()
	d.Emit(EventType("user.deleted"), 1, nil)
}
