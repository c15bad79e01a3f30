package squarewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

type stubResolver struct {
	calls   []orders.ResolvePaymentInput
	updated bool
	err     error
}

func (s *stubResolver) ResolvePayment(_ context.Context, input orders.ResolvePaymentInput) (*orders.OrderDTO, bool, error) {
	s.calls = append(s.calls, input)
	if s.err != nil {
		return nil, false, s.err
	}
	return &orders.OrderDTO{ID: input.OrderID, PaymentStatus: input.Status}, s.updated, nil
}

func newTestService(t *testing.T, resolver *stubResolver) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Orders: resolver, Logger: logger.New(logger.Options{Output: io.Discard})})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

const paymentUpdatedPayload = `{
  "merchant_id": "ML8M1AQ1GQG2K",
  "type": "payment.updated",
  "event_id": "6a8f5f28-54a1-4eb0-a98a-3111513fd4fc",
  "created_at": "2026-02-13T21:30:11Z",
  "data": {
    "type": "payment",
    "id": "hYy9pRFVxpDsO1FB05SunFWUe9JZY",
    "object": {
      "payment": {
        "id": "hYy9pRFVxpDsO1FB05SunFWUe9JZY",
        "status": "COMPLETED",
        "reference_id": "AS-7742"
      }
    }
  }
}`

func TestHandlePaymentUpdatedResolvesOrder(t *testing.T) {
	var event SquareWebhookEvent
	if err := json.Unmarshal([]byte(paymentUpdatedPayload), &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resolver := &stubResolver{updated: true}
	if err := newTestService(t, resolver).HandleEvent(context.Background(), &event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(resolver.calls) != 1 {
		t.Fatalf("expected one resolution, got %d", len(resolver.calls))
	}
	call := resolver.calls[0]
	if call.OrderID != "AS-7742" || call.PaymentReference != "hYy9pRFVxpDsO1FB05SunFWUe9JZY" || call.Status != enums.PaymentStatusPaid {
		t.Fatalf("unexpected resolution %+v", call)
	}
}

func TestHandleIgnoresNonFinalAndOtherEvents(t *testing.T) {
	resolver := &stubResolver{}
	svc := newTestService(t, resolver)
	ctx := context.Background()

	approved := &SquareWebhookEvent{Type: "payment.updated", Data: SquareWebhookData{Object: SquareWebhookObject{
		Payment: &SquarePayment{ID: "pay", Status: "APPROVED", ReferenceID: "AS-1"},
	}}}
	if err := svc.HandleEvent(ctx, approved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.HandleEvent(ctx, &SquareWebhookEvent{Type: "refund.created"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolver.calls) != 0 {
		t.Fatalf("expected no resolutions, got %d", len(resolver.calls))
	}
}

func TestHandleFailedPaymentAndAlreadyFinal(t *testing.T) {
	resolver := &stubResolver{updated: false}
	svc := newTestService(t, resolver)

	event := &SquareWebhookEvent{Type: "payment.updated", Data: SquareWebhookData{Object: SquareWebhookObject{
		Payment: &SquarePayment{ID: "pay", Status: "FAILED", ReferenceID: "AS-1"},
	}}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.calls[0].Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed status, got %s", resolver.calls[0].Status)
	}
}

func TestHandleUnknownOrderIsAcknowledged(t *testing.T) {
	resolver := &stubResolver{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, resolver)
	event := &SquareWebhookEvent{Type: "payment.updated", Data: SquareWebhookData{Object: SquareWebhookObject{
		Payment: &SquarePayment{ID: "pay", Status: "COMPLETED"},
	}}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected ack, got %v", err)
	}

	resolver.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "order store unavailable")
	if err := svc.HandleEvent(context.Background(), event); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestHandleRejectsMissingPayment(t *testing.T) {
	svc := newTestService(t, &stubResolver{})
	if err := svc.HandleEvent(context.Background(), &SquareWebhookEvent{Type: "payment.updated"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.HandleEvent(context.Background(), nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(paymentUpdatedPayload)
	url := "https://api.asarum.mx/api/v1/webhooks/square"
	sig := Sign(payload, url, "whsec")

	if !VerifySignature(payload, url, "whsec", sig) {
		t.Fatal("expected valid signature")
	}
	if VerifySignature(payload, url, "other", sig) {
		t.Fatal("expected mismatch for wrong secret")
	}
	if VerifySignature(append(payload, ' '), url, "whsec", sig) {
		t.Fatal("expected mismatch for tampered payload")
	}
	if VerifySignature(payload, url, "whsec", "") {
		t.Fatal("expected empty header to fail")
	}
}
